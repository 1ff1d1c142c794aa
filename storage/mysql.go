package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/eddielth/z2mgen/logger"
)

// MySQLStorage 表示MySQL数据库存储后端
type MySQLStorage struct {
	sqlRecorder
	database string
}

// NewMySQLStorage 创建一个新的MySQL存储后端，数据库不存在时自动创建
func NewMySQLStorage(dsn string) (*MySQLStorage, error) {
	database, serverDSN, err := parseMySQLDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("解析MySQL DSN失败: %w", err)
	}

	serverDB, err := sql.Open("mysql", serverDSN)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL服务器失败: %w", err)
	}
	defer serverDB.Close()

	_, err = serverDB.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", database))
	if err != nil {
		return nil, fmt.Errorf("创建数据库失败: %w", err)
	}
	logger.Info("确保MySQL数据库 %s 存在", database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("MySQL数据库连接测试失败: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 5)

	storage := &MySQLStorage{
		sqlRecorder: sqlRecorder{db: db, name: "MySQL", placeholder: questionMark},
		database:    database,
	}
	if err := storage.InitDatabase(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化MySQL数据库失败: %w", err)
	}

	logger.Info("MySQL数据库存储初始化成功")
	return storage, nil
}

// parseMySQLDSN 提取数据库名和不包含数据库名的DSN
func parseMySQLDSN(dsn string) (database string, serverDSN string, err error) {
	slash := strings.LastIndex(dsn, "/")
	if slash < 0 {
		return "", "", fmt.Errorf("DSN格式无效，无法提取数据库名")
	}

	database, params, hasParams := strings.Cut(dsn[slash+1:], "?")
	if database == "" {
		return "", "", fmt.Errorf("DSN格式无效，无法提取数据库名")
	}

	serverDSN = dsn[:slash+1]
	if hasParams {
		serverDSN += "?" + params
	}
	return database, serverDSN, nil
}

// InitDatabase 初始化数据库和表
func (ms *MySQLStorage) InitDatabase() error {
	statesTableSQL := `
	CREATE TABLE IF NOT EXISTS device_states (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		address VARCHAR(64) NOT NULL,
		device VARCHAR(255) NOT NULL,
		timestamp BIGINT NOT NULL,
		state JSON,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_address (address),
		INDEX idx_timestamp (timestamp)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	fieldsTableSQL := `
	CREATE TABLE IF NOT EXISTS state_fields (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		state_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		value TEXT NOT NULL,
		FOREIGN KEY (state_id) REFERENCES device_states(id) ON DELETE CASCADE,
		INDEX idx_state_id (state_id),
		INDEX idx_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if _, err := ms.db.Exec(statesTableSQL); err != nil {
		return fmt.Errorf("创建设备状态表失败: %w", err)
	}
	if _, err := ms.db.Exec(fieldsTableSQL); err != nil {
		return fmt.Errorf("创建状态字段表失败: %w", err)
	}

	logger.Info("MySQL数据库表初始化成功")
	return nil
}

// Store 将状态存储到MySQL数据库
func (ms *MySQLStorage) Store(ctx context.Context, rec Record) error {
	return ms.store(ctx, rec)
}

// Close 关闭数据库连接
func (ms *MySQLStorage) Close() error {
	return ms.close()
}
