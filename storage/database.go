package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eddielth/z2mgen/logger"
)

// DatabaseType
type DatabaseType string

const (
	MySQL      DatabaseType = "mysql"
	PostgreSQL DatabaseType = "postgresql"
	SQLite     DatabaseType = "sqlite"
)

// DatabaseStorage
type DatabaseStorage interface {
	StorageBackend
	InitDatabase() error
}

// NewDatabaseStorage
func NewDatabaseStorage(dbType string, dsn string) (DatabaseStorage, error) {
	switch DatabaseType(dbType) {
	case MySQL:
		return NewMySQLStorage(dsn)
	case PostgreSQL:
		return NewPostgreSQLStorage(dsn)
	case SQLite:
		return NewSQLiteStorage(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// sqlRecorder holds the insert path shared by the SQL backends. Each record
// becomes one device_states row plus one state_fields row per leaf value.
type sqlRecorder struct {
	db   *sql.DB
	name string
	// placeholder returns the n-th (1-based) bind parameter.
	placeholder func(n int) string
	// returning appends RETURNING id instead of using LastInsertId.
	returning bool
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func (r *sqlRecorder) store(ctx context.Context, rec Record) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			logger.Error("%s事务回滚: %v", r.name, err)
		}
	}()

	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("序列化状态失败: %w", err)
	}

	p := r.placeholder
	insert := fmt.Sprintf("INSERT INTO device_states (address, device, timestamp, state) VALUES (%s, %s, %s, %s)", p(1), p(2), p(3), p(4))
	args := []any{rec.Address, rec.Device, rec.Timestamp.UnixMilli(), string(stateJSON)}

	var stateID int64
	if r.returning {
		if err = tx.QueryRowContext(ctx, insert+" RETURNING id", args...).Scan(&stateID); err != nil {
			return fmt.Errorf("插入设备状态失败: %w", err)
		}
	} else {
		result, execErr := tx.ExecContext(ctx, insert, args...)
		if execErr != nil {
			err = fmt.Errorf("插入设备状态失败: %w", execErr)
			return err
		}
		if stateID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("获取插入ID失败: %w", err)
		}
	}

	fields := Flatten(rec.State)
	if len(fields) > 0 {
		valueStrings := make([]string, 0, len(fields))
		valueArgs := make([]any, 0, len(fields)*3)
		n := 1
		for _, name := range sortedKeys(fields) {
			valueStrings = append(valueStrings, fmt.Sprintf("(%s, %s, %s)", p(n), p(n+1), p(n+2)))
			valueArgs = append(valueArgs, stateID, name, fmt.Sprintf("%v", fields[name]))
			n += 3
		}
		fieldSQL := "INSERT INTO state_fields (state_id, name, value) VALUES " + strings.Join(valueStrings, ",")
		if _, err = tx.ExecContext(ctx, fieldSQL, valueArgs...); err != nil {
			return fmt.Errorf("插入状态字段失败: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}

	logger.Debug("已将 %s 的状态存储到%s数据库", rec.Device, r.name)
	return nil
}

func (r *sqlRecorder) close() error {
	if r.db == nil {
		return nil
	}
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("关闭%s数据库连接失败: %w", r.name, err)
	}
	logger.Info("%s数据库连接已关闭", r.name)
	return nil
}
