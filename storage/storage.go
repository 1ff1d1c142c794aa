// Package storage records device state updates to one or more backends.
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eddielth/z2mgen/config"
	"github.com/eddielth/z2mgen/logger"
)

// Record is one state update reported by one device.
type Record struct {
	Address   string         `json:"address"`
	Device    string         `json:"device"`
	Timestamp time.Time      `json:"timestamp"`
	State     map[string]any `json:"state"`
}

// StorageBackend 表示存储后端接口
type StorageBackend interface {
	Store(ctx context.Context, rec Record) error
	Close() error
}

// Manager 管理多个存储后端
type Manager struct {
	backends []StorageBackend
	mutex    sync.RWMutex
}

// NewManager 创建一个新的存储管理器
func NewManager(backends []StorageBackend) *Manager {
	return &Manager{
		backends: backends,
	}
}

// NewManagerFromConfig opens every enabled backend. Backends opened before
// a failure are closed again.
func NewManagerFromConfig(cfg config.StorageConfig) (*Manager, error) {
	m := NewManager(nil)

	if cfg.File.Enabled {
		fs, err := NewFileStorage(cfg.File.Path)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.AddBackend(fs)
	}
	if cfg.Database.Enabled {
		db, err := NewDatabaseStorage(cfg.Database.Type, cfg.Database.DSN)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.AddBackend(db)
	}
	if cfg.Redis.Enabled {
		rs, err := NewRedisStorage(cfg.Redis)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.AddBackend(rs)
	}
	if cfg.Influx.Enabled {
		is, err := NewInfluxStorage(cfg.Influx)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.AddBackend(is)
	}

	return m, nil
}

// Len is the number of configured backends.
func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.backends)
}

// Store 将数据存储到所有后端。单个后端失败只记录日志。
func (m *Manager) Store(ctx context.Context, rec Record) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, backend := range m.backends {
		if err := backend.Store(ctx, rec); err != nil {
			logger.Error("存储 %s 的状态失败: %v", rec.Device, err)
		}
	}
}

// Close 关闭所有存储后端连接
func (m *Manager) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, backend := range m.backends {
		if err := backend.Close(); err != nil {
			logger.Error("关闭存储后端连接失败: %v", err)
		}
	}
	m.backends = nil
}

// AddBackend 添加新的存储后端
func (m *Manager) AddBackend(backend StorageBackend) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.backends = append(m.backends, backend)
}

// Flatten turns nested state objects into dotted keys, e.g. color.x.
func Flatten(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	flatten("", state, out)
	return out
}

func flatten(prefix string, state map[string]any, out map[string]any) {
	for k, v := range state {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// sortedKeys gives backends a stable column order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pathSafe makes an address or name usable as a path element.
func pathSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
