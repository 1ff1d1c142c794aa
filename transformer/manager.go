// Package transformer runs a user script over every raw device descriptor
// before it is parsed.
package transformer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dop251/goja"

	"github.com/eddielth/z2mgen/config"
	"github.com/eddielth/z2mgen/logger"
	"github.com/eddielth/z2mgen/model"
)

// ErrNoTransform is returned when a script does not define transform.
var ErrNoTransform = errors.New("script does not define a 'transform' function")

// Manager 管理设备描述转换脚本，支持热重载
type Manager struct {
	mutex       sync.Mutex
	transformer *Transformer
}

// Transformer 表示一个已编译的转换脚本
type Transformer struct {
	vm         *goja.Runtime
	transform  goja.Callable
	scriptPath string
}

// NewManager loads the script configured in cfg. Without a script every
// device passes through unchanged.
func NewManager(cfg config.GeneratorConfig) (*Manager, error) {
	m := &Manager{}
	if err := m.Reload(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// Enabled reports whether a script is loaded.
func (m *Manager) Enabled() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.transformer != nil
}

// Reload 重新加载转换脚本。失败时保留原有脚本。
func (m *Manager) Reload(cfg config.GeneratorConfig) error {
	var scriptCode string
	switch {
	case cfg.ScriptCode != "":
		scriptCode = cfg.ScriptCode
	case cfg.ScriptPath != "":
		scriptBytes, err := os.ReadFile(cfg.ScriptPath)
		if err != nil {
			return fmt.Errorf("无法加载脚本文件 %s: %w", cfg.ScriptPath, err)
		}
		scriptCode = string(scriptBytes)
	default:
		m.mutex.Lock()
		m.transformer = nil
		m.mutex.Unlock()
		return nil
	}

	transformer, err := newTransformer(scriptCode, cfg.ScriptPath)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	m.transformer = transformer
	m.mutex.Unlock()

	logger.Info("已加载设备转换脚本 %s", transformer.name())
	return nil
}

func newTransformer(scriptCode, scriptPath string) (*Transformer, error) {
	vm := goja.New()

	_ = vm.Set("log", func(msg string) {
		logger.Info("[JS] %s", msg)
	})
	_ = vm.Set("identifier", model.Identifier)

	if _, err := vm.RunString(scriptCode); err != nil {
		return nil, fmt.Errorf("执行脚本失败: %w", err)
	}

	transform, ok := goja.AssertFunction(vm.Get("transform"))
	if !ok {
		return nil, ErrNoTransform
	}

	return &Transformer{
		vm:         vm,
		transform:  transform,
		scriptPath: scriptPath,
	}, nil
}

func (t *Transformer) name() string {
	if t.scriptPath == "" {
		return "(inline)"
	}
	return t.scriptPath
}

// TransformDevice passes one raw descriptor through transform(device). A
// null or undefined result drops the device.
func (m *Manager) TransformDevice(device map[string]any) (map[string]any, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.transformer == nil {
		return device, nil
	}
	t := m.transformer

	result, err := t.transform(goja.Undefined(), t.vm.ToValue(device))
	if err != nil {
		return nil, fmt.Errorf("执行转换失败: %w", err)
	}
	if goja.IsNull(result) || goja.IsUndefined(result) {
		return nil, nil
	}

	// 通过JSON规范化脚本返回的值
	jsonData, err := json.Marshal(result.Export())
	if err != nil {
		return nil, fmt.Errorf("序列化JavaScript结果失败: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(jsonData, &out); err != nil {
		return nil, fmt.Errorf("transform must return an object or null: %w", err)
	}
	return out, nil
}
