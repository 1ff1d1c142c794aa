// Package generator runs the schema-to-bindings pipeline behind the
// generate command.
package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eddielth/z2mgen/canonical"
	"github.com/eddielth/z2mgen/codegen"
	"github.com/eddielth/z2mgen/config"
	"github.com/eddielth/z2mgen/logger"
	"github.com/eddielth/z2mgen/model"
	"github.com/eddielth/z2mgen/schema"
)

// ErrNoSchema is returned when the bridge published no device list in time.
var ErrNoSchema = errors.New("no device schema received from the bridge")

// SchemaSource fetches a retained message, returning nil on timeout.
type SchemaSource interface {
	FetchRetained(topic string, timeout time.Duration) ([]byte, error)
}

// LoadSchema reads the schema file when one is configured and otherwise
// asks src for the retained bridge/devices message.
func LoadSchema(cfg config.GeneratorConfig, namespace string, src SchemaSource) ([]byte, error) {
	if cfg.SchemaFile != "" {
		data, err := os.ReadFile(cfg.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %w", err)
		}
		logger.Info("loaded device schema from %s", cfg.SchemaFile)
		return data, nil
	}

	if src == nil {
		return nil, fmt.Errorf("%w: no schema file and no broker", ErrNoSchema)
	}
	topic := namespace + "/bridge/devices"
	data, err := src.FetchRetained(topic, cfg.FetchTimeout)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: nothing on %s within %v", ErrNoSchema, topic, cfg.FetchTimeout)
	}
	return data, nil
}

// Model is the canonical model of one schema snapshot.
type Model struct {
	Devices []*model.Device
	Enums   *canonical.Table
}

// Build parses data and canonicalizes its enums. hook may be nil.
func Build(data []byte, hook schema.DeviceHook) (*Model, error) {
	var opts []schema.Option
	if hook != nil {
		opts = append(opts, schema.WithHook(hook))
	}
	parser, err := schema.NewParser(opts...)
	if err != nil {
		return nil, err
	}

	devices, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}

	table, err := canonical.Build(devices, codegen.ReservedNames(devices)...)
	if err != nil {
		return nil, err
	}
	return &Model{Devices: devices, Enums: table}, nil
}

// Compile turns a schema snapshot into Go source.
func Compile(data []byte, hook schema.DeviceHook, opts codegen.Options) ([]byte, error) {
	m, err := Build(data, hook)
	if err != nil {
		return nil, err
	}
	return codegen.Generate(m.Devices, m.Enums, opts)
}

// WriteFile writes src to path, creating parent directories. The file is
// replaced atomically so a failed run never leaves a partial artifact.
func WriteFile(path string, src []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s failed: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".z2mgen-*.go")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(src); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	logger.Info("wrote %d bytes to %s", len(src), path)
	return nil
}

// Run loads, compiles and writes the bindings described by cfg.
func Run(cfg *config.Config, src SchemaSource, hook schema.DeviceHook) error {
	data, err := LoadSchema(cfg.Generator, cfg.MQTT.Namespace, src)
	if err != nil {
		return err
	}
	out, err := Compile(data, hook, codegen.Options{
		Package:   cfg.Generator.Package,
		Namespace: cfg.MQTT.Namespace,
	})
	if err != nil {
		return err
	}
	return WriteFile(cfg.Generator.Output, out)
}
