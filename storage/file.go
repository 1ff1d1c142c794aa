package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eddielth/z2mgen/logger"
)

// FileStorage writes one JSON file per update under <base>/<address>/.
type FileStorage struct {
	basePath string
}

// NewFileStorage
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create dir %s failed: %w", basePath, err)
	}

	logger.Info("init file storage: %s", basePath)
	return &FileStorage{
		basePath: basePath,
	}, nil
}

// Store save data to file
func (fs *FileStorage) Store(_ context.Context, rec Record) error {
	deviceDir := filepath.Join(fs.basePath, pathSafe(rec.Address))
	if err := os.MkdirAll(deviceDir, 0755); err != nil {
		return fmt.Errorf("create dir %s failed: %w", deviceDir, err)
	}

	jsonData, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize data failed: %w", err)
	}

	name := rec.Timestamp.Format("20060102-150405.000000000")
	filename := filepath.Join(deviceDir, name+".json")
	for n := 2; ; n++ {
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			break
		}
		filename = filepath.Join(deviceDir, fmt.Sprintf("%s-%d.json", name, n))
	}

	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("write file %s failed: %w", filename, err)
	}

	logger.Debug("has stored data to file: %s", filename)
	return nil
}

// Close implement StorageBackend
func (fs *FileStorage) Close() error {
	return nil
}
