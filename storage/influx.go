package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/eddielth/z2mgen/config"
	"github.com/eddielth/z2mgen/logger"
)

const influxMeasurement = "device_state"

// InfluxStorage writes every update as one point tagged with the device.
type InfluxStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// NewInfluxStorage connects and verifies the server is healthy. Writes are
// batched and non-blocking; failures are logged.
func NewInfluxStorage(cfg config.InfluxStorageConfig) (*InfluxStorage, error) {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb ping %s failed: %w", cfg.URL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("influxdb %s is not healthy", cfg.URL)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			logger.Error("influxdb write failed: %v", err)
		}
	}()

	logger.Info("init influxdb storage: %s/%s", cfg.URL, cfg.Bucket)
	return &InfluxStorage{client: client, writeAPI: writeAPI}, nil
}

// Store queues rec as a point.
func (is *InfluxStorage) Store(_ context.Context, rec Record) error {
	point := newPoint(rec)
	if point == nil {
		return nil
	}
	is.writeAPI.WritePoint(point)
	return nil
}

// newPoint maps a record to a point, or nil when no field is writable.
func newPoint(rec Record) *write.Point {
	fields := make(map[string]any)
	for name, v := range Flatten(rec.State) {
		switch v.(type) {
		case float64, int, int64, bool, string:
			fields[name] = v
		}
	}
	if len(fields) == 0 {
		return nil
	}
	tags := map[string]string{"address": rec.Address, "device": rec.Device}
	return write.NewPoint(influxMeasurement, tags, fields, rec.Timestamp)
}

// Close flushes pending points.
func (is *InfluxStorage) Close() error {
	is.writeAPI.Flush()
	is.client.Close()
	return nil
}
