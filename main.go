package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eddielth/z2mgen/binding"
	"github.com/eddielth/z2mgen/config"
	"github.com/eddielth/z2mgen/generator"
	"github.com/eddielth/z2mgen/logger"
	"github.com/eddielth/z2mgen/monitor"
	"github.com/eddielth/z2mgen/mqtt"
	"github.com/eddielth/z2mgen/storage"
	"github.com/eddielth/z2mgen/transformer"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "用法: z2mgen [-config config.yaml] [-watch] generate|monitor\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	watch := flag.Bool("watch", false, "配置文件变化时重新生成 (仅 generate)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if err := logger.InitFromConfig(cfg.Logger.Level, cfg.Logger.FilePath, cfg.Logger.MaxSize, cfg.Logger.MaxBackups, cfg.Logger.Console); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Close()

	transformerManager, err := transformer.NewManager(cfg.Generator)
	if err != nil {
		log.Fatalf("初始化转换器失败: %v", err)
	}

	switch flag.Arg(0) {
	case "generate":
		err = runGenerate(cfg, *configPath, *watch, transformerManager)
	case "monitor":
		err = runMonitor(cfg, transformerManager)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("%v", err)
		logger.Close()
		os.Exit(1)
	}
}

// connect is only needed when no schema file is configured.
func connect(cfg *config.Config) (*mqtt.Client, error) {
	client, err := mqtt.NewClient(cfg.MQTT)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func runGenerate(cfg *config.Config, configPath string, watch bool, tm *transformer.Manager) error {
	generate := func(cfg *config.Config) error {
		var src generator.SchemaSource
		if cfg.Generator.SchemaFile == "" {
			client, err := connect(cfg)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			src = client
		}
		return generator.Run(cfg, src, tm)
	}

	if err := generate(cfg); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	if configPath == "" {
		return errors.New("-watch 需要同时指定 -config")
	}

	err := config.WatchConfig(configPath, func(newCfg *config.Config) error {
		if err := tm.Reload(newCfg.Generator); err != nil {
			return err
		}
		return generate(newCfg)
	})
	if err != nil {
		return err
	}

	logger.Info("已启动配置文件监听: %s", configPath)
	waitForSignal()
	return nil
}

func runMonitor(cfg *config.Config, tm *transformer.Manager) error {
	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	data, err := generator.LoadSchema(cfg.Generator, cfg.MQTT.Namespace, client)
	if err != nil {
		return err
	}
	model, err := generator.Build(data, tm)
	if err != nil {
		return err
	}

	storageManager, err := storage.NewManagerFromConfig(cfg.Storage)
	if err != nil {
		return err
	}
	defer storageManager.Close()

	router := binding.NewRouter(client,
		binding.WithNamespace(cfg.MQTT.Namespace),
		binding.WithGetTimeout(cfg.Runtime.GetTimeout),
		binding.WithMetrics(prometheus.DefaultRegisterer),
	)
	mon, err := monitor.New(router, model, storageManager)
	if err != nil {
		return err
	}
	if err := mon.Start(); err != nil {
		return err
	}

	if cfg.Metrics.Listen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("指标服务监听于 %s", cfg.Metrics.Listen)
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				logger.Error("指标服务已停止: %v", err)
			}
		}()
	}

	logger.Info("监控已启动，%d 个设备，%d 个存储后端", len(mon.Devices()), storageManager.Len())
	waitForSignal()
	logger.Info("服务已安全停止")
	return nil
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}
