package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"mediastore/internal/api"
	"mediastore/internal/config"
	"mediastore/internal/logging"
	"mediastore/internal/service"
	"mediastore/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile)
	logger.Info("配置加载完成，开始启动服务")

	store, err := storage.NewStore(cfg.StorageRoot, cfg.PublicBaseURL)
	if err != nil {
		logger.WithField("root", cfg.StorageRoot).WithError(err).Fatal("存储根目录解析失败")
	}
	if err := store.Initialize(); err != nil {
		logger.WithField("root", cfg.StorageRoot).WithError(err).Fatal("存储目录初始化失败")
	}

	svc := service.NewStorageService(store, logger)
	handler := api.NewStorageHandler(svc, cfg.MaxUploadBytes)
	router := api.NewRouter(cfg, handler)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      router,
	}

	logger.WithField("port", cfg.HTTPPort).WithField("root", store.Root()).Info("服务开始监听")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("监听失败")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("优雅关闭失败")
	}

	logger.Info("服务已停止")
}
