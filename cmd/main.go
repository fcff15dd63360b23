package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"clubvault/internal/app"
	"clubvault/internal/config"
	"clubvault/internal/handler"
)

func main() {
	configPath := flag.String("config", envOr("VAULT_CONFIG", ".app.env"), "path to config file")
	flag.Parse()

	// Загружаем конфигурацию
	appConfig, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	app.SetupLogging(appConfig.Log)

	vault, err := app.New(appConfig, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault")
	}
	defer vault.Close()

	// Инициализация хендлеров
	router := handler.NewRouter(vault.Verifier, handler.Handlers{
		Quota:  handler.NewStorageQuotaHandler(vault.Quota, vault.Permissions, vault.Sessions),
		Folder: handler.NewFolderHandler(vault.Folders),
		File:   handler.NewFileHandler(vault.Files),
		Trash:  handler.NewTrashHandler(vault.Trash),
		Export: handler.NewExportHandler(vault.Export),
		Batch:  handler.NewBatchHandler(vault.Batch),
	})
	router.Handle(appConfig.Server.MetricsPath, promhttp.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: router,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", appConfig.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
