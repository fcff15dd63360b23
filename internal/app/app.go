package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"clubvault/internal/auth"
	"clubvault/internal/config"
	"clubvault/internal/metrics"
	"clubvault/internal/repository"
	"clubvault/internal/service"
	"clubvault/internal/service/s3"
)

// App - собранные зависимости хранилища, общие для сервера и vaultctl
type App struct {
	Config  *config.Config
	DB      *sqlx.DB
	Conn    *grpc.ClientConn
	Metrics *metrics.VaultMetrics

	Verifier    *auth.Verifier
	Permissions *service.PermissionService
	Quota       *service.StorageQuotaService
	Folders     *service.FolderService
	Files       *service.FileService
	Trash       *service.TrashService
	Export      *service.ExportService
	Batch       *service.BatchCoordinator
	Sessions    *service.SessionRegistry
	OrgCatalog  *repository.OrganizationRepository
}

// SetupLogging настраивает глобальный zerolog логгер
func SetupLogging(conf config.LogConfig) {
	level, err := zerolog.ParseLevel(conf.Level)
	if err != nil || conf.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if conf.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Warn().Err(err).Msgf("Failed to connect to database (attempt %d/%d)", i+1, maxAttempts)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	var (
		m   *migrate.Migrate
		err error
	)
	for i := 0; i < 5; i++ {
		m, err = migrate.New(cfg.Database.MigrationsPath, cfg.Database.GetURL())
		if err == nil {
			break
		}
		log.Warn().Err(err).Msgf("Failed to create migrate instance (attempt %d/5)", i+1)
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Warn().Uint("version", version).Msg("Found dirty database state, forcing version")
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// New подключается к базе, S3 и сервису прав и собирает сервисы
func New(cfg *config.Config, registry prometheus.Registerer) (*App, error) {
	db, err := connectWithRetry(cfg.Database.GetDSN(), 5, 5*time.Second)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(cfg); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s3Client, err := s3.NewClient(&cfg.S3)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	conn, err := grpc.NewClient(cfg.Auth.CapabilityAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to capability service: %w", err)
	}

	a := &App{
		Config:  cfg,
		DB:      db,
		Conn:    conn,
		Metrics: metrics.Init(registry),
	}
	a.wire(s3Client, auth.NewCapabilityClient(conn))
	return a, nil
}

func (a *App) wire(store service.ObjectStore, caps service.Capabilities) {
	folderRepo := repository.NewFolderRepository(a.DB)
	objectRepo := repository.NewObjectRepository(a.DB)
	orgRepo := repository.NewOrganizationRepository(a.DB)

	a.OrgCatalog = orgRepo
	a.Verifier = auth.NewVerifier(a.Config.Auth.JWTSecret)
	a.Permissions = service.NewPermissionService(caps, orgRepo)
	a.Quota = service.NewStorageQuotaService(objectRepo, orgRepo, a.Metrics)
	a.Folders = service.NewFolderService(folderRepo, objectRepo, a.Permissions)
	a.Files = service.NewFileService(objectRepo, folderRepo, store, a.Quota, a.Permissions)
	a.Trash = service.NewTrashService(objectRepo, folderRepo, orgRepo, store, a.Permissions, a.Metrics)
	a.Export = service.NewExportService(folderRepo, objectRepo, store, a.Permissions, a.Metrics, service.ExportConfig{
		Concurrency:     a.Config.Export.Concurrency,
		IndividualDelay: a.Config.Export.IndividualDelay,
	})
	a.Batch = service.NewBatchCoordinator(a.Trash, a.Export, objectRepo, a.Permissions)
	a.Sessions = service.NewSessionRegistry(a.Config.Server.SessionIdleTTL)
}

// Close освобождает соединения
func (a *App) Close() {
	if err := a.Conn.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing capability connection")
	}
	if err := a.DB.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing database connection")
	}
}
