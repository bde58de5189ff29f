package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/saba-backend/internal/infra/config"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	"github.com/mkrupp/saba-backend/internal/infra/transport/http"
	"github.com/mkrupp/saba-backend/internal/repo/blob"
	"github.com/mkrupp/saba-backend/internal/repo/record"
	"github.com/mkrupp/saba-backend/internal/repo/user"
	"github.com/mkrupp/saba-backend/internal/svc/authsvc"
	"github.com/mkrupp/saba-backend/internal/svc/documentsvc"
	"github.com/mkrupp/saba-backend/internal/svc/instructionsvc"
	"github.com/mkrupp/saba-backend/internal/svc/metricssvc"
	"github.com/mkrupp/saba-backend/internal/svc/usersvc"
)

const (
	appName = "saba"
	svcName = "sabasvc"
)

var ErrUnknownUserBackend = errors.New("unknown user backend")

type UserConfig struct {
	Backend string                          `env:"BACKEND" default:"file"`
	SQLite  user.SQLiteUserRepositoryConfig `envPrefix:"SQLITE_"`
	File    user.FlatFileUserRepositoryConfig
}

type Config struct {
	config.EnvConfig

	Log             logging.LoggerConfig                `envPrefix:"LOG_"`
	HTTP            http.HTTPTransportConfig            `envPrefix:"HTTP_"`
	User            UserConfig                          `envPrefix:"USER_"`
	Auth            authsvc.AuthConfig                  `envPrefix:"AUTH_"`
	Instruction     instructionsvc.InstructionConfig    `envPrefix:"INSTRUCTION_"`
	InstructionHTTP instructionsvc.HTTPTransportConfig  `envPrefix:"INSTRUCTION_"`
	Document        documentsvc.DocumentConfig          `envPrefix:"DOCUMENT_"`
	DocumentHTTP    documentsvc.HTTPTransportConfig     `envPrefix:"DOCUMENT_"`
	Blob            blob.FileSystemBlobRepositoryConfig `envPrefix:"DOCUMENT_"`
	GenAI           documentsvc.GenAIConfig             `envPrefix:"GEMINI_"`
	Metrics         metricssvc.MetricsConfig            `envPrefix:"METRICS_"`
	MetricsHTTP     metricssvc.HTTPTransportConfig      `envPrefix:"METRICS_"`

	Data record.FileStoreConfig
}

func main() {
	var (
		cfg Config

		configPrefix = strings.ToUpper(appName)
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.sabasvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		} else {
			log.InfoContext(ctx, "shutdown")
		}
	}()

	repoFactory, err := userRepositoryFactory(cfg)
	if err != nil {
		return err
	}

	users, err := usersvc.NewDirectory(repoFactory)
	if err != nil {
		return fmt.Errorf("new user directory: %w", err)
	}

	metricsSvc := metricssvc.NewFileMetricsService(cfg.Data, cfg.Metrics)

	authSvc, err := authsvc.NewAuthService(users, metricsSvc, cfg.Auth)
	if err != nil {
		return fmt.Errorf("new auth service: %w", err)
	}
	defer authSvc.Close()

	if err := authSvc.ReconcileUserCount(ctx); err != nil {
		log.WarnContext(ctx, "user count not reconciled", "error", err)
	}

	instructionSvc := instructionsvc.NewFileInstructionService(cfg.Data, cfg.Instruction)

	generator, err := documentsvc.NewGenAIGenerator(ctx, cfg.GenAI)
	if errors.Is(err, documentsvc.ErrNoAPIKey) {
		log.WarnContext(ctx, "no Gemini API key configured, PDF processing disabled")
	} else if err != nil {
		return fmt.Errorf("new generator: %w", err)
	}

	documentSvc, err := documentsvc.NewDocumentService(
		ctx,
		blob.FileSystemBlobRepositoryFactory(cfg.Blob),
		documentsvc.PDFTextExtractor{},
		optionalGenerator(generator),
		cfg.Document,
	)
	if err != nil {
		return fmt.Errorf("new document service: %w", err)
	}

	documentHTTP := documentsvc.NewHTTPTransport(documentSvc, authSvc, cfg.DocumentHTTP)
	instructionHTTP := instructionsvc.NewHTTPTransport(instructionSvc, authSvc, cfg.InstructionHTTP)
	metricsHTTP := metricssvc.NewHTTPTransport(metricsSvc, authSvc, cfg.MetricsHTTP)

	router := http.NewRouter(
		http.Route{Pattern: "/api/auth/", Transport: authsvc.NewHTTPTransport(authSvc)},
		http.Route{Pattern: "/api/system-instruction", Transport: instructionHTTP},
		http.Route{Pattern: "/api/system-instruction/", Transport: instructionHTTP},
		http.Route{Pattern: "/api/pdf-training", Transport: documentHTTP},
		http.Route{Pattern: "/api/pdf-training/", Transport: documentHTTP},
		http.Route{Pattern: "/api/metrics", Transport: metricsHTTP},
		http.Route{Pattern: "/api/metrics/", Transport: metricsHTTP},
	)

	if err := http.ListenAndServe(ctx, router, cfg.HTTP); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

func userRepositoryFactory(cfg Config) (user.RepositoryFactory, error) {
	switch cfg.User.Backend {
	case "file":
		return user.FlatFileUserRepositoryFactory(cfg.Data, cfg.User.File), nil
	case "sqlite":
		return user.SQLiteUserRepositoryFactory(cfg.User.SQLite), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownUserBackend, cfg.User.Backend)
	}
}

// optionalGenerator keeps a nil *GenAIGenerator from becoming a non-nil interface.
func optionalGenerator(generator *documentsvc.GenAIGenerator) documentsvc.Generator {
	if generator == nil {
		return nil
	}

	return generator
}
