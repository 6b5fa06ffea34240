package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/facturador-sunat/internal/application/auth"
	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/application/usecase"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/lock"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/postgres"
	s3store "github.com/jhoicas/facturador-sunat/internal/infrastructure/storage/s3"
	infrasunat "github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
	httpRouter "github.com/jhoicas/facturador-sunat/internal/interfaces/http"
	"github.com/jhoicas/facturador-sunat/pkg/config"
	"github.com/jhoicas/facturador-sunat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	events := log.Events()
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sunat_env", cfg.SUNAT.Env).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}

	userRepo := postgres.NewUserRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	documentRepo := postgres.NewDocumentRepository(pool)
	responseRepo := postgres.NewSunatResponseRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Lock por comprobante: Redis si está configurado (varias réplicas), en memoria si no.
	var locker billing.DocumentLocker = lock.NewMemoryLocker()
	if cfg.Redis.Enabled() {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.Worker.LockTTL())
		log.Info().Str("address", cfg.Redis.Address).Msg("lock de comprobantes en Redis")
	}

	// Archivado opcional de XML firmado y CDR en S3.
	var archiver billing.ArtifactArchiver
	if cfg.Storage.Enabled() {
		a, err := s3store.NewArchiver(ctx, cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente S3")
		}
		archiver = a
		log.Info().Str("bucket", cfg.Storage.Bucket).Msg("archivado de artefactos en S3")
	}

	xmlBuilder := infrasunat.NewXMLBuilderService(cfg.SUNAT.DefaultCurrency)
	certResolver := signer.NewCertificateResolver(cfg.SUNAT.CertDirs)
	signerSvc := signer.NewDigitalSignatureService(certResolver, events)
	submitter := infrasunat.NewHTTPSubmitter(cfg.SUNAT.Endpoint(), cfg.SUNAT.Timeout())

	// SunatOrchestrator: validación → XML UBL + hash → firma XAdES → envío → estado
	orchestrator := billing.NewSunatOrchestrator(
		documentRepo, companyRepo, customerRepo, productRepo, responseRepo, txRunner,
		xmlBuilder, signerSvc, submitter, locker, archiver, events,
		billing.PipelineConfig{
			Env:                     cfg.SUNAT.Env,
			AllowInsecureSimulation: cfg.SUNAT.AllowInsecureSimulation,
			SubmitTimeout:           cfg.SUNAT.Timeout(),
		},
	)
	if cfg.SUNAT.AllowInsecureSimulation {
		log.Warn().Msg("SUNAT_ALLOW_INSECURE_SIMULATION activo: los fallos TLS se registran como envío simulado")
	}

	dispatcher := billing.NewDispatcher(orchestrator, events, cfg.Worker.Concurrency, cfg.Worker.QueueSize, cfg.Worker.LockTTL())
	dispatcher.Start()

	documentUC := billing.NewDocumentUseCase(
		documentRepo, companyRepo, customerRepo, productRepo, responseRepo,
		txRunner, dispatcher, cfg.SUNAT.DefaultCurrency,
	).WithLocker(locker)
	customerUC := billing.NewCustomerUseCase(customerRepo)
	companyUC := usecase.NewCompanyUseCase(companyRepo, certResolver)
	productUC := usecase.NewProductUseCase(productRepo)
	authUC := auth.NewAuthUseCase(userRepo, companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Auth:      authUC,
		Companies: companyUC,
		Products:  productUC,
		Documents: documentUC,
		Customers: customerUC,
		JWTSecret: cfg.JWT.Secret,
		Log:       events,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("envíos pendientes sin terminar al apagar")
	}

	log.Info().Msg("aplicación detenida")
}
