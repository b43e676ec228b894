package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/api/v1/handler"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/config"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/middleware"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/pubsub"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Open DB connection pool
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DB pool")
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize Pub/Sub publisher for billing audit events
	pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
		return nil, nil, err
	}

	// 5. Initialize repositories & services & handlers
	accountRepo := repository.NewAccountRepo(pool)
	boardRepo := repository.NewBoardRepo(pool)
	cardRepo := repository.NewCardRepo(pool)
	webhookEventRepo := repository.NewWebhookEventRepo(pool)

	blobStore := service.NewS3BlobStore(s3Client, cfg.S3Bucket)
	accountSvc := service.NewAccountService(accountRepo, logger)
	quotaSvc := service.NewQuotaService(accountRepo, logger)
	reservationSvc := service.NewReservationService(accountRepo, logger)
	boardSvc := service.NewBoardService(boardRepo, quotaSvc, logger)
	cardSvc := service.NewCardService(cardRepo, accountRepo, quotaSvc, blobStore, logger)
	uploadSvc := service.NewUploadService(reservationSvc, quotaSvc, cardSvc, blobStore, cfg.UploadPresignExpiry, logger)
	reconciliationSvc := service.NewReconciliationService(accountRepo, boardRepo, cardRepo, logger)
	stripeSvc := service.NewStripeService(cfg, accountRepo, webhookEventRepo, pubSubPublisher, logger)

	accountHandler := handler.NewAccountHandler(accountSvc, quotaSvc, validate)
	boardHandler := handler.NewBoardHandler(boardSvc, validate)
	cardHandler := handler.NewCardHandler(cardSvc, validate)
	uploadHandler := handler.NewUploadHandler(uploadSvc, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, validate, logger)
	adminHandler := handler.NewAdminHandler(reconciliationSvc, reservationSvc, cfg.ReconcileStalenessAge, cfg.ReservationCleanupAge, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	cronMiddleware := middleware.CronAuthMiddleware(cfg.CronSecret, logger)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	accountHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	boardHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	cardHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	uploadHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	adminHandler.RegisterRoutes(apiV1Mux, cronMiddleware)

	// Stripe authenticates with its signature header, so the webhook route
	// carries no user auth.
	apiV1Mux.HandleFunc("/webhooks/stripe", stripeSvc.HandleWebhook)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
