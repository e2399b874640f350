package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"photoapi/docs"
	"photoapi/internal/config"
	"photoapi/internal/database"
	"photoapi/internal/database/migration"
	"photoapi/internal/field"
	handlers "photoapi/internal/http/handler"
	"photoapi/internal/http/middleware"
	"photoapi/internal/imaging"
	"photoapi/internal/otel"
	"photoapi/internal/repository/postgres"
	"photoapi/internal/service"
	"photoapi/internal/storage"
)

// @title Photo API
// @version 1.0
// @BasePath /
func main() {
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	setupLogging(loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to initialize storage")
	}

	transformer, err := imaging.Instrument(imaging.NewResizer(), prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register imaging metrics")
	}

	images, err := photoImageField(cfg.Photo, store, transformer)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid photo field configuration")
	}

	metadata := field.DocumentField{Column: "metadata"}
	if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host, images.DocumentField, metadata); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	photoRepo := postgres.NewPhotoPostgres(db)
	photoSvc := service.NewPhotoService(photoRepo, images)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    32 << 20,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(loc))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handlers.RegisterRoutes(app, db, photoSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", ":"+cfg.Port).
		Str("storage_backend", cfg.Storage.Backend).
		Strs("variants", images.Keys()).
		Msg("server_starting")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}

// setupLogging makes the global zerolog logger write JSON lines with
// timestamps in loc, and the fallback for log.Ctx.
func setupLogging(loc *time.Location) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "ts"
	zerolog.TimestampFunc = func() time.Time { return time.Now().In(loc) }
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

// photoImageField declares the photos.image column from configuration.
func photoImageField(cfg config.PhotoConfig, store storage.Storage, tr imaging.Transformer) (*field.ImageField, error) {
	specs, err := config.ParseThumbnails(cfg.Thumbnails)
	if err != nil {
		return nil, err
	}
	thumbnails := make(map[string]imaging.Spec, len(specs))
	for key, spec := range specs {
		thumbnails[key] = imaging.Spec(spec)
	}
	return field.NewImageField(field.ImageConfig{
		Column:      "image",
		UploadTo:    cfg.UploadTo,
		Thumbnails:  thumbnails,
		Storage:     store,
		Transformer: tr,
	})
}
