package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/alerts"
	"github.com/Krish-Depani/ghost-ai-server/chat"
	"github.com/Krish-Depani/ghost-ai-server/config"
	"github.com/Krish-Depani/ghost-ai-server/controllers"
	"github.com/Krish-Depani/ghost-ai-server/database"
	"github.com/Krish-Depani/ghost-ai-server/enrich"
	"github.com/Krish-Depani/ghost-ai-server/export"
	"github.com/Krish-Depani/ghost-ai-server/logger"
	"github.com/Krish-Depani/ghost-ai-server/mailer"
	"github.com/Krish-Depani/ghost-ai-server/otp"
	"github.com/Krish-Depani/ghost-ai-server/routes"
	"github.com/Krish-Depani/ghost-ai-server/session"
	"github.com/Krish-Depani/ghost-ai-server/sources"
	"github.com/Krish-Depani/ghost-ai-server/store"
	"github.com/Krish-Depani/ghost-ai-server/utils"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		l := logger.New("info", "json")
		l.Fatal().Err(err).Msg("Error loading configuration")
	}

	log := logger.New(env.LogLevel, env.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(env, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}

	redisClient, err := database.GetRedisClient(env.RedisAddr, env.RedisPass, env.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to redis")
	}

	st := store.NewGormStore(db)
	signer := utils.NewTokenSigner(env.StateSecret)

	var m mailer.Mailer = mailer.NewLogMailer(log)
	if env.MailEnabled() {
		m = mailer.NewSMTPMailer(env.SMTPHost, env.SMTPPort, env.EmailAddress, env.EmailPass)
	}

	alerter := alerts.Multi{alerts.NewEmailAlerter(m)}
	if env.NATSURL != "" {
		nc, err := alerts.ConnectNATS(env.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, new-device events will only be emailed")
		} else {
			defer nc.Drain()
			alerter = append(alerter, alerts.NewNATSAlerter(nc, env.NATSAlertSubject))
		}
	}

	registrar := session.NewRegistrar(utils.NewIPGeolocator(env.GeoURL, env.GeoTimeout), st, alerter, log)

	httpClient := sources.NewHTTPClient()
	wiki := sources.NewWikipedia("", httpClient)
	pipeline := enrich.NewPipeline(sources.NewGoogleNews("", httpClient), wiki, sources.NewDuckDuckGo("", httpClient), log)
	guard := enrich.NewGuard(wiki, log)

	var completer chat.Completer
	if env.LLMAPIKey != "" {
		completer = chat.NewOpenAICompleter(env.LLMAPIKey, env.LLMBaseURL, env.LLMModel)
	} else {
		log.Warn().Msg("GROQ_API_KEY not set, chat replies are disabled")
	}
	relay := chat.NewRelay(completer, pipeline, guard, st, log)

	exporter := newExporter(ctx, env, log)

	authController := controllers.NewAuthController(st, redisClient, otp.NewRedisStore(redisClient.Client(), env.OTPTTL), m, registrar, env.SessionTTL, env.SecureCookie, log)
	var googleCfg *oauth2.Config
	if env.GoogleEnabled() {
		googleCfg = controllers.NewGoogleConfig(env.GoogleClientID, env.GoogleClientSecret, env.GoogleRedirectURL)
	} else {
		log.Warn().Msg("Google OAuth credentials not set, Google sign-in is disabled")
	}
	oauthController := controllers.NewOAuthController(googleCfg, "", st, signer, authController, env.PublicURL, log)
	var exp export.Exporter
	if exporter != nil {
		exp = exporter
	}
	userController := controllers.NewUserController(st, redisClient, m, signer, exp, env.PublicURL, env.EmailChangeTTL, env.SecureCookie, log)
	chatController := controllers.NewChatController(relay, log)

	gin.SetMode(env.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(log))
	routes.SetupRoutes(r, routes.Controllers{
		Auth:  authController,
		OAuth: oauthController,
		User:  userController,
		Chat:  chatController,
	})

	srv := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newExporter(ctx context.Context, env *config.Env, log zerolog.Logger) *export.S3Exporter {
	if env.S3Endpoint == "" && env.S3AccessKey == "" {
		log.Warn().Msg("S3 not configured, chat export is disabled")
		return nil
	}

	exporter, err := export.NewS3Exporter(ctx, export.S3Config{
		Endpoint:  env.S3Endpoint,
		Region:    env.S3Region,
		Bucket:    env.S3Bucket,
		AccessKey: env.S3AccessKey,
		SecretKey: env.S3SecretKey,
		LinkTTL:   env.S3PresignTTL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("S3 unavailable, chat export is disabled")
		return nil
	}
	return exporter
}
