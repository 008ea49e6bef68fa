package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/config"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/db"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/es"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/hash"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/httpserver"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/logging"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/mailer"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/mykafka"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/repo"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/service"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/service/search"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/sheets"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/tokens"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/validation"
)

const version = "1.0.0"

func main() {
	config.LoadDotEnv(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "chiefai-insights-api")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	codec, err := tokens.NewCodec(tokens.Config{
		Secret:     cfg.SecretKey,
		Algorithm:  cfg.Algorithm,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Issuer:     "chiefai-insights",
	})
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
	} else {
		log.Println("kafka disabled: KAFKA_BROKERS is empty")
	}

	validator := validation.New()
	store := repo.New(gdb)

	authSvc, err := service.NewAuthService(service.Deps{
		Users:     store,
		Tokens:    store,
		Codec:     codec,
		Hasher:    hash.New(cfg.BcryptCost),
		Validator: validator,
		Events:    producer,
		UserTopic: cfg.KafkaUserTopic,
	})
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	sinks := []intake.Sink{}
	var searcher httpserver.SubmissionSearcher

	if cfg.SheetsEnabled() {
		appender, err := sheets.NewAppender(context.Background(), []byte(cfg.GoogleServiceAccountJSON), cfg.GoogleSheetID, cfg.GoogleSheetRange)
		if err != nil {
			log.Printf("google sheets disabled: %v", err)
		} else {
			sinks = append(sinks, appender)
		}
	}
	if cfg.MailEnabled() {
		m, err := mailer.New(mailer.Config{
			Server:   cfg.MailServer,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			log.Printf("mail disabled: %v", err)
		} else {
			sinks = append(sinks, &mailer.IntakeNotifier{Mailer: m, AdminEmail: cfg.AdminEmail})
		}
	}
	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := es.NewClient(esCtx, es.Config{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
		esCancel()
		if err != nil {
			log.Printf("elasticsearch disabled: %v", err)
		} else {
			sinks = append(sinks, &es.Indexer{Client: client, Index: cfg.ESSubmissionsIndex})
			searcher = &search.Searcher{Client: client, Index: cfg.ESSubmissionsIndex}
		}
	}
	if producer != nil {
		sinks = append(sinks, &mykafka.TopicSink{Producer: producer, Topic: cfg.KafkaIntakeTopic})
	}

	intakeSvc := intake.NewService(validator, 30*time.Second, sinks...)
	logger.Info("intake_sinks", "sinks", intakeSvc.Sinks())

	e := httpserver.New(httpserver.Options{
		Logger:      logger,
		Validator:   validator,
		CORSOrigins: cfg.CORSOrigins,
	})
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:   &httpserver.AuthHTTP{Svc: authSvc},
		AdminHandler:  &httpserver.AdminHTTP{Svc: authSvc, Search: searcher},
		IntakeHandler: &httpserver.IntakeHTTP{Svc: intakeSvc},
		HealthHandler: &httpserver.HealthHTTP{
			Version: version,
			Ping:    func(ctx context.Context) error { return db.Ping(ctx, gdb) },
		},
		Authorizer:         authSvc,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
	})

	bgCtx, stopBackground := context.WithCancel(context.Background())
	go store.RunPurger(bgCtx, cfg.RefreshPurgeInterval, logger.With("job", "refresh_purge"))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("api listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	stopBackground()
	intakeSvc.Wait()

	if err := producer.Close(); err != nil {
		log.Printf("kafka close: %v", err)
	}
	if err := db.Close(gdb); err != nil {
		log.Printf("db close: %v", err)
	}

	log.Println("api stopped")
}
