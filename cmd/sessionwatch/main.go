// sessionwatch logs in against the configured backend, keeps the session
// scheduler running, and reports warnings and timeouts. It doubles as a
// smoke harness for the auth stack: metrics are exposed on a local port.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/SushanParlapally/trawells-authcore/internal/auth"
	"github.com/SushanParlapally/trawells-authcore/internal/config"
	"github.com/SushanParlapally/trawells-authcore/internal/credstore"
	"github.com/SushanParlapally/trawells-authcore/internal/obs"
	"github.com/SushanParlapally/trawells-authcore/internal/session"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	metricsAddr := flag.String("metrics", ":9091", "metrics listen address")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	obs.SetLogger(logger)
	obs.Init()

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("load config", zap.Error(err))
		}
	}

	store, db, err := openStore(cfg)
	if err != nil {
		logger.Fatal("open credential store", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	svc, err := auth.New(store,
		auth.WithLoginURL(cfg.Auth.LoginURL),
		auth.WithLoginRate(cfg.Auth.LoginsPerMinute, cfg.Auth.LoginBurst),
		auth.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("init auth service", zap.Error(err))
	}

	sched, err := session.New(svc,
		session.WithCheckInterval(cfg.CheckInterval()),
		session.WithWarningThreshold(cfg.Session.WarningThresholdMinutes),
		session.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("init scheduler", zap.Error(err))
	}
	sched.OnWarning(func(minutesLeft int) {
		logger.Warn("session expires soon", zap.Int("minutes_left", minutesLeft))
	})
	sched.OnTimeout(func() {
		logger.Warn("session timed out, credentials cleared")
	})

	// Resume a persisted session when the stored pair is still valid,
	// otherwise authenticate fresh from the environment.
	if svc.ValidateAndCleanState() {
		logger.Info("resuming persisted session", zap.String("role", svc.Role()))
	} else if email, password := os.Getenv("TRAWELLS_EMAIL"), os.Getenv("TRAWELLS_PASSWORD"); email != "" {
		profile, _, err := svc.Login(context.Background(), email, password)
		if err != nil {
			logger.Fatal("login", zap.Error(err))
		}
		logger.Info("logged in",
			zap.Int64("user_id", profile.UserID),
			zap.String("role", profile.RoleName),
		)
	} else {
		logger.Fatal("no valid session and TRAWELLS_EMAIL/TRAWELLS_PASSWORD unset")
	}
	sched.Start()

	srv := &http.Server{
		Addr:              *metricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics listen", zap.Error(err))
		}
	}()
	logger.Info("sessionwatch running",
		zap.String("version", version),
		zap.String("metrics", *metricsAddr),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	sched.End()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("stopped")
}

// openStore builds the credential store from config: durable SQLite when a
// storage path is set, in-memory otherwise, with optional obfuscation.
func openStore(cfg *config.Config) (*credstore.Store, *sql.DB, error) {
	var opts []credstore.Option
	if key := cfg.Storage.CipherKey; key != "" {
		cipher, err := credstore.NewCipher([]byte(key))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, credstore.WithCipher(cipher))
	}

	if cfg.Storage.Path == "" {
		return credstore.New(credstore.NewMemoryBackend(), opts...), nil, nil
	}

	db, err := sql.Open("sqlite", cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	backend, err := credstore.NewSQLBackend(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return credstore.New(backend, opts...), db, nil
}
