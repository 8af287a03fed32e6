package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"axiapac.com/punchsync/app"
	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/infrastructure/logging"
	"axiapac.com/punchsync/security"
	"axiapac.com/punchsync/web/handlers"
	gologging "github.com/op/go-logging"
	"github.com/spf13/pflag"
)

var log = gologging.MustGetLogger("web")

func main() {
	configFile := pflag.StringP("config", "c", config.DefaultConfigFile, "config file")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.InitConfig(ctx, *configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logging.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("start: %v", err)
	}
	defer a.Close()

	var jwtSecret []byte
	if cfg.AuthSecret != "" {
		jwtSecret, err = security.DecodeSecret(cfg.AuthSecret)
		if err != nil {
			log.Fatalf("auth secret: %v", err)
		}
	} else {
		log.Warningf("auth-secret not set, /api is unauthenticated")
	}

	r := handlers.NewRouter(handlers.Services{
		Transport: a.Transport,
		Sessions:  a.Sessions,
		Store:     a.Store,
		Queue:     a.Queue,
		Importer:  a.Importer,
		Scheduler: a.Scheduler,
		Runner:    a.Runner,
		JWTSecret: jwtSecret,
	})

	if cfg.Push.Enabled {
		go func() {
			if err := a.Runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("push runner stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: cfg.ListenAddress, Handler: r}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	log.Infof("listening on %s", cfg.ListenAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}
