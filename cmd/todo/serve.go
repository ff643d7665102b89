package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	log "github.com/freundallein/todo/backend/chassis/logging"

	"github.com/freundallein/todo/backend/api"
	"github.com/freundallein/todo/backend/chassis/config"
	"github.com/freundallein/todo/backend/chassis/metrics"
	"github.com/freundallein/todo/backend/chassis/monkey"
	"github.com/freundallein/todo/backend/chassis/queue"
	"github.com/freundallein/todo/backend/chassis/storage"
	"github.com/freundallein/todo/backend/notifier"
)

func newServeCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return serve(appCfg)
		},
	}
	cmd.Flags().StringVar(&f.host, "host", "0.0.0.0", "interface to bind")
	cmd.Flags().IntVar(&f.port, "port", 8080, "port to listen on")
	return cmd
}

func initEvents(appCfg *config.AppConfig, reg *metrics.Registry) (*notifier.Notifier, error) {
	cfg := &notifier.Config{
		Workers: appCfg.Events.Workers,
		Buffer:  appCfg.Events.Buffer,
		Metrics: reg,
	}
	if appCfg.Events.Queue.URL != "" {
		queueClient, err := queue.InitAWSQueue(queue.Config{
			Name:    appCfg.Events.Queue.Name,
			URL:     appCfg.Events.Queue.URL,
			Retries: appCfg.Events.Queue.Retries,

			//AWS specific
			Region:             appCfg.AWS.Region,
			CredentialsFile:    appCfg.AWS.CredentialsFile,
			CredentialsProfile: appCfg.AWS.CredentialsProfile,
		})
		if err != nil {
			return nil, err
		}
		cfg.Queue = queueClient
	}
	return notifier.New(cfg), nil
}

func serve(appCfg *config.AppConfig) error {
	log.Init("todo", appCfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := storage.Open(ctx, storage.Config{
		Driver:  appCfg.Storage.Driver,
		Path:    appCfg.Storage.Path,
		DSN:     appCfg.Storage.DSN,
		Migrate: appCfg.Storage.Migrate,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_storage_failed",
		}).Error(err)
		return err
	}
	defer repo.Close()

	spec, err := api.LoadSpec(ctx)
	if err != nil {
		return err
	}
	reg := metrics.New()
	events, err := initEvents(appCfg, reg)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_queue_failed",
		}).Error(err)
		return err
	}
	log.WithFields(log.Fields{
		"event":   "init_service",
		"api":     spec.Title(),
		"storage": appCfg.Storage.Driver,
		"version": spec.Version(),
	}).Info("service initialized")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	var group sync.WaitGroup
	events.Run(ctx, &group)

	srv := &http.Server{
		Addr: appCfg.Addr(),
		Handler: api.NewRouter(&api.Config{
			Repository: repo,
			Events:     events,
			Spec:       spec,
			Metrics:    reg,
			Monkey:     monkey.New(appCfg.Chaos.ErrorChance),
		}),
	}
	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", reg.Handler())
	metricsSrv := &http.Server{
		Addr:    appCfg.Metrics.Addr,
		Handler: metricsRouter,
	}

	failed := make(chan error, 2)
	for _, s := range []*http.Server{srv, metricsSrv} {
		go func(s *http.Server) {
			log.WithFields(log.Fields{
				"event": "listen",
				"addr":  s.Addr,
			}).Info("start listening")
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				failed <- err
			}
		}(s)
	}

	var runErr error
	select {
	case <-done:
		log.WithFields(log.Fields{
			"event": "ctx_cancel",
		}).Info("received syscall")
	case runErr = <-failed:
		log.WithFields(log.Fields{
			"event": "listen_failed",
		}).Error(runErr)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Duration(appCfg.Server.ShutdownTimeout)*time.Second)
	defer stop()
	for _, s := range []*http.Server{srv, metricsSrv} {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.WithFields(log.Fields{
				"event": "shutdown_failed",
				"addr":  s.Addr,
			}).Error(err)
		}
	}
	cancel()
	group.Wait()
	return runErr
}
