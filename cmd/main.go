package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/misterplus/btdex/internal/config"
	"github.com/misterplus/btdex/internal/contract"
	"github.com/misterplus/btdex/internal/handlers/httphandlers"
	"github.com/misterplus/btdex/internal/lib"
	"github.com/misterplus/btdex/internal/repositories/ledger"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		panic(err)
	}
	cfg.SetDefaults()

	log, err := lib.NewLogger(cfg.Log.LevelApp, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		panic(err)
	}

	trackerLog, err := lib.NewLogger(cfg.Log.LevelTracker, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		panic(err)
	}

	httpLog, err := lib.NewLogger(cfg.Log.LevelHTTP, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		panic(err)
	}

	defer func() {
		_ = log.Sync()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("Received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("Received signal: %s. Forcing exit...", s)
		os.Exit(1)
	}()

	operator, err := cfg.OperatorAccount()
	if err != nil {
		log.Errorf("invalid operator account: %s", err)
		return
	}
	feeAccount, err := cfg.FeeAccount()
	if err != nil {
		log.Errorf("invalid fee account: %s", err)
		return
	}
	roster, err := cfg.MediatorRoster()
	if err != nil {
		log.Errorf("invalid mediator roster: %s", err)
		return
	}

	templates, err := contract.LoadTemplates(cfg.Contracts.ArtifactPath)
	if err != nil {
		log.Errorf("cannot load contract artifact: %s", err)
		return
	}
	log.Infof("loaded %d contract templates from %s", len(templates), cfg.Contracts.ArtifactPath)

	client := ledger.NewNodeClient(cfg.Ledger.NodeAddress, cfg.Ledger.RequestTimeout, cfg.Ledger.MaxReconnects, log.Named("NODE"))
	registry := contract.NewRegistry(client, templates, trackerLog.Named("REGISTRY"))
	mediators := contract.NewMediatorSelector(roster)
	tracker := contract.NewTracker(client, registry, mediators, operator, int32(cfg.Contracts.MinVersion), cfg.Ledger.SyncInterval, trackerLog.Named("TRACKER"))

	handl := httphandlers.NewHTTPHandler(registry, tracker, mediators, client, feeAccount, &cfg, httpLog)
	server := &http.Server{
		Addr:    cfg.Web.Address,
		Handler: handl,
	}

	trackerTask := lib.NewTask(tracker)
	trackerTask.Start(ctx)

	g, grpCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("http server is listening: %s", cfg.Web.Address)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		select {
		case <-grpCtx.Done():
		case <-trackerTask.Done():
			if err := trackerTask.Err(); err != nil {
				log.Errorf("contract tracker exited: %s", err)
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	<-trackerTask.Stop()

	log.Infof("App exited due to %s", err)
}
