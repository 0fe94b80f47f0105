package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Run restores the snapshot, starts every component, and blocks until a
// shutdown signal arrives. Shutdown order is the reverse of startup, with
// a final snapshot flush before the process exits.
func (a *App) Run(ctx context.Context) error {
	if err := a.persister.Restore(); err != nil {
		// A corrupt snapshot must not keep the bot offline.
		a.logger.Warn("snapshot restore failed, starting empty", "error", err)
	}

	if err := a.scheduler.Start(); err != nil {
		return err
	}

	if a.admin != nil {
		if err := a.admin.Start(ctx); err != nil {
			return err
		}
	}

	if err := a.gateway.Start(ctx); err != nil {
		return err
	}

	a.logger.Info("porter running",
		"channels", a.store.Len(),
		"admin", a.cfg.Admin.Enabled,
		"archive", a.cfg.Archive.Enabled,
	)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-signalCtx.Done()

	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops components in reverse startup order and flushes the
// conversation snapshot.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := a.gateway.Stop(ctx); err != nil {
		a.logger.Error("gateway stop failed", "error", err)
	}
	if a.admin != nil {
		if err := a.admin.Stop(ctx); err != nil {
			a.logger.Error("admin stop failed", "error", err)
		}
	}
	if err := a.scheduler.Stop(ctx); err != nil {
		a.logger.Error("scheduler stop failed", "error", err)
	}

	// Final snapshot so in-flight conversations survive the restart.
	if err := a.persister.Flush(); err != nil {
		a.metrics.SnapshotFailures.Inc()
		a.logger.Error("final snapshot failed", "error", err)
	}

	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Error("archive close failed", "error", err)
		}
	}

	if err := a.telemetryShutdown(ctx); err != nil {
		a.logger.Error("telemetry shutdown failed", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
