package core

// scheduler.go provides background job scheduling for maintenance tasks.
//
// Each run:
//  1. Removes generated PDFs older than the retention period from the output dir
//  2. Drops expired login sessions
//
// The scheduler is long-running and stops with its context. Failures are
// logged and never stop the application.

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SessionPurger drops sessions that expired before now.
type SessionPurger interface {
	PurgeExpired(now time.Time) int
}

// MaintenanceConfig holds configuration for the maintenance scheduler.
// Zero values fall back to the defaults below.
type MaintenanceConfig struct {
	ReportRetention time.Duration // Age after which a generated PDF is removed (default: 24h)
	CheckInterval   time.Duration // How often to run (default: 1h)
	Sessions        SessionPurger // Optional
}

const (
	DefaultReportRetention = 24 * time.Hour
	DefaultCleanupInterval = time.Hour
)

// StartMaintenanceScheduler runs maintenance immediately, then every
// CheckInterval, until ctx is cancelled.
func (s *Service) StartMaintenanceScheduler(ctx context.Context, cfg MaintenanceConfig) {
	if cfg.ReportRetention <= 0 {
		cfg.ReportRetention = DefaultReportRetention
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCleanupInterval
	}

	slog.Info("maintenance scheduler started",
		"report_retention", cfg.ReportRetention.String(),
		"interval", cfg.CheckInterval.String(),
	)

	s.runMaintenance(cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.runMaintenance(cfg)
		}
	}
}

// runMaintenance performs one cleanup cycle.
func (s *Service) runMaintenance(cfg MaintenanceConfig) {
	start := time.Now()

	removed, err := s.PurgeReports(start.Add(-cfg.ReportRetention))
	if err != nil {
		slog.Error("report purge failed", "error", err)
	} else if removed > 0 {
		slog.Info("purged old reports", "files_removed", removed)
	}

	if cfg.Sessions != nil {
		if n := cfg.Sessions.PurgeExpired(start); n > 0 {
			slog.Info("purged expired sessions", "sessions_removed", n)
		}
	}

	slog.Debug("maintenance completed", "duration_ms", time.Since(start).Milliseconds())
}

// PurgeReports removes generated PDFs last modified before cutoff. Files of
// any other kind in the output dir are left alone.
func (s *Service) PurgeReports(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.outputDir, e.Name())); err != nil {
			slog.Warn("failed to remove report", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
