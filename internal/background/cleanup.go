package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredDeviceDeleter removes trusted device rows past their expiry
type ExpiredDeviceDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// DeviceReaper periodically removes expired trusted devices. Expired rows are
// already inert for the gate; the reaper just keeps the table from growing.
type DeviceReaper struct {
	devices  ExpiredDeviceDeleter
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewDeviceReaper creates a new device reaper
func NewDeviceReaper(devices ExpiredDeviceDeleter, logger *slog.Logger, interval time.Duration) *DeviceReaper {
	return &DeviceReaper{
		devices:  devices,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic reap loop
func (dr *DeviceReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(dr.interval)
	defer ticker.Stop()

	// Run immediately on startup
	dr.reap(ctx)

	for {
		select {
		case <-ticker.C:
			dr.reap(ctx)
		case <-dr.stopCh:
			dr.logger.Info("device reaper stopped")
			return
		case <-ctx.Done():
			dr.logger.Info("device reaper context cancelled")
			return
		}
	}
}

func (dr *DeviceReaper) reap(ctx context.Context) {
	reapCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := dr.devices.DeleteExpired(reapCtx)
	if err != nil {
		dr.logger.Error("failed to delete expired devices", slog.Any("error", err))
		return
	}

	if deleted > 0 {
		dr.logger.Info("expired devices removed", slog.Int64("rows_deleted", deleted))
	}
}

// Stop signals the reaper to stop
func (dr *DeviceReaper) Stop() {
	close(dr.stopCh)
}
