package utils

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// CleanupStaleFiles removes regular files in dir older than maxAge and returns
// how many were removed. A missing dir is not an error.
func CleanupStaleFiles(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// StartCleanupJob sweeps leftover multipart temp files once at start and then
// every interval until ctx is cancelled.
func StartCleanupJob(ctx context.Context, dir string, maxAge, interval time.Duration, log *logrus.Entry) {
	sweep := func() {
		n, err := CleanupStaleFiles(dir, maxAge, time.Now())
		if err != nil {
			log.WithError(err).Warn("temp upload cleanup failed")
			return
		}
		if n > 0 {
			log.WithField("removed", n).Info("removed stale temp uploads")
		}
	}
	sweep()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()
	log.WithField("interval", interval.String()).Info("temp upload cleanup job started")
}
