package assets

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"

	"storyreel/internal/logging"
	"storyreel/internal/services"
)

// AwaitClips blocks until every shot clip for a story exists in dir, the
// context is canceled, or its deadline passes. The external generators write
// clips over minutes, so callers use this behind a --wait flag instead of
// polling by hand.
//
// Clip files are assumed to appear atomically (rename into place); a clip is
// counted as soon as its name matches.
func AwaitClips(ctx context.Context, dir string, shotCount int, logger *slog.Logger) error {
	logger = logging.NewComponentLogger(logger, "assets")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure clips directory %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// Initial scan after the watch is established, so clips written between
	// MkdirAll and Add are not missed.
	lastReported := -1
	for {
		present, err := PresentShots(dir, shotCount)
		if err != nil {
			return err
		}
		if len(present) == shotCount {
			logger.Info("all clips present", logging.String("dir", dir), logging.Int("clips", shotCount))
			return nil
		}
		if len(present) != lastReported {
			logger.Info("waiting for clips",
				logging.String("dir", dir),
				logging.Int("present", len(present)),
				logging.Int("expected", shotCount))
			lastReported = len(present)
		}

		select {
		case <-ctx.Done():
			return services.Wrap(services.ErrMissingAsset, "assets", "await clips",
				fmt.Sprintf("Gave up waiting for clips in %s (%d/%d present)", dir, len(present), shotCount),
				ctx.Err())
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed while waiting on %s", dir)
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed while waiting on %s", dir)
			}
			logger.Warn("watcher error", logging.Error(err))
		}
	}
}
