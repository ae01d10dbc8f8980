package contextfile

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/nkall/periscope/internal/logging"
)

// Watch runs a local fsnotify watcher over the directories containing the
// tracked context files, marking files stale on write. It stands in for the
// gateway's file-update channel when the files live on the client machine.
// Blocks until ctx is done; watcher failures are logged, never propagated.
func Watch(ctx context.Context, tracker *Tracker, paths []string) error {
	log := logging.New("contextfile.watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs := make(map[string]bool)
	for _, p := range paths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			log.Warn("watch_add_failed", map[string]interface{}{"dir": dir}, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if tracker.Tracked(event.Name) {
					tracker.MarkModified(event.Name)
					log.Debug("marked_stale", map[string]interface{}{"path": event.Name})
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch_error", nil, err)
		}
	}
}
