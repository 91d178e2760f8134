package wordlist

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 300 * time.Millisecond

// Watch reloads the word list at path whenever it changes on disk and passes
// the new words to onChange. Reload failures go to onError and keep the
// previous list in effect. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func([]string), onError func(error)) error {
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if cerr := fsW.Close(); cerr != nil {
			_ = cerr
		}
	}()

	// Editors often replace files by rename, so watch the directory.
	target := filepath.Clean(path)
	if err := fsW.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-fsW.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadDebounce)
			fire = timer.C
		case err, ok := <-fsW.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		case <-fire:
			fire = nil
			words, err := LoadWords(target)
			if err != nil {
				if onError != nil {
					onError(fmt.Errorf("failed to reload word list: %w", err))
				}
				continue
			}
			onChange(words)
		}
	}
}
