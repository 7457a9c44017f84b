package orchestrator

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// seedWatcher is a supplemental feature (SPEC_FULL.md §4.6, "Seed
// directory watch"): it notices files dropped into the seed directory
// after the session has already started and feeds them to the
// orchestrator as if they had been present at startup.
type seedWatcher struct {
	w      *fsnotify.Watcher
	events chan string
	log    zerolog.Logger
}

func newSeedWatcher(dir string, log zerolog.Logger) (*seedWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	sw := &seedWatcher{w: w, events: make(chan string, 64), log: log}
	go sw.loop()
	return sw, nil
}

func (sw *seedWatcher) loop() {
	for {
		select {
		case ev, ok := <-sw.w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				select {
				case sw.events <- ev.Name:
				default:
					sw.log.Warn().Str("path", ev.Name).Msg("seed watch event dropped, channel full")
				}
			}
		case err, ok := <-sw.w.Errors:
			if !ok {
				return
			}
			sw.log.Warn().Err(err).Msg("seed directory watch error")
		}
	}
}

// Close stops the underlying watcher, which in turn closes its Events
// channel and lets loop() exit; sw.events itself is never closed here
// since loop() may still be mid-send on it.
func (sw *seedWatcher) Close() error {
	return sw.w.Close()
}
