// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrNoConfigFile is returned by Watcher.Start when the manager was loaded
// without a config file.
var ErrNoConfigFile = errors.New("config: no config file to watch")

// Watcher reloads a Manager whenever its config file changes. Rapid
// successive writes are coalesced into one reload.
type Watcher struct {
	manager *Manager
	watcher *fsnotify.Watcher

	// debounceDelay is the time to wait before reloading after a change
	debounceDelay time.Duration

	logger zerolog.Logger

	// mu protects the debounce timer
	mu            sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for the file source of manager.
func NewWatcher(manager *Manager, logger zerolog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		manager:       manager,
		watcher:       watcher,
		debounceDelay: 100 * time.Millisecond,
		logger:        logger.With().Str("component", "config.watcher").Logger(),
	}, nil
}

// Start watches the config file until ctx is canceled. Run it in its own
// goroutine:
//
//	go watcher.Start(ctx)
func (w *Watcher) Start(ctx context.Context) error {
	path := w.manager.FilePath()
	if path == "" {
		return ErrNoConfigFile
	}

	// fsnotify loses track of files replaced by editors, so watch the directory.
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error().
			Err(err).
			Str("dir", dir).
			Msg("Failed to watch config directory")
		return err
	}

	w.logger.Info().
		Str("file", path).
		Dur("debounce", w.debounceDelay).
		Msg("Started watching config file")

	defer func() {
		w.stopTimer()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
		w.logger.Info().Msg("Stopped watching config file")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.logger.Debug().
					Str("op", ev.Op.String()).
					Str("file", ev.Name).
					Msg("Detected config file change")
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// scheduleReload (re)arms the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		if err := w.manager.Reload(); err != nil {
			w.logger.Error().Err(err).Msg("Failed to reload config")
			return
		}
		w.logger.Info().Msg("Config reloaded")
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
