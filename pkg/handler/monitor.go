package handler

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Monitorer interface {
	Start()
	Close() error
	Add(path string) error
}

type OnNewFileFunc func(file string) error

type MonitorConfig struct {
	PreScan  bool
	ModDelay time.Duration
}

// Monitor watches intake directories and calls back once per file,
// after the file has been quiet for ModDelay. Downloads are written in
// place, so acting on the first write event would finalize a partial
// file.
type Monitor struct {
	watcher      *fsnotify.Watcher
	wg           sync.WaitGroup
	cb           OnNewFileFunc
	preScan      bool
	modDelay     time.Duration
	paths        *sync.Map
	done         chan struct{}
	readyFiles   chan string
	pendingFiles *sync.Map
}

func NewMonitor(onNewFile OnNewFileFunc, config MonitorConfig) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Monitor{
		watcher:      watcher,
		cb:           onNewFile,
		preScan:      config.PreScan,
		modDelay:     config.ModDelay,
		paths:        new(sync.Map),
		readyFiles:   make(chan string),
		pendingFiles: new(sync.Map),
		done:         make(chan struct{}),
	}, nil
}

func (m *Monitor) Close() (err error) {
	if err := m.watcher.Close(); err != nil {
		logger.Error("cannot close watcher", slog.String("error", err.Error()))
		return fmt.Errorf("cannot close watcher, error: %w", err)
	}
	close(m.done)
	m.wg.Wait()
	return
}

func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.work()
	}()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.finalizeFiles()
	}()
}

func (m *Monitor) work() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				m.enqueue(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (m *Monitor) enqueue(path string) {
	if _, loaded := m.pendingFiles.LoadOrStore(path, struct{}{}); loaded {
		return
	}
	select {
	case <-m.done:
		m.pendingFiles.Delete(path)
	case m.readyFiles <- path:
	}
}

var Since = time.Since

func (m *Monitor) finalizeFiles() {
	for {
		select {
		case <-m.done:
			return
		case path, ok := <-m.readyFiles:
			if !ok {
				return
			}

			info, statErr := os.Stat(path)
			if statErr != nil || info.IsDir() {
				m.pendingFiles.Delete(path)
				continue
			}

			if Since(info.ModTime()) < m.modDelay {
				delay := m.modDelay - Since(info.ModTime())
				time.AfterFunc(delay, func() {
					select {
					case <-m.done:
						m.pendingFiles.Delete(path)
					case m.readyFiles <- path:
					}
				})
				continue
			}

			if err := m.cb(path); err != nil {
				logger.Error("error action on new file", slog.String("path", path), slog.String("err", err.Error()))
			}
			m.pendingFiles.Delete(path)
		}
	}
}

func (m *Monitor) Add(path string) error {
	if _, ok := m.paths.Load(path); ok {
		return nil
	}
	if err := m.watcher.Add(filepath.Clean(path)); err != nil {
		return fmt.Errorf("error watching %s: %w", path, err)
	}
	m.paths.Store(path, struct{}{})
	if m.preScan {
		entries, err := os.ReadDir(path)
		if err != nil {
			return fmt.Errorf("error listing %s: %w", path, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			file := filepath.Join(path, entry.Name())
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.enqueue(file)
			}()
		}
	}
	return nil
}
