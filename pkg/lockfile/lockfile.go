// Package lockfile guards a destination directory against concurrent ingests
// with a heartbeat-refreshed lock file. Locks whose heartbeat stopped for
// longer than the stale timeout are taken over.
package lockfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/plog"
	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

// FileName is the lock file created in a locked directory. The '~' marks it as temporary.
const FileName = ".~pgl-ingest.lock"

const (
	defaultHeartbeat = time.Minute
	acquireAttempts  = 3
	retryDelay       = 100 * time.Millisecond
)

// Content is what a lock file holds.
type Content struct {
	PID        int64     `json:"pid"`
	Hostname   string    `json:"hostname"`
	LastUpdate time.Time `json:"lastUpdate"`
	Nonce      string    `json:"nonce,omitempty"`
	AppID      string    `json:"appID"`
}

// ErrLockActive is returned when another live process holds the lock.
type ErrLockActive struct {
	PID       int64
	Hostname  string
	AppID     string
	TimeSince time.Duration
}

func (e *ErrLockActive) Error() string {
	return fmt.Sprintf("lock is active, held by PID %d on host '%s' (App: %s), last updated %s ago",
		e.PID, e.Hostname, e.AppID, e.TimeSince.Truncate(time.Second))
}

var (
	// ErrLostRace is returned when another process won a stale lock takeover.
	ErrLostRace = errors.Base("lost race during stale lock takeover")
	// ErrCorruptLockFile is returned for a lock file that stays empty or unparsable.
	ErrCorruptLockFile = errors.Base("lock file is corrupt or empty")
)

// Locker creates locks on one filesystem.
type Locker struct {
	fs        afero.Fs
	appID     string
	heartbeat time.Duration
	stale     time.Duration
}

type Option func(*Locker)

// WithHeartbeat sets the refresh interval. A lock is stale after three missed beats.
func WithHeartbeat(d time.Duration) Option {
	return func(lk *Locker) {
		lk.heartbeat = d
		lk.stale = 3 * d
	}
}

func New(fsys afero.Fs, appID string, opts ...Option) *Locker {
	lk := &Locker{fs: fsys, appID: appID, heartbeat: defaultHeartbeat, stale: 3 * defaultHeartbeat}
	for _, opt := range opts {
		opt(lk)
	}
	return lk
}

// Lock is a held lock. Release it exactly once; further calls do nothing.
type Lock struct {
	lk      *Locker
	path    string
	content Content

	mu     sync.Mutex
	held   bool
	cancel context.CancelFunc
	done   chan struct{}
}

func (l *Lock) Path() string { return l.path }

// Acquire takes the lock in dir. ctx bounds the attempt, not the lock's lifetime.
// It returns *ErrLockActive when a live process holds the lock.
func (lk *Locker) Acquire(ctx context.Context, dir string) (*Lock, error) {
	path := filepath.Join(dir, FileName)

	for i := 0; i < acquireAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		content, err := lk.create(path)
		if err == nil {
			return lk.start(path, content), nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, errors.Errorf("failed to access lock file: %w", err)
		}

		existing, err := lk.read(path)
		switch {
		case errors.Is(err, ErrCorruptLockFile):
			plog.Warn("Found corrupt lock file, treating as stale", "path", path, "error", err)
		case errors.Is(err, fs.ErrNotExist):
			// Released between our create and read.
			continue
		case err != nil:
			time.Sleep(retryDelay)
			continue
		default:
			elapsed := time.Since(existing.LastUpdate)
			if elapsed < lk.stale {
				return nil, &ErrLockActive{
					PID:       existing.PID,
					Hostname:  existing.Hostname,
					AppID:     existing.AppID,
					TimeSince: elapsed,
				}
			}
			plog.Warn("Found stale lock, attempting takeover", "pid", existing.PID, "host", existing.Hostname, "age", elapsed)
		}

		content, err = lk.takeover(path)
		if err != nil {
			if errors.Is(err, ErrLostRace) {
				plog.Debug("Lock takeover race lost, retrying acquisition")
			} else {
				plog.Warn("Failed to take over lock, retrying", "error", err)
			}
			time.Sleep(retryDelay)
			continue
		}
		return lk.start(path, content), nil
	}
	return nil, errors.Errorf("failed to acquire lock after %d attempts (contention)", acquireAttempts)
}

// Inspect returns the content of the lock in dir, if any.
func (lk *Locker) Inspect(dir string) (Content, bool, error) {
	c, err := lk.read(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Content{}, false, nil
	}
	if err != nil {
		return Content{}, false, err
	}
	return c, true, nil
}

func (lk *Locker) newContent() (Content, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Content{}, errors.WithStack(err)
	}
	return Content{
		PID:        int64(os.Getpid()),
		Hostname:   hostname,
		LastUpdate: time.Now().UTC(),
		Nonce:      uuid.NewString(),
		AppID:      lk.appID,
	}, nil
}

// create makes the lock file exclusively.
func (lk *Locker) create(path string) (Content, error) {
	f, err := lk.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, util.UserWritableFilePerms)
	if err != nil {
		return Content{}, err
	}
	content, err := lk.newContent()
	if err == nil {
		err = encode(f, content)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		lk.fs.Remove(path)
		return Content{}, err
	}
	return content, nil
}

// takeover overwrites a stale lock atomically and reads it back to see who won.
func (lk *Locker) takeover(path string) (Content, error) {
	content, err := lk.newContent()
	if err != nil {
		return Content{}, err
	}
	if err := lk.writeAtomic(path, content); err != nil {
		return Content{}, err
	}
	back, err := lk.read(path)
	if err != nil {
		return Content{}, errors.Errorf("failed to read back lock file after takeover: %w", err)
	}
	if back.PID != content.PID || back.Nonce != content.Nonce {
		return Content{}, errors.WithStack(ErrLostRace)
	}
	plog.Debug("Took over stale lock", "path", path)
	return content, nil
}

func (lk *Locker) start(path string, content Content) *Lock {
	lk.cleanupTemp(path)
	ctx, cancel := context.WithCancel(context.Background())
	l := &Lock{lk: lk, path: path, content: content, held: true, cancel: cancel, done: make(chan struct{})}
	go l.beat(ctx)
	plog.Debug("Lock acquired", "path", path)
	return l
}

func (l *Lock) beat(ctx context.Context) {
	defer close(l.done)
	ticker := time.NewTicker(l.lk.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.content.LastUpdate = time.Now().UTC()
			if err := l.lk.writeAtomic(l.path, l.content); err != nil {
				plog.Warn("Heartbeat failed to update lock file", "error", err)
			}
		}
	}
}

// Release stops the heartbeat and removes the lock file.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	l.held = false
	l.cancel()
	<-l.done

	if err := l.lk.fs.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		plog.Warn("Failed to remove lock file", "path", l.path, "error", err)
		return
	}
	plog.Debug("Lock released", "path", l.path)
}

// writeAtomic writes content next to path and renames it into place so the
// lock file is never seen empty.
func (lk *Locker) writeAtomic(path string, content Content) error {
	tmp, err := afero.TempFile(lk.fs, filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("failed to create temp lock file: %w", err)
	}
	defer func() {
		if err := lk.fs.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			plog.Warn("Failed to remove temporary lock file", "path", tmp.Name(), "error", err)
		}
	}()

	if err := encode(tmp, content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("failed to close temp lock file: %w", err)
	}
	if err := lk.fs.Rename(tmp.Name(), path); err != nil {
		return errors.Errorf("failed to rename temp file to lock file: %w", err)
	}
	return nil
}

// cleanupTemp removes temp files left by crashed heartbeats. Only files older
// than the stale timeout go, so a live writer is never disturbed.
func (lk *Locker) cleanupTemp(path string) {
	pattern := filepath.Join(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	matches, err := afero.Glob(lk.fs, pattern)
	if err != nil {
		plog.Warn("Failed to glob for temporary lock files", "pattern", pattern, "error", err)
		return
	}
	threshold := time.Now().Add(-lk.stale)
	for _, m := range matches {
		info, err := lk.fs.Stat(m)
		if err != nil || !info.ModTime().Before(threshold) {
			continue
		}
		if err := lk.fs.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			plog.Warn("Failed to remove leftover temporary lock file", "path", m, "error", err)
		}
	}
}

func encode(w io.Writer, content Content) error {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return errors.Errorf("failed to marshal lock content: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.Errorf("failed to write lock content: %w", err)
	}
	return nil
}

// read parses the lock file, retrying briefly over empty or partial content.
func (lk *Locker) read(path string) (Content, error) {
	var lastErr, corruptErr error
	for i := 0; i < 3; i++ {
		data, err := afero.ReadFile(lk.fs, path)
		if errors.Is(err, fs.ErrNotExist) {
			return Content{}, err
		}
		if err != nil {
			lastErr = err
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if len(data) == 0 {
			corruptErr = errors.New("lock file is empty")
			time.Sleep(50 * time.Millisecond)
			continue
		}
		var c Content
		if corruptErr = json.Unmarshal(data, &c); corruptErr != nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		return c, nil
	}
	if corruptErr != nil {
		return Content{}, errors.Errorf("%w: %s", ErrCorruptLockFile, corruptErr.Error())
	}
	return Content{}, errors.Errorf("failed to read valid lock content: %w", lastErr)
}
