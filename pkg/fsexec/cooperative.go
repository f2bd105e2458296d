package fsexec

import (
	"context"
	"io/fs"
	"runtime"
	"sync"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// Cooperative runs every filesystem call of a Sync executor on one dedicated
// loop goroutine. Callers block on a channel while their call is served and
// the loop yields between calls, so no two filesystem operations ever overlap.
// A Cooperative must not be used after Close.
type Cooperative struct {
	inner     *Sync
	ops       chan func()
	loop      *errgroup.Group
	closeOnce sync.Once
}

var _ Executor = (*Cooperative)(nil)

// NewCooperative starts the I/O loop over inner.
func NewCooperative(inner *Sync) *Cooperative {
	c := &Cooperative{
		inner: inner,
		ops:   make(chan func()),
		loop:  new(errgroup.Group),
	}
	c.loop.Go(func() error {
		for op := range c.ops {
			op()
			runtime.Gosched()
		}
		return nil
	})
	return c
}

// submit hands fn to the loop and waits for its result. Cancellation is only
// observed while waiting for the loop to accept the call; an accepted call
// always runs to completion.
func submit[T any](ctx context.Context, c *Cooperative, fn func() (T, error)) (T, error) {
	var (
		res  T
		err  error
		done = make(chan struct{})
	)
	op := func() {
		defer close(done)
		res, err = fn()
	}
	select {
	case c.ops <- op:
	case <-ctx.Done():
		var zero T
		return zero, errors.WithStack(ctx.Err())
	}
	<-done
	return res, err
}

func (c *Cooperative) Walk(ctx context.Context, root string, opts WalkOptions, fn WalkFunc) error {
	readDir := func(ctx context.Context, dir string) ([]fs.FileInfo, error) {
		return submit(ctx, c, func() ([]fs.FileInfo, error) { return c.inner.readDir(ctx, dir) })
	}
	return walkTree(ctx, c.Stat, readDir, root, opts, fn)
}

func (c *Cooperative) MkdirAll(ctx context.Context, dir string) error {
	_, err := submit(ctx, c, func() (struct{}, error) { return struct{}{}, c.inner.MkdirAll(ctx, dir) })
	return err
}

func (c *Cooperative) Copy(ctx context.Context, src, dst string) (int64, error) {
	return submit(ctx, c, func() (int64, error) { return c.inner.Copy(ctx, src, dst) })
}

func (c *Cooperative) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	return submit(ctx, c, func() (fs.FileInfo, error) { return c.inner.Stat(ctx, path) })
}

func (c *Cooperative) Exists(ctx context.Context, path string) (bool, error) {
	return submit(ctx, c, func() (bool, error) { return c.inner.Exists(ctx, path) })
}

func (c *Cooperative) IsHidden(ctx context.Context, path string) bool {
	hidden, err := submit(ctx, c, func() (bool, error) { return c.inner.IsHidden(ctx, path), nil })
	return err == nil && hidden
}

func (c *Cooperative) Canonicalize(ctx context.Context, path string) (string, error) {
	return submit(ctx, c, func() (string, error) { return c.inner.Canonicalize(ctx, path) })
}

func (c *Cooperative) FreeSpace(ctx context.Context, dir string) (uint64, error) {
	return submit(ctx, c, func() (uint64, error) { return c.inner.FreeSpace(ctx, dir) })
}

func (c *Cooperative) SameDisk(ctx context.Context, a, b string) (bool, error) {
	return submit(ctx, c, func() (bool, error) { return c.inner.SameDisk(ctx, a, b) })
}

// Close stops the loop and waits for it to exit.
func (c *Cooperative) Close() error {
	c.closeOnce.Do(func() { close(c.ops) })
	return c.loop.Wait()
}
