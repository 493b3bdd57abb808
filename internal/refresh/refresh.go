// Package refresh keeps a client-side snapshot of a remote collection and
// re-fetches it after every successful write.
//
// A Collection is owned by one goroutine (the UI loop). Only Fetch may run
// elsewhere; it reads nothing but the loader and the ticket it is given.
package refresh

import (
	"context"
)

type Loader[R, F any] func(ctx context.Context, filter F) ([]R, error)

// Ticket identifies one load: the mount epoch it belongs to and the filter it used.
type Ticket[F any] struct {
	Epoch  uint64
	Filter F
}

type Result[R any] struct {
	Epoch uint64
	Items []R
	Err   error
}

type WriteKind int

const (
	WriteCreate WriteKind = iota + 1
	WriteUpdate
	WriteDelete
)

func (k WriteKind) String() string {
	switch k {
	case WriteCreate:
		return "create"
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	default:
		return "write"
	}
}

type Collection[R, F any] struct {
	load    Loader[R, F]
	filter  F
	items   []R
	err     error
	loaded  bool
	pending int
	epoch   uint64
	mounted bool
}

func New[R, F any](load Loader[R, F]) *Collection[R, F] {
	return &Collection[R, F]{load: load, mounted: true, epoch: 1}
}

func (c *Collection[R, F]) Filter() F { return c.filter }

// SetFilter replaces the active filter and starts a load with it.
func (c *Collection[R, F]) SetFilter(f F) Ticket[F] {
	c.filter = f
	return c.Begin()
}

// Begin starts a load with the current filter.
func (c *Collection[R, F]) Begin() Ticket[F] {
	c.pending++
	return Ticket[F]{Epoch: c.epoch, Filter: c.filter}
}

// Fetch performs the load described by t.
func (c *Collection[R, F]) Fetch(ctx context.Context, t Ticket[F]) Result[R] {
	items, err := c.load(ctx, t.Filter)
	return Result[R]{Epoch: t.Epoch, Items: items, Err: err}
}

// Apply installs a load result, replacing the whole snapshot. Results from an
// earlier mount are dropped and Apply reports false. Within one mount there is
// no ordering: whichever result arrives last wins.
func (c *Collection[R, F]) Apply(r Result[R]) bool {
	if !c.mounted || r.Epoch != c.epoch {
		return false
	}
	if c.pending > 0 {
		c.pending--
	}
	if r.Err != nil {
		c.err = r.Err
		return true
	}
	c.items = r.Items
	if c.items == nil {
		c.items = []R{}
	}
	c.err = nil
	c.loaded = true
	return true
}

// Reload runs Begin, Fetch and Apply in one go.
func (c *Collection[R, F]) Reload(ctx context.Context) error {
	r := c.Fetch(ctx, c.Begin())
	c.Apply(r)
	return r.Err
}

// AfterWrite starts the refresh that follows a successful write. Nothing is
// patched locally from the write's own response.
func (c *Collection[R, F]) AfterWrite(WriteKind) Ticket[F] { return c.Begin() }

// Write runs fn and, when it succeeds, reloads the snapshot. The returned error is
// fn's; a failed refresh is recorded in Err instead.
func (c *Collection[R, F]) Write(ctx context.Context, kind WriteKind, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	r := c.Fetch(ctx, c.AfterWrite(kind))
	c.Apply(r)
	return nil
}

// Items returns the current snapshot. Callers must not modify it.
func (c *Collection[R, F]) Items() []R { return c.items }

func (c *Collection[R, F]) Len() int { return len(c.items) }

// Loading reports whether any load of the current mount is outstanding.
func (c *Collection[R, F]) Loading() bool { return c.mounted && c.pending > 0 }

// Loaded reports whether at least one load has succeeded.
func (c *Collection[R, F]) Loaded() bool { return c.loaded }

func (c *Collection[R, F]) Err() error { return c.err }

func (c *Collection[R, F]) ClearErr() { c.err = nil }

func (c *Collection[R, F]) Mounted() bool { return c.mounted }

// Unmount invalidates every outstanding load; their results will be dropped.
func (c *Collection[R, F]) Unmount() {
	c.mounted = false
	c.epoch++
	c.pending = 0
}

// Mount starts a fresh epoch and its initial load.
func (c *Collection[R, F]) Mount() Ticket[F] {
	if !c.mounted {
		c.mounted = true
		c.epoch++
		c.pending = 0
	}
	return c.Begin()
}
