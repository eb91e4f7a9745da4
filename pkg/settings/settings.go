// Package settings supplies the diagnostic settings consulted before every
// recorded exchange.
package settings

import (
	"context"
	"sync"
	"time"

	"github.com/supergoodsystems/wiretap/pkg/store"
)

// Source yields the current settings.
type Source interface {
	Settings(ctx context.Context) (store.Settings, error)
}

// Static always returns the same settings.
type Static store.Settings

func (s Static) Settings(context.Context) (store.Settings, error) {
	return store.Settings(s), nil
}

// PerCall asks the store on every call.
func PerCall(s store.RecordStore) Source {
	return perCall{s}
}

type perCall struct {
	s store.RecordStore
}

func (p perCall) Settings(ctx context.Context) (store.Settings, error) {
	return p.s.GetSettings(ctx)
}

// Cache keeps the last settings read from a store and refreshes them on an
// interval, so the hot path is a read lock.
type Cache struct {
	store         store.RecordStore
	fetchInterval time.Duration
	handleError   func(error)

	mutex       sync.RWMutex
	current     store.Settings
	initialized bool

	close     chan struct{}
	closeOnce sync.Once
}

// NewCache creates a cache over s. handleError receives refresh failures.
func NewCache(s store.RecordStore, fetchInterval time.Duration, handleError func(error)) *Cache {
	if handleError == nil {
		handleError = func(error) {}
	}
	return &Cache{
		store:         s,
		fetchInterval: fetchInterval,
		handleError:   handleError,
		close:         make(chan struct{}),
	}
}

// Init loads the settings once. A failure leaves the cache uninitialized;
// Settings then falls back to reading the store.
func (c *Cache) Init(ctx context.Context) error {
	_, err := c.fetchAndSet(ctx)
	return err
}

// Refresh reloads the settings every fetch interval until Close is called.
func (c *Cache) Refresh() {
	for {
		select {
		case <-c.close:
			return
		case <-time.After(c.fetchInterval):
			if _, err := c.fetchAndSet(context.Background()); err != nil {
				c.handleError(err)
			}
		}
	}
}

func (c *Cache) Settings(ctx context.Context) (store.Settings, error) {
	c.mutex.RLock()
	s, ok := c.current, c.initialized
	c.mutex.RUnlock()
	if ok {
		return s, nil
	}
	return c.fetchAndSet(ctx)
}

func (c *Cache) IsInitialized() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.initialized
}

func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.close) })
}

func (c *Cache) fetchAndSet(ctx context.Context) (store.Settings, error) {
	s, err := c.store.GetSettings(ctx)
	if err != nil {
		return s, err
	}
	c.mutex.Lock()
	c.current = s
	c.initialized = true
	c.mutex.Unlock()
	return s, nil
}
