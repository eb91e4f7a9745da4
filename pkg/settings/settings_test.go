package settings

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/supergoodsystems/wiretap/pkg/record"
	"github.com/supergoodsystems/wiretap/pkg/store"
)

type countingStore struct {
	calls    atomic.Int32
	settings atomic.Value
	err      error
}

func (s *countingStore) GetSettings(ctx context.Context) (store.Settings, error) {
	s.calls.Add(1)
	if s.err != nil {
		return store.Settings{}, s.err
	}
	v, _ := s.settings.Load().(store.Settings)
	return v, nil
}

func (s *countingStore) AddRecord(context.Context, *record.Record) error { return nil }

func Test_Sources(t *testing.T) {
	ctx := context.Background()

	t.Run("static", func(t *testing.T) {
		s, err := Static{DebugMode: true}.Settings(ctx)
		require.NoError(t, err)
		require.True(t, s.Active())
	})

	t.Run("per call hits the store every time", func(t *testing.T) {
		cs := &countingStore{}
		src := PerCall(cs)
		src.Settings(ctx)
		src.Settings(ctx)
		require.EqualValues(t, 2, cs.calls.Load())
	})

	t.Run("cache reads once then serves from memory", func(t *testing.T) {
		cs := &countingStore{}
		cs.settings.Store(store.Settings{ShowOnRelease: true})
		c := NewCache(cs, time.Hour, nil)
		require.NoError(t, c.Init(ctx))
		require.True(t, c.IsInitialized())

		for i := 0; i < 10; i++ {
			s, err := c.Settings(ctx)
			require.NoError(t, err)
			require.True(t, s.ShowOnRelease)
		}
		require.EqualValues(t, 1, cs.calls.Load())
	})

	t.Run("cache refreshes on interval", func(t *testing.T) {
		cs := &countingStore{}
		cs.settings.Store(store.Settings{})
		c := NewCache(cs, time.Millisecond, nil)
		require.NoError(t, c.Init(ctx))
		go c.Refresh()
		defer c.Close()

		cs.settings.Store(store.Settings{DebugMode: true})
		require.Eventually(t, func() bool {
			s, _ := c.Settings(ctx)
			return s.DebugMode
		}, time.Second, time.Millisecond)
	})

	t.Run("failed init falls back to the store", func(t *testing.T) {
		cs := &countingStore{err: errors.New("locked")}
		var handled error
		c := NewCache(cs, time.Hour, func(err error) { handled = err })
		require.Error(t, c.Init(ctx))
		require.False(t, c.IsInitialized())
		_, err := c.Settings(ctx)
		require.Error(t, err)
		require.Nil(t, handled)
		c.Close()
		c.Close()
	})
}
