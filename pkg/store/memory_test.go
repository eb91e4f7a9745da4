package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/supergoodsystems/wiretap/pkg/record"
)

func Test_Memory(t *testing.T) {
	ctx := context.Background()

	t.Run("appends in insertion order", func(t *testing.T) {
		m := NewMemory(0)
		for i := 0; i < 3; i++ {
			require.NoError(t, m.AddRecord(ctx, &record.Record{ID: fmt.Sprint(i), Method: "GET"}))
		}
		got, err := m.ListRecords(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, "0", got[0].ID)
		require.Equal(t, "2", got[2].ID)
	})

	t.Run("evicts oldest beyond capacity", func(t *testing.T) {
		m := NewMemory(2)
		for i := 0; i < 5; i++ {
			require.NoError(t, m.AddRecord(ctx, &record.Record{ID: fmt.Sprint(i)}))
		}
		got, _ := m.ListRecords(ctx, Filter{})
		require.Equal(t, []string{"3", "4"}, []string{got[0].ID, got[1].ID})
	})

	t.Run("filters and limits", func(t *testing.T) {
		m := NewMemory(0)
		m.AddRecord(ctx, &record.Record{ID: "a", Method: "GET"})
		m.AddRecord(ctx, &record.Record{ID: "b", Method: "POST"})
		m.AddRecord(ctx, &record.Record{ID: "c", Method: "GET"})
		require.NoError(t, m.SetChecked(ctx, "c", true))

		got, _ := m.ListRecords(ctx, Filter{Method: "GET"})
		require.Len(t, got, 2)
		got, _ = m.ListRecords(ctx, Filter{Method: "GET", UncheckedOnly: true})
		require.Len(t, got, 1)
		require.Equal(t, "a", got[0].ID)
		got, _ = m.ListRecords(ctx, Filter{Limit: 1})
		require.Equal(t, "c", got[0].ID)
	})

	t.Run("checked toggling", func(t *testing.T) {
		m := NewMemory(0)
		m.AddRecord(ctx, &record.Record{ID: "a"})
		require.ErrorIs(t, m.SetChecked(ctx, "missing", true), ErrNotFound)
		require.NoError(t, m.SetChecked(ctx, "a", true))
		got, _ := m.ListRecords(ctx, Filter{})
		require.True(t, got[0].Checked)
	})

	t.Run("settings", func(t *testing.T) {
		m := NewMemory(0)
		s, err := m.GetSettings(ctx)
		require.NoError(t, err)
		require.False(t, s.Active())
		require.NoError(t, m.PutSettings(ctx, Settings{ShowOnRelease: true}))
		s, _ = m.GetSettings(ctx)
		require.True(t, s.Active())
	})

	t.Run("concurrent appends", func(t *testing.T) {
		m := NewMemory(0)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m.AddRecord(ctx, &record.Record{ID: fmt.Sprint(i)})
			}(i)
		}
		wg.Wait()
		require.Equal(t, 50, m.Len())
		require.NoError(t, m.Clear(ctx))
		require.Zero(t, m.Len())
	})

	t.Run("cancelled context", func(t *testing.T) {
		m := NewMemory(0)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.Error(t, m.AddRecord(cctx, &record.Record{ID: "x"}))
	})
}
