package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/brim/internal/engine"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/record"
	"git.home.luguber.info/inful/brim/internal/report"
)

func TestRenderSafelyRecoversPanics(t *testing.T) {
	b := &build{engine: engine.New(), reporter: report.Nop{}}
	// A nil template makes the engine panic.
	_, err := b.renderSafely(&record.Record{Source: "x.json"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInternal))
	be, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "x.json", be.Context["path"])
}

func TestRunPoolProcessesEveryIndex(t *testing.T) {
	var seen [100]int32
	err := runPool(context.Background(), 8, len(seen), func(_ context.Context, i int) error {
		atomic.AddInt32(&seen[i], 1)
		return nil
	})
	require.NoError(t, err)
	for i, n := range seen {
		assert.EqualValues(t, 1, n, "index %d", i)
	}
}

func TestRunPoolStopsOnFirstError(t *testing.T) {
	var calls int32
	err := runPool(context.Background(), 1, 50, func(_ context.Context, i int) error {
		atomic.AddInt32(&calls, 1)
		if i == 3 {
			return fmt.Errorf("boom at %d", i)
		}
		return nil
	})
	require.EqualError(t, err, "boom at 3")
	assert.Less(t, atomic.LoadInt32(&calls), int32(50))
}

func TestRunPoolEmpty(t *testing.T) {
	assert.NoError(t, runPool(context.Background(), 4, 0, nil))
}

func TestExcluded(t *testing.T) {
	ex := []string{"/src/brim", "/src/brim.html"}
	assert.True(t, excluded("/src/brim", ex))
	assert.True(t, excluded("/src/brim/index.html", ex))
	assert.True(t, excluded("/src/brim.html", ex))
	assert.False(t, excluded("/src/brim-logo.png", ex))
	assert.False(t, excluded("/src/brimstone/a.css", ex))
}
