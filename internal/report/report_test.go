package report

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/brim/internal/metrics"
)

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Kind: KindEvaluation, Source: "a.json", Subject: "1 / 0", Err: errors.New("division by zero")}
	assert.Equal(t, "evaluation a.json {1 / 0}: division by zero", d.String())
	assert.Equal(t, "loop", Diagnostic{Kind: KindLoop}.String())
}

func TestCollectorConcurrent(t *testing.T) {
	c := &Collector{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := KindEvaluation
			if i%2 == 0 {
				kind = KindData
			}
			c.Report(Diagnostic{Kind: kind})
			c.Progress("render", i+1, 50)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Count(""))
	assert.Equal(t, 25, c.Count(KindData))
	assert.Equal(t, 50, c.Done("render"))
	assert.Len(t, c.Diagnostics(), 50)
}

func TestLoggerWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewLogger(log)
	r.Report(Diagnostic{Kind: KindData, Source: "bad.json", Err: errors.New("unexpected EOF")})
	r.Progress("render", 1, 2)
	r.Progress("render", 2, 2)

	out := buf.String()
	assert.Contains(t, out, "kind=data")
	assert.Contains(t, out, "source=bad.json")
	assert.Contains(t, out, `error="unexpected EOF"`)
	assert.Contains(t, out, "Stage complete")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Stage complete")))
}

func TestTeeAndWithSource(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	r := WithSource(Tee(a, nil, b), "page.json")
	r.Report(Diagnostic{Kind: KindEvaluation, Subject: "x"})
	r.Report(Diagnostic{Kind: KindEvaluation, Source: "other.json"})

	require.Len(t, a.Diagnostics(), 2)
	assert.Equal(t, "page.json", a.Diagnostics()[0].Source)
	assert.Equal(t, "other.json", b.Diagnostics()[1].Source)
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu    sync.Mutex
	kinds map[string]int
}

func (c *countingRecorder) IncDiagnostic(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kinds == nil {
		c.kinds = map[string]int{}
	}
	c.kinds[kind]++
}

func TestWithRecorder(t *testing.T) {
	rec := &countingRecorder{}
	c := &Collector{}
	r := WithRecorder(c, rec)
	r.Report(Diagnostic{Kind: KindHook})
	r.Report(Diagnostic{Kind: KindHook})

	assert.Equal(t, 2, rec.kinds["hook"])
	assert.Equal(t, 2, c.Count(KindHook))
	assert.Same(t, c, WithRecorder(c, nil))
}
