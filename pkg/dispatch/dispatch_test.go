package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/fiofix/pkg/dispatch"
	"github.com/shpitdev/fiofix/pkg/logger"
	"github.com/shpitdev/fiofix/pkg/pipeline/core"
	localio "github.com/shpitdev/fiofix/pkg/pipeline/io/local"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

type recordingCorrector struct {
	mu     sync.Mutex
	calls  map[string]string
	failOn string
}

func (r *recordingCorrector) ApplyCorrection(_ context.Context, link, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]string)
	}
	r.calls[link] = newName
	if link == r.failOn {
		return errors.New("form rejected")
	}
	return nil
}

func records(n int) []schema.ChangedRecord {
	out := make([]schema.ChangedRecord, n)
	for i := range out {
		out[i] = schema.ChangedRecord{
			OldName: "петров иван иванович",
			NewName: "Петров Иван Иванович",
			Link:    "L" + string(rune('0'+i)),
		}
	}
	return out
}

func fastOpts(tabs int) dispatch.Options {
	return dispatch.Options{MaxTabs: tabs, Pace: -1, RequestTimeout: time.Second}
}

func TestDispatchAppliesEverything(t *testing.T) {
	in := records(7)
	c := &recordingCorrector{}

	rep := dispatch.Dispatch(t.Context(), in, c, logger.NewForTests(), fastOpts(3))

	require.NoError(t, rep.Err)
	assert.Nil(t, rep.Failed)
	assert.Equal(t, in, rep.Updated)
	assert.Len(t, c.calls, 7)
	assert.Equal(t, "Петров Иван Иванович", c.calls["L4"])
}

func TestDispatchStopsAfterFailingBatch(t *testing.T) {
	in := records(7)
	c := &recordingCorrector{failOn: "L1"}

	rep := dispatch.Dispatch(t.Context(), in, c, logger.NewForTests(), fastOpts(3))

	require.Error(t, rep.Err)
	assert.Contains(t, rep.Err.Error(), "form rejected")
	require.NotNil(t, rep.Failed)
	assert.Equal(t, "L1", rep.Failed.Link)

	// The whole first batch was issued; nothing after it.
	assert.Equal(t, in[:3], rep.Updated)
	assert.Len(t, c.calls, 3)
	assert.NotContains(t, c.calls, "L3")
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	c := core.CorrectorFunc(func(context.Context, string, string) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return &core.TransientError{Err: errors.New("503")}
		}
		return nil
	})

	opts := fastOpts(1)
	opts.MaxRetries = 2
	rep := dispatch.Dispatch(t.Context(), records(1), c, logger.NewForTests(), opts)

	require.NoError(t, rep.Err)
	assert.Len(t, rep.Updated, 1)
	assert.Equal(t, 2, attempts)
}

func TestDispatchEmptyInput(t *testing.T) {
	rep := dispatch.Dispatch(t.Context(), nil, &recordingCorrector{}, nil, dispatch.Options{})
	require.NoError(t, rep.Err)
	assert.NotNil(t, rep.Updated)
	assert.Empty(t, rep.Updated)
}

func TestWriteUpdated(t *testing.T) {
	dir := t.TempDir()
	rep := dispatch.Report{Updated: records(2)}

	path, err := dispatch.WriteUpdated(dir, rep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "updated authors.json"), path)

	got, err := localio.ReadChangedFile(path)
	require.NoError(t, err)
	assert.Equal(t, rep.Updated, got)
}

func TestDispatchRedactsLoggedFailure(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(&logger.Config{Level: logger.InfoLevel, Output: &buf, JSON: true})
	c := core.CorrectorFunc(func(context.Context, string, string) error {
		return errors.New(`Get "https://cabinet/author.php?id=1&password=hunter2": EOF`)
	})

	rep := dispatch.Dispatch(t.Context(), records(1), c, log, fastOpts(1))
	require.Error(t, rep.Err)
	assert.Contains(t, buf.String(), "dispatch stopped")
	assert.Contains(t, buf.String(), "redacted")
	assert.NotContains(t, buf.String(), "hunter2")
}
