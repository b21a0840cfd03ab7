package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/fiofix/internal/config"
	"github.com/shpitdev/fiofix/pkg/logger"
	"github.com/shpitdev/fiofix/pkg/mockportal"
	"github.com/shpitdev/fiofix/pkg/pipeline/core"
	localio "github.com/shpitdev/fiofix/pkg/pipeline/io/local"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
	"github.com/shpitdev/fiofix/pkg/portal"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Init(logger.TestConfig())
	os.Exit(m.Run())
}

type fixture struct {
	cfg    config.Config
	mock   *mockportal.Server
	server *httptest.Server
	client *portal.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock := mockportal.New(mockportal.Options{Email: "e@example.com", Password: "pw"}, []string{
		"петров иван иванович",
		"Сидоров С. П.",
		"А Б",
		"мария сидорова ивановна",
	})
	ts := httptest.NewServer(mock.Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	write := func(name string, v any) string {
		p := filepath.Join(dir, name)
		require.NoError(t, localio.WriteJSONFile(p, v))
		return p
	}

	cfg := config.Default()
	cfg.Mode = string(schema.ModeDirectChange)
	cfg.MaxTabs = 2
	cfg.Pace = -1
	cfg.Paths = config.Paths{
		Roster:     filepath.Join(dir, "authors.json"),
		GivenNames: write("names.json", []string{"Иван", "Мария"}),
		Surnames:   write("surnames.json", []string{"Петров", "Сидорова"}),
		Blocklist:  write("blocklist.json", []string{ts.URL + "/cabinet/author.php?id=4"}),
		OutputDir:  filepath.Join(dir, "result"),
	}
	cfg.Portal.URL = ts.URL

	client, err := portal.NewClient(portal.Options{
		BaseURL:     ts.URL,
		Credentials: portal.Credentials{Email: "e@example.com", Password: "pw"},
		PageSize:    3,
	})
	require.NoError(t, err)

	return &fixture{cfg: cfg, mock: mock, server: ts, client: client}
}

func TestScrapeThenFixDirectChange(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	n, err := RunScrape(ctx, f.cfg, f.client, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := RunFix(ctx, f.cfg, f.client)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Stats.Changed)
	assert.Equal(t, 1, res.Stats.Unchanged)
	assert.Equal(t, 1, res.Stats.Blocked)

	require.NotNil(t, res.Dispatch)
	require.NoError(t, res.Dispatch.Err)
	assert.Equal(t, "Петров Иван Иванович", f.mock.Authors()[0].Name)
	assert.Equal(t, "мария сидорова ивановна", f.mock.Authors()[3].Name)

	updated, err := localio.ReadChangedFile(res.UpdatedPath)
	require.NoError(t, err)
	assert.Equal(t, []schema.ChangedRecord{{
		OldName: "петров иван иванович",
		NewName: "Петров Иван Иванович",
		Link:    f.server.URL + "/cabinet/author.php?id=1",
	}}, updated)

	unchanged, err := os.ReadFile(res.Outputs.Unchanged)
	require.NoError(t, err)
	assert.Contains(t, string(unchanged), `"name": "А Б"`)
}

func TestFixChangesInJSONDoesNotTouchPortal(t *testing.T) {
	f := newFixture(t)
	f.cfg.Mode = string(schema.ModeChangesInJSON)
	require.NoError(t, localio.WriteJSONFile(f.cfg.Paths.Roster, []schema.NameRecord{
		{Name: "петров иван иванович", Link: "L1"},
	}))

	res, err := RunFix(t.Context(), f.cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Dispatch)
	assert.Empty(t, res.UpdatedPath)
	assert.Empty(t, f.mock.Calls())

	changed, err := localio.ReadChangedFile(res.Outputs.Changed)
	require.NoError(t, err)
	assert.Len(t, changed, 1)
}

func TestFixDirectChangeWithoutClient(t *testing.T) {
	f := newFixture(t)
	_, err := RunFix(t.Context(), f.cfg, nil)
	require.ErrorIs(t, err, ErrNoCorrector)
}

func TestFixFailsOnMissingReferenceData(t *testing.T) {
	f := newFixture(t)
	f.cfg.Paths.Surnames = filepath.Join(t.TempDir(), "missing.json")
	_, err := RunFix(t.Context(), f.cfg, f.client)
	require.ErrorIs(t, err, ErrReferenceData)
	require.ErrorContains(t, err, "load reference data")
}

func TestDispatchPersistsAttemptedPrefixOnFailure(t *testing.T) {
	f := newFixture(t)
	f.cfg.MaxTabs = 1
	f.mock.FailUpdates(2, http.StatusBadRequest)

	link := func(id string) string { return f.server.URL + "/cabinet/author.php?id=" + id }
	input := filepath.Join(t.TempDir(), "reviewed.json")
	require.NoError(t, localio.WriteJSONFile(input, []schema.ChangedRecord{
		{OldName: "петров иван иванович", NewName: "Петров Иван Иванович", Link: link("1")},
		{OldName: "Сидоров С. П.", NewName: "Сидоров С. П.", Link: link("2")},
		{OldName: "мария сидорова ивановна", NewName: "Сидорова Мария Ивановна", Link: link("4")},
	}))

	rep, path, err := RunDispatch(t.Context(), f.cfg, input, f.client)
	require.NoError(t, err)
	require.Error(t, rep.Err)
	require.NotNil(t, rep.Failed)
	assert.Equal(t, link("2"), rep.Failed.Link)

	updated, err := localio.ReadChangedFile(path)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, link("1"), updated[0].Link)
	assert.Equal(t, link("2"), updated[1].Link)
	assert.Equal(t, "мария сидорова ивановна", f.mock.Authors()[3].Name)
}

func TestScrapeWithNoMatchesKeepsRoster(t *testing.T) {
	f := newFixture(t)
	n, err := RunScrape(t.Context(), f.cfg, f.client, "Я")
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = os.Stat(f.cfg.Paths.Roster)
	assert.True(t, os.IsNotExist(err))
}

func TestTracedCorrectorCountsAttempts(t *testing.T) {
	calls := 0
	tc := newTracedCorrector(core.CorrectorFunc(func(context.Context, string, string) error {
		calls++
		if calls == 1 {
			return &core.TransientError{Err: errors.New("503")}
		}
		return nil
	}), logger.NewForTests())

	require.Error(t, tc.ApplyCorrection(t.Context(), "L1", "X"))
	require.NoError(t, tc.ApplyCorrection(t.Context(), "L1", "X"))
	assert.Equal(t, 3, tc.nextAttempt("L1"))
	assert.True(t, isRetryable(&core.LimitedTransientError{Err: errors.New("x")}))
	assert.False(t, isRetryable(errors.New("x")))
}
