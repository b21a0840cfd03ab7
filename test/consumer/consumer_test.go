package consumer

import (
	"context"
	"sync"
	"testing"

	"github.com/shpitdev/fiofix/pkg/batch"
	"github.com/shpitdev/fiofix/pkg/dispatch"
	"github.com/shpitdev/fiofix/pkg/fio"
	"github.com/shpitdev/fiofix/pkg/logger"
	"github.com/shpitdev/fiofix/pkg/mockportal"
	"github.com/shpitdev/fiofix/pkg/pipeline/core"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
	"github.com/shpitdev/fiofix/pkg/portal"
	"github.com/shpitdev/fiofix/pkg/refdata"
)

func TestPublicPackagesCompile(t *testing.T) {
	t.Parallel()

	_ = portal.Options{}
	_ = schema.NameRecord{}

	srv := mockportal.New(mockportal.Options{Email: "e", Password: "p"}, []string{"x"})
	if srv.Handler() == nil {
		t.Fatalf("handler must not be nil")
	}
}

// An external Corrector plugs into the normalizer and dispatcher without the
// portal client.
func TestCustomCorrector(t *testing.T) {
	t.Parallel()

	sets := refdata.NewSets([]string{"Иван"}, []string{"Петров"}, nil)
	res := batch.Process([]schema.NameRecord{{Name: "иван петров", Link: "L1"}}, fio.New(sets, fio.StyleFull), sets, batch.Options{})
	if len(res.Changed) != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}

	var mu sync.Mutex
	got := map[string]string{}
	var c core.Corrector = core.CorrectorFunc(func(_ context.Context, link, name string) error {
		mu.Lock()
		defer mu.Unlock()
		got[link] = name
		return nil
	})

	rep := dispatch.Dispatch(context.Background(), res.Changed, c, logger.NewForTests(), dispatch.Options{MaxTabs: 1, Pace: -1})
	if rep.Err != nil {
		t.Fatalf("Dispatch failed: %v", rep.Err)
	}
	if got["L1"] != "Петров Иван" {
		t.Fatalf("unexpected corrections: %#v", got)
	}
}
