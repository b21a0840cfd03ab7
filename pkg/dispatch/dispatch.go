// Package dispatch pushes approved name corrections to the portal in small
// synchronized batches and keeps a record of what was attempted.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shpitdev/fiofix/pkg/logger"
	"github.com/shpitdev/fiofix/pkg/pipeline/core"
	localio "github.com/shpitdev/fiofix/pkg/pipeline/io/local"
	"github.com/shpitdev/fiofix/pkg/pipeline/redact"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
	"github.com/shpitdev/fiofix/pkg/pipeline/worker"
)

// Options mirrors the dispatch section of the configuration.
type Options struct {
	// MaxTabs bounds concurrent corrections. Zero means five.
	MaxTabs int
	// Pace is the minimum gap between two issued corrections. Zero spreads a
	// batch over five seconds; negative disables pacing.
	Pace           time.Duration
	MaxRetries     int
	RequestTimeout time.Duration
}

// Report describes one dispatch run.
type Report struct {
	// Updated lists every correction that was issued, in input order, whether
	// or not the portal confirmed it.
	Updated []schema.ChangedRecord
	// Failed is the correction that stopped the run, if any.
	Failed *schema.ChangedRecord
	// Err is the failure cause. Records after Failed were never issued.
	Err error
}

// Dispatch applies every correction through c.
//
// Corrections run in batches of opts.MaxTabs; a batch is fully settled before
// the next one starts. The first failure stops further issuing and is
// reported in the Report rather than returned, so the caller can still
// persist what was attempted.
func Dispatch(ctx context.Context, changed []schema.ChangedRecord, c core.Corrector, log logger.Logger, opts Options) Report {
	if log == nil {
		log = logger.FromContext(ctx)
	}
	rep := Report{Updated: make([]schema.ChangedRecord, 0, len(changed))}

	onIssue := func(i int, rec schema.ChangedRecord) error {
		log.Debug("issuing correction", "index", i, "link", rec.Link, "new_name", rec.NewName)
		rep.Updated = append(rep.Updated, rec)
		return nil
	}
	apply := func(ctx context.Context, rec schema.ChangedRecord) error {
		if err := c.ApplyCorrection(ctx, rec.Link, rec.NewName); err != nil {
			return fmt.Errorf("apply correction to %s: %w", rec.Link, err)
		}
		log.Info("updated author", "link", rec.Link, "old_name", rec.OldName, "new_name", rec.NewName)
		return nil
	}

	_, err := worker.RunBatches(ctx, changed, apply, onIssue, worker.Options{
		MaxInFlight:    opts.MaxTabs,
		Pace:           opts.Pace,
		MaxRetries:     opts.MaxRetries,
		RequestTimeout: opts.RequestTimeout,
	})
	if err == nil {
		return rep
	}

	rep.Err = err
	var failure *worker.Failure[schema.ChangedRecord]
	if errors.As(err, &failure) {
		rec := failure.Input
		rep.Failed = &rec
		log.Error("dispatch stopped", "link", rec.Link, "issued", len(rep.Updated), "err", redact.Secrets(failure.Err.Error()))
	} else {
		log.Error("dispatch stopped", "issued", len(rep.Updated), "err", redact.Secrets(err.Error()))
	}
	return rep
}

// WriteUpdated persists the attempted corrections next to the other outputs.
func WriteUpdated(dir string, rep Report) (string, error) {
	path := filepath.Join(dir, schema.UpdatedFile)
	if err := localio.WriteJSONFile(path, rep.Updated); err != nil {
		return path, fmt.Errorf("write updated authors: %w", err)
	}
	return path, nil
}
