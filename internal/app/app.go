package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/shpitdev/fiofix/internal/config"
	"github.com/shpitdev/fiofix/pkg/batch"
	"github.com/shpitdev/fiofix/pkg/dispatch"
	"github.com/shpitdev/fiofix/pkg/fio"
	"github.com/shpitdev/fiofix/pkg/logger"
	"github.com/shpitdev/fiofix/pkg/pipeline/core"
	localio "github.com/shpitdev/fiofix/pkg/pipeline/io/local"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
	"github.com/shpitdev/fiofix/pkg/refdata"
)

// ErrNoCorrector is returned when a run needs to write to the portal but has
// no client to do it with.
var ErrNoCorrector = errors.New("direct_change mode needs a portal client")

// ErrReferenceData wraps failures to read the name dictionaries or blocklist.
var ErrReferenceData = errors.New("load reference data")

// FixResult summarizes a fix run.
type FixResult struct {
	RunID   string
	Mode    schema.ChangeMode
	Stats   batch.Stats
	Outputs batch.OutputPaths
	// Dispatch is set only in direct_change mode.
	Dispatch    *dispatch.Report
	UpdatedPath string
}

// withRun tags every log line of one run with a fresh id.
func withRun(ctx context.Context) (context.Context, logger.Logger, string) {
	runID := uuid.NewString()
	log := logger.FromContext(ctx).With("run", runID)
	return logger.ContextWithLogger(ctx, log), log, runID
}

// RunScrape pulls the roster from src and stores it at cfg.Paths.Roster.
// An empty result leaves any existing roster file untouched.
func RunScrape(ctx context.Context, cfg config.Config, src core.RosterSource, filter string) (int, error) {
	ctx, log, _ := withRun(ctx)
	if filter == "" {
		filter = cfg.Portal.Filter
	}

	records, err := src.FetchRoster(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("scrape roster: %w", err)
	}
	if len(records) == 0 {
		log.Warn("no authors were scraped, check the filter", "filter", filter)
		return 0, nil
	}
	if err := localio.WriteJSONFile(cfg.Paths.Roster, records); err != nil {
		return 0, fmt.Errorf("write roster: %w", err)
	}
	log.Info("roster saved", "path", cfg.Paths.Roster, "authors", len(records))
	return len(records), nil
}

// RunFix normalizes the stored roster, writes the review files and, in
// direct_change mode, pushes the changed names through c.
func RunFix(ctx context.Context, cfg config.Config, c core.Corrector) (FixResult, error) {
	ctx, log, runID := withRun(ctx)
	res := FixResult{RunID: runID}

	mode, err := cfg.ChangeMode()
	if err != nil {
		return res, err
	}
	res.Mode = mode
	if mode == schema.ModeDirectChange && c == nil {
		return res, ErrNoCorrector
	}
	style, err := cfg.Style()
	if err != nil {
		return res, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return res, err
	}

	refs, err := refdata.Load(refdata.Paths{
		GivenNames: cfg.Paths.GivenNames,
		Surnames:   cfg.Paths.Surnames,
		Blocklist:  cfg.Paths.Blocklist,
	})
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrReferenceData, err)
	}
	given, surnames, blocked := refs.Counts()
	log.Debug("reference data loaded", "given_names", given, "surnames", surnames, "blocked_links", blocked)

	roster, err := localio.ReadRosterFile(cfg.Paths.Roster)
	if err != nil {
		return res, fmt.Errorf("read roster: %w", err)
	}

	opts := batch.Options{NoOpPolicy: policy, ReviewWorkbook: cfg.ReviewXLSX}
	out := batch.Process(roster, fio.New(refs, style), refs, opts)
	res.Stats = out.Stats

	res.Outputs, err = batch.WriteOutputs(cfg.Paths.OutputDir, out, opts)
	if err != nil {
		return res, err
	}
	log.Info("roster normalized",
		"total", out.Stats.Total,
		"changed", out.Stats.Changed,
		"unchanged", out.Stats.Unchanged,
		"already_correct", out.Stats.NoOps,
		"blocked", out.Stats.Blocked,
	)
	for reason, n := range out.Stats.ByReason {
		log.Debug("rejections", "reason", string(reason), "count", n)
	}

	if mode != schema.ModeDirectChange {
		return res, nil
	}
	rep, path, err := dispatchAndPersist(ctx, cfg, out.Changed, c, log)
	res.Dispatch = &rep
	res.UpdatedPath = path
	return res, err
}

// RunDispatch pushes a previously reviewed changed file. An empty input
// path means the changed file in the output directory.
func RunDispatch(ctx context.Context, cfg config.Config, input string, c core.Corrector) (dispatch.Report, string, error) {
	ctx, log, _ := withRun(ctx)
	if c == nil {
		return dispatch.Report{}, "", ErrNoCorrector
	}
	if input == "" {
		input = filepath.Join(cfg.Paths.OutputDir, schema.ChangedFile)
	}
	changed, err := localio.ReadChangedFile(input)
	if err != nil {
		return dispatch.Report{}, "", fmt.Errorf("read changed records: %w", err)
	}
	return dispatchAndPersist(ctx, cfg, changed, c, log)
}

// dispatchAndPersist writes updated authors.json whether or not dispatch
// finished. A dispatch failure is reported in the Report, not as an error.
func dispatchAndPersist(
	ctx context.Context,
	cfg config.Config,
	changed []schema.ChangedRecord,
	c core.Corrector,
	log logger.Logger,
) (dispatch.Report, string, error) {
	log.Info("dispatching corrections", "count", len(changed), "max_tabs", cfg.MaxTabs)
	rep := dispatch.Dispatch(ctx, changed, newTracedCorrector(c, log), log, dispatch.Options{
		MaxTabs:        cfg.MaxTabs,
		Pace:           cfg.Pace,
		MaxRetries:     cfg.MaxRetries,
		RequestTimeout: cfg.RequestTimeout,
	})
	path, err := dispatch.WriteUpdated(cfg.Paths.OutputDir, rep)
	if err != nil {
		return rep, path, err
	}
	log.Info("dispatch finished", "attempted", len(rep.Updated), "of", len(changed), "complete", rep.Err == nil, "path", path)
	return rep, path, nil
}
