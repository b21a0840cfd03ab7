// Package batch runs the name normalizer over a roster and splits the results
// into the files reviewers look at before anything is pushed to the portal.
package batch

import (
	"fmt"
	"strings"

	"github.com/shpitdev/fiofix/pkg/fio"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

// NoOpPolicy decides what happens to records whose name is already canonical.
type NoOpPolicy int

const (
	// DropNoOps omits already-correct records from every output.
	DropNoOps NoOpPolicy = iota
	// RecordNoOps lists them in a separate "correct" partition.
	RecordNoOps
)

func (p NoOpPolicy) String() string {
	if p == RecordNoOps {
		return "record"
	}
	return "drop"
}

// ParseNoOpPolicy parses "drop" or "record". An empty value means DropNoOps.
func ParseNoOpPolicy(raw string) (NoOpPolicy, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", "drop":
		return DropNoOps, nil
	case "record", "keep":
		return RecordNoOps, nil
	default:
		return DropNoOps, fmt.Errorf("unknown no-op policy %q (want drop or record)", raw)
	}
}

// Blocklist reports profile links that must be skipped.
type Blocklist interface {
	IsBlocked(link string) bool
}

// Options controls Process and WriteOutputs.
type Options struct {
	NoOpPolicy NoOpPolicy
	// ReviewWorkbook additionally writes an XLSX copy of both partitions.
	ReviewWorkbook bool
}

// Stats summarizes one run.
type Stats struct {
	Total     int
	Blocked   int
	Changed   int
	Unchanged int
	NoOps     int
	ByReason  map[fio.Reason]int
}

// Result holds the partitions in roster order.
type Result struct {
	Changed   []schema.ChangedRecord
	Unchanged []schema.UnchangedRecord
	// Correct is only filled with RecordNoOps.
	Correct []schema.NameRecord
	Stats   Stats
}

// Process normalizes every roster record that is not blocklisted.
//
// Each remaining record lands in exactly one partition, except no-ops which
// are dropped unless opts.NoOpPolicy is RecordNoOps. Input order is preserved
// and nothing is deduplicated. Process has no side effects.
func Process(roster []schema.NameRecord, norm *fio.Normalizer, blocked Blocklist, opts Options) Result {
	res := Result{
		Changed:   make([]schema.ChangedRecord, 0),
		Unchanged: make([]schema.UnchangedRecord, 0),
		Stats: Stats{
			Total:    len(roster),
			ByReason: make(map[fio.Reason]int),
		},
	}
	if opts.NoOpPolicy == RecordNoOps {
		res.Correct = make([]schema.NameRecord, 0)
	}

	for _, rec := range roster {
		if blocked != nil && blocked.IsBlocked(rec.Link) {
			res.Stats.Blocked++
			continue
		}

		out := norm.Normalize(rec.Name)
		switch out.Outcome {
		case fio.OutcomeChanged:
			res.Changed = append(res.Changed, schema.ChangedRecord{
				OldName: rec.Name,
				NewName: out.Name,
				Link:    rec.Link,
			})
			res.Stats.Changed++
		case fio.OutcomeNoOp:
			res.Stats.NoOps++
			if opts.NoOpPolicy == RecordNoOps {
				res.Correct = append(res.Correct, rec)
			}
		default:
			res.Unchanged = append(res.Unchanged, schema.UnchangedRecord{
				Name:   rec.Name,
				Link:   rec.Link,
				Error:  out.Message(),
				Reason: string(out.Reason),
			})
			res.Stats.Unchanged++
			res.Stats.ByReason[out.Reason]++
		}
	}
	return res
}
