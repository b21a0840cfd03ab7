package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shpitdev/fiofix/pkg/pipeline/core"
)

// DefaultMaxInFlight matches the number of browser tabs the portal tolerates
// from one account.
const DefaultMaxInFlight = 5

// pacingWindow is spread evenly across one batch when Options.Pace is zero.
const pacingWindow = 5 * time.Second

type Options struct {
	// MaxInFlight is the batch size. A batch is fully drained before the next
	// one starts.
	MaxInFlight int

	// Pace is the minimum gap between two issued items. Zero spreads one batch
	// over five seconds; negative disables pacing.
	Pace time.Duration

	MaxRetries     int
	RequestTimeout time.Duration

	// BackoffInitial is the initial sleep before retrying a transient failure.
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

func (o Options) withDefaults() Options {
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = DefaultMaxInFlight
	}
	if o.Pace == 0 {
		o.Pace = pacingWindow / time.Duration(o.MaxInFlight)
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}

// Failure reports the item that stopped a run.
type Failure[In any] struct {
	Index int
	Input In
	Err   error
}

func (f *Failure[In]) Error() string {
	return fmt.Sprintf("item %d: %v", f.Index, f.Err)
}

func (f *Failure[In]) Unwrap() error {
	return f.Err
}

// RunBatches feeds items to fn in barrier batches of opts.MaxInFlight.
//
// onIssue, when set, is called in input order right before an item is handed
// to fn. Returning an error from it stops issuing. Once any call to fn fails
// (after retries) no further item is issued; items already running are
// allowed to finish and the first failure is returned as a *Failure[In].
//
// Cancelling ctx stops issuing but never interrupts calls already in flight.
// issued is the number of items passed to onIssue.
func RunBatches[In any](
	ctx context.Context,
	items []In,
	fn func(context.Context, In) error,
	onIssue func(int, In) error,
	opts Options,
) (issued int, err error) {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.Pace > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Pace), 1)
	}

	// In-flight calls outlive ctx so a half-submitted form is never abandoned.
	callCtx := context.WithoutCancel(ctx)

	var failed atomic.Bool
	for start := 0; start < len(items); start += opts.MaxInFlight {
		end := min(start+opts.MaxInFlight, len(items))

		var g errgroup.Group
		var stopErr error
		for i := start; i < end; i++ {
			if failed.Load() {
				break
			}
			if cerr := ctx.Err(); cerr != nil {
				stopErr = cerr
				break
			}
			if limiter != nil {
				if werr := limiter.Wait(ctx); werr != nil {
					stopErr = werr
					break
				}
			}
			if failed.Load() {
				break
			}
			if onIssue != nil {
				if ierr := onIssue(i, items[i]); ierr != nil {
					stopErr = ierr
					break
				}
			}
			issued++

			idx, item := i, items[i]
			g.Go(func() error {
				if cerr := callWithRetry(callCtx, item, fn, opts); cerr != nil {
					failed.Store(true)
					return &Failure[In]{Index: idx, Input: item, Err: cerr}
				}
				return nil
			})
		}

		if werr := g.Wait(); werr != nil {
			return issued, werr
		}
		if stopErr != nil {
			return issued, stopErr
		}
	}
	return issued, nil
}

func callWithRetry[In any](
	ctx context.Context,
	item In,
	fn func(context.Context, In) error,
	opts Options,
) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		reqCtx := ctx
		var cancel context.CancelFunc
		if opts.RequestTimeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, opts.RequestTimeout)
		}
		err := fn(reqCtx, item)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return ctx.Err()
		}
		maxRetries := maxExtraRetries(opts.MaxRetries, err)
		if !isTransient(err) || attempt >= maxRetries {
			return err
		}

		sleep := backoffSleep(opts.BackoffInitial, opts.BackoffMax, opts.BackoffJitterFrac, attempt)
		t := time.NewTimer(sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

type retryCap interface {
	MaxExtraRetries() int
}

func maxExtraRetries(defaultRetries int, err error) int {
	if defaultRetries < 0 {
		defaultRetries = 0
	}
	var capErr retryCap
	if errors.As(err, &capErr) {
		limited := max(capErr.MaxExtraRetries(), 0)
		if limited < defaultRetries {
			return limited
		}
	}
	return defaultRetries
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *core.TransientError
	if errors.As(err, &te) {
		return true
	}
	var lte *core.LimitedTransientError
	if errors.As(err, &lte) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func backoffSleep(initial, limit time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < limit; i++ {
		sleep = min(sleep*2, limit)
	}
	if jitterFrac <= 0 {
		return sleep
	}
	j := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * j)
}
