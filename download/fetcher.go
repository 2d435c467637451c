package download

import (
	"context"
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/retry"
)

// Source acquires the reads of spots [first, last] (1-based, inclusive) of
// an accession.
type Source interface {
	Fetch(ctx context.Context, acc string, first, last int64) ([]byte, error)
}

// FailureLog records accessions whose download timed out so that they can
// be retried by a later run.
type FailureLog interface {
	Record(acc string) error
}

// Opts configures a Fetcher.
type Opts struct {
	// Budget is the wall-clock time after which a failing fetch is abandoned.
	// It is checked after every backoff wait.
	Budget time.Duration
	// InitialDelay and Factor define the backoff: after the n-th consecutive
	// failure the fetcher waits InitialDelay*Factor^n.
	InitialDelay time.Duration
	Factor       float64
	// MaxDelay caps a single wait.
	MaxDelay time.Duration
}

// DefaultOpts waits 3s, 9s, 27s, ... and gives up after five minutes.
var DefaultOpts = Opts{
	Budget:       300 * time.Second,
	InitialDelay: time.Second,
	Factor:       3,
	MaxDelay:     time.Hour,
}

// State is a state of the fetch state machine:
//
//   Idle -> Attempting -> Succeeded
//              ^   |
//              |   v
//           BackoffWait -> TimedOut
type State int

const (
	Idle State = iota
	Attempting
	BackoffWait
	Succeeded
	TimedOut
)

var stateNames = [...]string{"idle", "attempting", "backoff", "succeeded", "timedout"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Fetcher retries a Source with exponential backoff under a wall-clock
// budget. A Fetcher is itself a Source. It is safe for concurrent use if the
// underlying Source and FailureLog are.
type Fetcher struct {
	src      Source
	failures FailureLog
	opts     Opts
	policy   retry.Policy

	// Overridden in tests.
	now  func() time.Time
	wait func(ctx context.Context, policy retry.Policy, retries int) error
	// trace, if set, observes every state transition.
	trace func(acc string, from, to State)
}

// NewFetcher creates a Fetcher for src. failures may be nil.
func NewFetcher(src Source, failures FailureLog, opts Opts) *Fetcher {
	return &Fetcher{
		src:      src,
		failures: failures,
		opts:     opts,
		policy:   retry.Backoff(opts.InitialDelay, opts.MaxDelay, opts.Factor),
		now:      time.Now,
		wait:     retry.Wait,
	}
}

// fetch is the state of one Fetch call.
type fetch struct {
	acc         string
	first, last int64
	state       State
	start       time.Time
	failures    int
	data        []byte
	lastErr     error
}

// Fetch implements Source. When the budget runs out, acc is recorded in the
// failure log and an error of kind errors.Timeout is returned. Any other
// error (context cancellation, a failure log that cannot be written) is not
// a timeout and should not be skipped over by the caller.
func (f *Fetcher) Fetch(ctx context.Context, acc string, first, last int64) ([]byte, error) {
	x := fetch{acc: acc, first: first, last: last, state: Idle}
	for {
		switch x.state {
		case Idle:
			x.start = f.now()
			f.setState(&x, Attempting)
		case Attempting:
			data, err := f.src.Fetch(ctx, acc, first, last)
			if err == nil {
				x.data = data
				f.setState(&x, Succeeded)
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			x.failures++
			x.lastErr = err
			log.Printf("acc %s failed: attempt %d: %v", acc, x.failures, err)
			f.setState(&x, BackoffWait)
		case BackoffWait:
			if _, delay := f.policy.Retry(x.failures); delay > 0 {
				log.Printf("acc %s: waiting %v before retry", acc, delay)
			}
			if err := f.wait(ctx, f.policy, x.failures); err != nil {
				return nil, err
			}
			if f.now().Sub(x.start) > f.opts.Budget {
				f.setState(&x, TimedOut)
			} else {
				f.setState(&x, Attempting)
			}
		case Succeeded:
			return x.data, nil
		case TimedOut:
			return nil, f.timeout(&x)
		}
	}
}

func (f *Fetcher) setState(x *fetch, to State) {
	if f.trace != nil {
		f.trace(x.acc, x.state, to)
	}
	x.state = to
}

func (f *Fetcher) timeout(x *fetch) error {
	log.Printf("accession %s download timed out after %d attempts; moving on to the next accession", x.acc, x.failures)
	if f.failures != nil {
		if err := f.failures.Record(x.acc); err != nil {
			return errors.E(err, "recording failed download of", x.acc)
		}
	}
	return errors.E(errors.Timeout,
		fmt.Sprintf("download of %s spots %d-%d timed out after %d attempts", x.acc, x.first, x.last, x.failures),
		x.lastErr)
}
