package download

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/retry"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySource fails the first n calls.
type flakySource struct {
	mu    sync.Mutex
	n     int
	calls int
}

func (s *flakySource) Fetch(ctx context.Context, acc string, first, last int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.n {
		return nil, fmt.Errorf("transient failure %d", s.calls)
	}
	return []byte(fmt.Sprintf("%s:%d-%d", acc, first, last)), nil
}

type failureList struct {
	accs []string
	err  error
}

func (l *failureList) Record(acc string) error {
	l.accs = append(l.accs, acc)
	return l.err
}

// fakeClock makes a Fetcher sleep in virtual time. waits collects the
// requested delays.
type fakeClock struct {
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) install(f *Fetcher) {
	f.now = func() time.Time { return c.now }
	f.wait = func(ctx context.Context, policy retry.Policy, retries int) error {
		_, d := policy.Retry(retries)
		c.waits = append(c.waits, d)
		c.now = c.now.Add(d)
		return ctx.Err()
	}
}

func newTestFetcher(src Source, failures FailureLog, budget time.Duration) (*Fetcher, *fakeClock) {
	opts := DefaultOpts
	opts.Budget = budget
	f := NewFetcher(src, failures, opts)
	clock := &fakeClock{now: time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)}
	clock.install(f)
	return f, clock
}

func TestFetchSucceedsAfterRetries(t *testing.T) {
	src := &flakySource{n: 2}
	var failures failureList
	f, clock := newTestFetcher(src, &failures, DefaultOpts.Budget)
	data, err := f.Fetch(context.Background(), "SRR1", 11, 20)
	require.NoError(t, err)
	expect.EQ(t, string(data), "SRR1:11-20")
	expect.EQ(t, src.calls, 3)
	expect.EQ(t, clock.waits, []time.Duration{3 * time.Second, 9 * time.Second})
	expect.EQ(t, len(failures.accs), 0)
}

func TestFetchTimesOut(t *testing.T) {
	src := &flakySource{n: 1 << 30}
	var failures failureList
	f, clock := newTestFetcher(src, &failures, 30*time.Second)
	_, err := f.Fetch(context.Background(), "SRR2", 1, 10)
	require.Error(t, err)
	expect.True(t, errors.Is(errors.Timeout, err), "%v", err)
	// 3s, 12s and 39s elapsed after the three waits; only the last one
	// exceeds the budget.
	expect.EQ(t, src.calls, 3)
	expect.EQ(t, clock.waits, []time.Duration{3 * time.Second, 9 * time.Second, 27 * time.Second})
	expect.EQ(t, failures.accs, []string{"SRR2"})
	expect.True(t, strings.Contains(err.Error(), "transient failure 3"), "%v", err)
}

func TestFetchFailureLogError(t *testing.T) {
	src := &flakySource{n: 1 << 30}
	failures := failureList{err: fmt.Errorf("read-only file system")}
	f, _ := newTestFetcher(src, &failures, time.Second)
	_, err := f.Fetch(context.Background(), "SRR3", 1, 10)
	require.Error(t, err)
	expect.False(t, errors.Is(errors.Timeout, err))
	expect.True(t, strings.Contains(err.Error(), "read-only file system"), "%v", err)
}

func TestFetchCancel(t *testing.T) {
	src := &flakySource{n: 1 << 30}
	f, clock := newTestFetcher(src, nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	inner := f.wait
	f.wait = func(ctx context.Context, policy retry.Policy, retries int) error {
		if retries == 2 {
			cancel()
		}
		return inner(ctx, policy, retries)
	}
	_, err := f.Fetch(ctx, "SRR4", 1, 10)
	assert.Equal(t, context.Canceled, err)
	expect.EQ(t, src.calls, 2)
	expect.EQ(t, len(clock.waits), 2)
}

func TestFetchStates(t *testing.T) {
	src := &flakySource{n: 1}
	f, _ := newTestFetcher(src, nil, time.Minute)
	var trace []string
	f.trace = func(acc string, from, to State) {
		trace = append(trace, from.String()+">"+to.String())
	}
	_, err := f.Fetch(context.Background(), "SRR5", 1, 10)
	require.NoError(t, err)
	expect.EQ(t, trace, []string{
		"idle>attempting",
		"attempting>backoff",
		"backoff>attempting",
		"attempting>succeeded",
	})

	trace = nil
	src = &flakySource{n: 1 << 30}
	f, _ = newTestFetcher(src, nil, 5*time.Second)
	f.trace = func(acc string, from, to State) {
		trace = append(trace, from.String()+">"+to.String())
	}
	_, err = f.Fetch(context.Background(), "SRR6", 1, 10)
	require.Error(t, err)
	expect.EQ(t, trace[len(trace)-1], "backoff>timedout")
	expect.EQ(t, State(42).String(), "state(42)")
}

func TestFastqDumpArgs(t *testing.T) {
	d := FastqDump{Path: "fastq-dump"}
	expect.EQ(t, strings.Join(d.Args("SRR7", 101, 200), " "),
		"-I -B -W -E --split-spot --skip-technical -N 101 -X 200 -Z SRR7")
}

func writeScript(t *testing.T, dir, name, body string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestFastqDump(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "fastqdump")
	defer testutil.NoCleanupOnError(t, cleanup, "tempdir:", dir)

	ok := writeScript(t, dir, "ok", `echo "$@"`)
	out, err := FastqDump{Path: ok}.Fetch(context.Background(), "SRR8", 1, 2)
	require.NoError(t, err)
	expect.EQ(t, string(out), "-I -B -W -E --split-spot --skip-technical -N 1 -X 2 -Z SRR8\n")

	bad := writeScript(t, dir, "bad", "echo 'warning' >&2\necho 'item not found' >&2\nexit 3\n")
	_, err = FastqDump{Path: bad}.Fetch(context.Background(), "SRR8", 1, 2)
	require.Error(t, err)
	expect.True(t, strings.Contains(err.Error(), "item not found"), "%v", err)

	_, err = FastqDump{Path: filepath.Join(dir, "missing")}.Fetch(context.Background(), "SRR8", 1, 2)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "missing"))
	expect.True(t, os.IsNotExist(statErr))
}
