package infer

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// Ledger is an append-only list of accessions kept in a local file, one per
// line, optionally followed by a tab and the library layout. Lines already
// in the file when it is opened are loaded so that an interrupted run can be
// resumed. A Ledger is safe for concurrent use.
type Ledger struct {
	path string

	mu   sync.Mutex
	f    *os.File
	w    *tsv.Writer
	seen map[string]string
}

// OpenLedger opens or creates the ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, seen: make(map[string]string)}
	if err := l.load(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.E(err, "opening ledger")
	}
	l.f = f
	l.w = tsv.NewWriter(f)
	return l, nil
}

func (l *Ledger) load() error {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.E(err, "reading ledger")
	}
	defer f.Close() // nolint: errcheck
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		acc, layout := line, ""
		if i := strings.IndexByte(line, '\t'); i >= 0 {
			acc, layout = line[:i], line[i+1:]
		}
		l.seen[acc] = layout
	}
	if err := scanner.Err(); err != nil {
		return errors.E(err, "reading ledger", l.path)
	}
	return nil
}

// Contains tells whether acc is in the ledger.
func (l *Ledger) Contains(acc string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[acc]
	return ok
}

// Layout returns the layout recorded with acc, if any.
func (l *Ledger) Layout(acc string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	layout, ok := l.seen[acc]
	return layout, ok
}

// Len returns the number of distinct accessions in the ledger.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Add appends acc, and layout if it is not empty, and flushes the line to
// the file.
func (l *Ledger) Add(acc, layout string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.WriteString(acc)
	if layout != "" {
		l.w.WriteString(layout)
	}
	l.w.EndLine()
	if err := l.w.Flush(); err != nil {
		return errors.E(err, "appending to", l.path)
	}
	l.seen[acc] = layout
	return nil
}

// Record appends acc without a layout. It implements download.FailureLog.
func (l *Ledger) Record(acc string) error { return l.Add(acc, "") }

// Close closes the ledger file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}
