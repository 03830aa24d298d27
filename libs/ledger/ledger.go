// Package ledger implements the append-only CSV record streams a backtest
// run produces: the event log (one line per event kind internal/app
// registers it for), the strategy log, and the portfolio log, which
// internal/app creates with its header and no component appends rows to.
// Every store writes plain UTF-8 text and follows the append-only, mutex-guarded, sequence-numbered file store
// pattern used elsewhere in this codebase for decision traces.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store is an append-only CSV file with an auto-incrementing sequence
// column prepended to every record. It is safe for concurrent use, though
// the simulation core itself only ever writes from the dispatcher's single
// goroutine.
type Store struct {
	mu   sync.Mutex
	path string
	seq  uint64
}

// Open creates (or truncates) a CSV file at dir/name and writes header as
// its first line.
func Open(dir, name string, header []string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger.Open: mkdir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("ledger.Open: create: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "seq,recorded_at,%s\n", joinCSV(header))
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("ledger.Open: header: %w", err)
	}
	return &Store{path: path}, nil
}

// Append writes one CSV record, prefixed with an auto-incrementing
// sequence number and the wall-clock write time.
func (s *Store) Append(fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.seq--
		return fmt.Errorf("ledger.Store.Append: open: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%d,%s,%s\n", s.seq, time.Now().UTC().Format(time.RFC3339), joinCSV(fields))
	if _, err := f.WriteString(line); err != nil {
		s.seq--
		return fmt.Errorf("ledger.Store.Append: write: %w", err)
	}
	return nil
}

func joinCSV(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out
}
