// Package journal keeps an append-only audit trail of workflow transactions.
package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultDir   = "./wal/journal"
	segmentLimit = 100
	maxSegments  = 10

	stepKeyPrefix = "step_"
)

// Status lifecycle point of a journalled step.
type Status string

const (
	StatusStarted   Status = "started"
	StatusConfirmed Status = "confirmed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Entry one journalled workflow step.
type Entry struct {
	RunID    string    `json:"run_id"`
	Workflow string    `json:"workflow"`
	Step     string    `json:"step"`
	Status   Status    `json:"status"`
	TxHash   string    `json:"tx_hash,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Time     time.Time `json:"time"`
}

// Record entry with its WAL index.
type Record struct {
	Index uint64
	Entry Entry
}

// WALStore persists journal entries in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens or creates the journal in dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes entry at the next index.
func (s *WALStore) Append(entry Entry) error {
	if s == nil || s.wal == nil {
		return errors.New("journal is not initialized")
	}
	if entry.RunID == "" || entry.Step == "" {
		return fmt.Errorf("journal entry needs run id and step, got %q/%q", entry.RunID, entry.Step)
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshal journal entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Write(s.wal.CurrentIndex()+1, stepKeyPrefix+entry.RunID, payload)
}

// RecordsAfter returns entries written after index, oldest first.
func (s *WALStore) RecordsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			// evicted segment
			continue
		}
		if !strings.HasPrefix(key, stepKeyPrefix) {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, errors.Wrapf(err, "decode journal entry %d", idx)
		}
		records = append(records, Record{Index: idx, Entry: entry})
	}

	return records, nil
}

// Run returns every entry whose run id starts with runID; history prints shortened ids.
func (s *WALStore) Run(runID string) ([]Record, error) {
	all, err := s.RecordsAfter(0)
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, r := range all {
		if strings.HasPrefix(r.Entry.RunID, runID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CurrentIndex latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
