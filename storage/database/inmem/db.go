package inmemdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/cpd"
	"github.com/edpsychconnect/connect/core/mentoring"
	"github.com/edpsychconnect/connect/core/portfolio"
)

type (
	DB struct {
		mutex   sync.RWMutex
		txMutex sync.Mutex
		tables  *tables
	}

	tables struct {
		profiles     *table[mentoring.Profile]
		requests     *table[mentoring.MentorshipRequest]
		mentorships  *table[mentoring.Mentorship]
		goals        *table[mentoring.Goal]
		meetings     *table[mentoring.Meeting]
		resources    *table[mentoring.Resource]
		feedback     *table[mentoring.Feedback]
		cpdProfiles  *table[cpd.Profile]
		activities   *table[cpd.Activity]
		achievements *table[portfolio.Achievement]
		reflections  *table[portfolio.Reflection]
	}

	// table keeps rows by primary key and remembers insertion order.
	table[T any] struct {
		rows map[string]T
		ids  []string
	}
)

func Open() (*DB, error) {
	return &DB{tables: newTables()}, nil
}

func newTables() *tables {
	return &tables{
		profiles:     newTable[mentoring.Profile](),
		requests:     newTable[mentoring.MentorshipRequest](),
		mentorships:  newTable[mentoring.Mentorship](),
		goals:        newTable[mentoring.Goal](),
		meetings:     newTable[mentoring.Meeting](),
		resources:    newTable[mentoring.Resource](),
		feedback:     newTable[mentoring.Feedback](),
		cpdProfiles:  newTable[cpd.Profile](),
		activities:   newTable[cpd.Activity](),
		achievements: newTable[portfolio.Achievement](),
		reflections:  newTable[portfolio.Reflection](),
	}
}

func (t *tables) clone() *tables {
	return &tables{
		profiles:     t.profiles.clone(),
		requests:     t.requests.clone(),
		mentorships:  t.mentorships.clone(),
		goals:        t.goals.clone(),
		meetings:     t.meetings.clone(),
		resources:    t.resources.clone(),
		feedback:     t.feedback.clone(),
		cpdProfiles:  t.cpdProfiles.clone(),
		activities:   t.activities.clone(),
		achievements: t.achievements.clone(),
		reflections:  t.reflections.clone(),
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.tables = newTables()
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) put(id string, row T) {
	if _, ok := t.rows[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = row
}

// all returns the rows in insertion order.
func (t *table[T]) all() []T {
	rows := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		rows = append(rows, t.rows[id])
	}
	return rows
}

func (t *table[T]) filter(keep func(T) bool) []T {
	rows := make([]T, 0)
	for _, id := range t.ids {
		if row := t.rows[id]; keep(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

func (t *table[T]) clone() *table[T] {
	c := &table[T]{rows: make(map[string]T, len(t.rows)), ids: make([]string, len(t.ids))}
	copy(c.ids, t.ids)
	for id, row := range t.rows {
		c.rows[id] = row
	}
	return c
}

type txRunner struct {
	db *DB
}

var _ core.TxRunner = (*txRunner)(nil) // interface compliance check

// NewTxRunner returns a TxRunner that restores a snapshot of db when fn fails.
// Transactions are serialized; exec is always nil.
// The snapshot covers the whole database, so a failed transaction also undoes writes
// made concurrently outside of any transaction.
func NewTxRunner(db *DB) core.TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) InTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	r.db.txMutex.Lock()
	defer r.db.txMutex.Unlock()

	r.db.mutex.RLock()
	snapshot := r.db.tables.clone()
	r.db.mutex.RUnlock()

	if err := fn(nil); err != nil {
		r.db.mutex.Lock()
		r.db.tables = snapshot
		r.db.mutex.Unlock()
		return err
	}
	return nil
}

// sortRows stable-sorts rows by ordering, falling back to def when ordering is empty.
// Fields missing from cmps are ignored.
func sortRows[T any](rows []T, ordering []core.DBOrdering, cmps map[string]func(a, b T) int, def ...core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = def
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(rows[i], rows[j]); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return false
	})
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// compareTimePtrs sorts nil after every time, like NULL in postgres.
func compareTimePtrs(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compareTimes(*a, *b)
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
