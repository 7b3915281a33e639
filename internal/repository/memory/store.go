// Package memory is an in-process Store. Transactions stage their writes
// and apply them under one lock at commit, after checking that every
// updated row still has the version the transaction loaded.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/repository"
)

type table[T any] struct {
	rows    map[string]T
	id      func(*T) string
	version func(*T) *int
	// unique keys mirror the Postgres unique indexes; "" means no key.
	unique []func(*T) string
}

func newTable[T any](id func(*T) string, version func(*T) *int, unique ...func(*T) string) *table[T] {
	return &table[T]{rows: make(map[string]T), id: id, version: version, unique: unique}
}

type write[T any] struct {
	row    T
	create bool
	expect int
}

type staged[T any] struct {
	base *table[T]
	puts map[string]write[T]
	dels map[string]bool
}

func newStaged[T any](base *table[T]) *staged[T] {
	return &staged[T]{base: base, puts: make(map[string]write[T]), dels: make(map[string]bool)}
}

// Store keeps every table in memory.
type Store struct {
	mu       sync.RWMutex
	tickets  *table[domain.Ticket]
	history  *table[domain.TicketHistory]
	users    *table[domain.User]
	personas *table[domain.Persona]
	sessions *table[domain.ChatSession]
	reports  *table[domain.Report]
	devices  *table[domain.Device]
	commits  int
	writes   int

	historySeq atomic.Int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tickets: newTable(func(t *domain.Ticket) string { return t.ID }, func(t *domain.Ticket) *int { return &t.Version }),
		history: newTable[domain.TicketHistory](func(h *domain.TicketHistory) string { return h.ID }, nil),
		users: newTable(func(u *domain.User) string { return u.ID }, func(u *domain.User) *int { return &u.Version },
			func(u *domain.User) string { return strings.ToLower(u.Email) },
			func(u *domain.User) string {
				if u.GoogleID == nil {
					return ""
				}
				return *u.GoogleID
			},
		),
		personas: newTable(func(p *domain.Persona) string { return p.ID }, func(p *domain.Persona) *int { return &p.Version }),
		sessions: newTable[domain.ChatSession](func(s *domain.ChatSession) string { return s.ID }, nil),
		reports:  newTable(func(r *domain.Report) string { return r.ID }, func(r *domain.Report) *int { return &r.Version }),
		devices: newTable[domain.Device](func(d *domain.Device) string { return d.ID }, nil,
			func(d *domain.Device) string { return d.PushToken },
		),
	}
}

// Commits counts committed transactions that wrote at least one row.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Writes counts committed row writes and deletes.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Repos returns repositories whose writes commit immediately.
func (s *Store) Repos() repository.Repositories {
	return s.begin(true).repos()
}

// WithinTx stages fn's writes and commits them atomically.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	tx := s.begin(false)
	if err := fn(ctx, tx.repos()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

type txn struct {
	store    *Store
	auto     bool
	tickets  *staged[domain.Ticket]
	history  *staged[domain.TicketHistory]
	users    *staged[domain.User]
	personas *staged[domain.Persona]
	sessions *staged[domain.ChatSession]
	reports  *staged[domain.Report]
	devices  *staged[domain.Device]
}

func (s *Store) begin(auto bool) *txn {
	return &txn{
		store:    s,
		auto:     auto,
		tickets:  newStaged(s.tickets),
		history:  newStaged(s.history),
		users:    newStaged(s.users),
		personas: newStaged(s.personas),
		sessions: newStaged(s.sessions),
		reports:  newStaged(s.reports),
		devices:  newStaged(s.devices),
	}
}

func (tx *txn) repos() repository.Repositories {
	return repository.Repositories{
		Tickets:  ticketRepo{tx},
		History:  historyRepo{tx},
		Users:    userRepo{tx},
		Personas: personaRepo{tx},
		Sessions: sessionRepo{tx},
		Reports:  reportRepo{tx},
		Devices:  deviceRepo{tx},
	}
}

// flush commits immediately for auto-commit views and resets staging.
func (tx *txn) flush() error {
	if !tx.auto {
		return nil
	}
	err := tx.commit()
	fresh := tx.store.begin(true)
	*tx = *fresh
	return err
}

func (tx *txn) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := firstErr(
		check(tx.tickets), check(tx.history), check(tx.users), check(tx.personas),
		check(tx.sessions), check(tx.reports), check(tx.devices),
	); err != nil {
		return err
	}
	n := apply(tx.tickets) + apply(tx.history) + apply(tx.users) + apply(tx.personas) +
		apply(tx.sessions) + apply(tx.reports) + apply(tx.devices)
	if n > 0 {
		s.commits++
		s.writes += n
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// check runs with the store lock held.
func check[T any](st *staged[T]) error {
	for id, w := range st.puts {
		current, exists := st.base.rows[id]
		if w.create {
			if exists {
				return repository.ErrStale
			}
			continue
		}
		if !exists {
			return repository.ErrNotFound
		}
		if st.base.version != nil && *st.base.version(&current) != w.expect {
			return repository.ErrStale
		}
	}
	for id := range st.dels {
		if _, exists := st.base.rows[id]; !exists {
			return repository.ErrNotFound
		}
	}
	return checkUnique(st)
}

// checkUnique rejects a commit that would leave two rows sharing a unique
// key. It runs with the store lock held.
func checkUnique[T any](st *staged[T]) error {
	if len(st.puts) == 0 || len(st.base.unique) == 0 {
		return nil
	}
	for i, key := range st.base.unique {
		owners := make(map[string]string, len(st.base.rows))
		for id, row := range st.base.rows {
			if _, replaced := st.puts[id]; replaced || st.dels[id] {
				continue
			}
			if k := key(&row); k != "" {
				owners[k] = id
			}
		}
		for id, w := range st.puts {
			k := key(&w.row)
			if k == "" {
				continue
			}
			if other, taken := owners[k]; taken && other != id {
				return fmt.Errorf("%w: unique key %d", repository.ErrDuplicate, i)
			}
			owners[k] = id
		}
	}
	return nil
}

func apply[T any](st *staged[T]) int {
	for id, w := range st.puts {
		st.base.rows[id] = w.row
	}
	for id := range st.dels {
		delete(st.base.rows, id)
	}
	return len(st.puts) + len(st.dels)
}

func (tx *txn) rlock() func() {
	tx.store.mu.RLock()
	return tx.store.mu.RUnlock
}

func get[T any](tx *txn, st *staged[T], id string) (*T, error) {
	if st.dels[id] {
		return nil, repository.ErrNotFound
	}
	if w, ok := st.puts[id]; ok {
		row := w.row
		return &row, nil
	}
	defer tx.rlock()()
	row, ok := st.base.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func all[T any](tx *txn, st *staged[T], keep func(*T) bool) []T {
	unlock := tx.rlock()
	merged := make(map[string]T, len(st.base.rows))
	for id, row := range st.base.rows {
		merged[id] = row
	}
	unlock()
	for id, w := range st.puts {
		merged[id] = w.row
	}
	for id := range st.dels {
		delete(merged, id)
	}
	out := make([]T, 0, len(merged))
	for _, row := range merged {
		if keep == nil || keep(&row) {
			out = append(out, row)
		}
	}
	return out
}

func create[T any](tx *txn, st *staged[T], row *T) error {
	id := st.base.id(row)
	if _, err := get(tx, st, id); err == nil {
		return repository.ErrStale
	}
	if st.base.version != nil {
		*st.base.version(row) = 1
	}
	st.puts[id] = write[T]{row: *row, create: true}
	return tx.flush()
}

func update[T any](tx *txn, st *staged[T], row *T) error {
	id := st.base.id(row)
	current, err := get(tx, st, id)
	if err != nil {
		return err
	}
	w := write[T]{row: *row}
	if prev, ok := st.puts[id]; ok {
		w.create = prev.create
		w.expect = prev.expect
	} else if st.base.version != nil {
		w.expect = *st.base.version(current)
	}
	if st.base.version != nil {
		if *st.base.version(row) != *st.base.version(current) {
			return repository.ErrStale
		}
		*st.base.version(row) = *st.base.version(current) + 1
		w.row = *row
	}
	st.puts[id] = w
	return tx.flush()
}

func remove[T any](tx *txn, st *staged[T], id string) error {
	if _, err := get(tx, st, id); err != nil {
		return err
	}
	if w, ok := st.puts[id]; ok && w.create {
		delete(st.puts, id)
		return nil
	}
	delete(st.puts, id)
	st.dels[id] = true
	return tx.flush()
}

func page[T any](rows []T, limit, offset int) ([]T, int) {
	limit, offset = repository.NormalizePage(limit, offset)
	total := len(rows)
	if offset >= total {
		return []T{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return rows[offset:end], total
}

func sortBy[T any](rows []T, less func(a, b *T) bool) {
	sort.SliceStable(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) })
}
