// Package memory is an in-process sheet used by tests and the memory backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"mindcash/internal/core"
	ports "mindcash/internal/sheets"
)

type Row struct {
	OwnerEmail  string
	Transaction core.Transaction
}

type Store struct {
	mu   sync.Mutex
	rows []Row
}

var (
	_ ports.TransactionAppender = (*Store)(nil)
	_ ports.TransactionDeleter  = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, ownerEmail string, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, Row{OwnerEmail: ownerEmail, Transaction: t})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.Transaction.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}
