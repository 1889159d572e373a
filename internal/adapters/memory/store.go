package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/kvetinski/phonebook/internal/domain"
	"github.com/kvetinski/phonebook/internal/service/contact"
)

// Store keeps contacts in insertion order. It owns its container and
// identity sequence; nothing else mutates them.
type Store struct {
	mu       sync.Mutex
	seq      *Sequence
	order    []string
	contacts map[string]domain.Contact
}

var _ contact.Store = (*Store)(nil)

func New(base int64) *Store {
	return &Store{
		seq:      NewSequence(base),
		contacts: make(map[string]domain.Contact),
	}
}

func (s *Store) List(_ context.Context) ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Contact, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.contacts[id])
	}

	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return domain.Contact{}, domain.ErrContactNotFound
	}

	return c, nil
}

func (s *Store) Insert(_ context.Context, c domain.Contact) (domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.seq.Next()
	for {
		if _, taken := s.contacts[c.ID]; !taken {
			break
		}
		c.ID = s.seq.Next()
	}

	s.contacts[c.ID] = c
	s.order = append(s.order, c.ID)

	return c, nil
}

func (s *Store) Update(_ context.Context, c domain.Contact) (domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[c.ID]
	if !ok {
		return domain.Contact{}, domain.ErrContactNotFound
	}
	c.CreatedAt = existing.CreatedAt
	s.contacts[c.ID] = c

	return c, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return domain.ErrContactNotFound
	}
	delete(s.contacts, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })

	return nil
}

// DeleteAll empties the store and rewinds the identity sequence.
func (s *Store) DeleteAll(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.order)
	s.order = nil
	clear(s.contacts)
	s.seq.Reset()

	return n, nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.order), nil
}
