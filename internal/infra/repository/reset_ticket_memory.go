package repository

import (
	"context"
	"sync"

	"accounts/internal/domain/model"
	domainrepo "accounts/internal/repository"
)

// プロセス内のmap。期限切れの掃除はしない（トークン自体のexpで弾く）。
type resetTicketMemoryStore struct {
	mu      sync.Mutex
	tickets map[string]model.ResetTicket
}

func NewResetTicketMemoryStore() domainrepo.ResetTicketStore {
	return &resetTicketMemoryStore{tickets: map[string]model.ResetTicket{}}
}

func (s *resetTicketMemoryStore) Get(_ context.Context, emlAddr string) (*model.ResetTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[emlAddr]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *resetTicketMemoryStore) Set(_ context.Context, emlAddr string, ticket model.ResetTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickets[emlAddr] = ticket
	return nil
}

func (s *resetTicketMemoryStore) Delete(_ context.Context, emlAddr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tickets, emlAddr)
	return nil
}
