package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"accounts/internal/domain/model"
	domainrepo "accounts/internal/repository"

	"github.com/redis/go-redis/v9"
)

const resetTicketKeyPrefix = "reset_ticket:"

// 複数プロセスで共有する場合のRedis実装
type resetTicketRedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// ttlはリセットトークンの有効期限に合わせる
func NewResetTicketRedisStore(client *redis.Client, ttl time.Duration) domainrepo.ResetTicketStore {
	return &resetTicketRedisStore{client: client, ttl: ttl}
}

func (s *resetTicketRedisStore) Get(ctx context.Context, emlAddr string) (*model.ResetTicket, error) {
	data, err := s.client.Get(ctx, resetTicketKey(emlAddr)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var t model.ResetTicket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode reset ticket: %w", err)
	}
	return &t, nil
}

func (s *resetTicketRedisStore) Set(ctx context.Context, emlAddr string, ticket model.ResetTicket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, resetTicketKey(emlAddr), data, s.ttl).Err()
}

func (s *resetTicketRedisStore) Delete(ctx context.Context, emlAddr string) error {
	return s.client.Del(ctx, resetTicketKey(emlAddr)).Err()
}

func resetTicketKey(emlAddr string) string {
	return resetTicketKeyPrefix + emlAddr
}
