package usecase

import (
	"context"
	"time"

	"accounts/internal/domain/model"
	"accounts/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// Mock: UserRepository
// =====================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, userNo int64) (*model.User, error) {
	args := m.Called(ctx, userNo)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, emlAddr string) (*model.User, error) {
	args := m.Called(ctx, emlAddr)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, userNm string) (*model.User, error) {
	args := m.Called(ctx, userNm)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, q repository.UserListQuery) ([]model.User, int64, error) {
	args := m.Called(ctx, q)
	users, _ := args.Get(0).([]model.User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User, patch repository.UserPatch, actorNo *int64) (*model.User, error) {
	args := m.Called(ctx, user, patch, actorNo)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) RotateRefreshToken(ctx context.Context, userNo int64, expected string, next string) error {
	args := m.Called(ctx, userNo, expected, next)
	return args.Error(0)
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, user *model.User, actorNo *int64) error {
	args := m.Called(ctx, user, actorNo)
	return args.Error(0)
}

func (m *MockUserRepository) SoftDeleteMany(ctx context.Context, users []*model.User, actorNo *int64) error {
	args := m.Called(ctx, users, actorNo)
	return args.Error(0)
}

// =====================
// Mock: ResetTicketStore
// =====================

type MockResetTicketStore struct {
	mock.Mock
}

func (m *MockResetTicketStore) Get(ctx context.Context, emlAddr string) (*model.ResetTicket, error) {
	args := m.Called(ctx, emlAddr)
	t, _ := args.Get(0).(*model.ResetTicket)
	return t, args.Error(1)
}

func (m *MockResetTicketStore) Set(ctx context.Context, emlAddr string, ticket model.ResetTicket) error {
	args := m.Called(ctx, emlAddr, ticket)
	return args.Error(0)
}

func (m *MockResetTicketStore) Delete(ctx context.Context, emlAddr string) error {
	args := m.Called(ctx, emlAddr)
	return args.Error(0)
}

// =====================
// Mock: Mailer
// =====================

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendResetPassword(ctx context.Context, to string, resetToken string) error {
	args := m.Called(ctx, to, resetToken)
	return args.Error(0)
}

// =====================
// Fakes
// =====================

// Txを張らずにそのままモックのrepoを渡す
type passThroughTx struct {
	users repository.UserRepository
}

func (tx passThroughTx) WithinTx(_ context.Context, fn func(r repository.TxRepos) error) error {
	return fn(tx)
}

func (tx passThroughTx) Users() repository.UserRepository { return tx.users }

// その場で実行する
type inlineRunner struct{}

func (inlineRunner) Run(task func()) { task() }

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
