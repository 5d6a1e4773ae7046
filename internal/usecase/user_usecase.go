package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"accounts/internal/domain/model"
	"accounts/internal/repository"
	"accounts/internal/security"
	"accounts/internal/validator"

	"go.uber.org/zap"
)

// POST /users の入力DTO
type CreateUserInput struct {
	EmlAddr   string
	UserNm    string
	Password  string
	UserRole  model.Role
	ProflImg  *string
	UserBiogp *string
	UseYn     model.YN
}

// PATCH /users/:id の入力DTO。nullや未指定の項目は変更しない。
type UpdateUserInput struct {
	EmlAddr   model.Optional[string]     `json:"emlAddr"`
	UserNm    model.Optional[string]     `json:"userNm"`
	UserRole  model.Optional[model.Role] `json:"userRole"`
	ProflImg  model.Optional[*string]    `json:"proflImg"`
	UserBiogp model.Optional[*string]    `json:"userBiogp"`
	UseYn     model.Optional[model.YN]   `json:"useYn"`
	DelYn     model.Optional[model.YN]   `json:"delYn"`
}

// 一括削除の結果
type DeleteManyOutput struct {
	DeletedCnt   int     `json:"deletedCnt"`
	NotFoundList []int64 `json:"notFoundList"`
}

type UserUsecase struct {
	users      repository.UserRepository
	tx         repository.TransactionManager
	hasher     security.PasswordHasher
	clock      Clock
	production bool
	logger     *zap.Logger
}

// DI
func NewUserUsecase(
	users repository.UserRepository,
	tx repository.TransactionManager,
	hasher security.PasswordHasher,
	clock Clock,
	production bool,
	logger *zap.Logger,
) *UserUsecase {
	return &UserUsecase{
		users:      users,
		tx:         tx,
		hasher:     hasher,
		clock:      clock,
		production: production,
		logger:     logger,
	}
}

// creatorNoは管理者作成のときだけ入る（自己登録はnil）
func (u *UserUsecase) Create(ctx context.Context, in CreateUserInput, creatorNo *int64) (*UserResponse, error) {
	if strings.TrimSpace(in.EmlAddr) == "" || strings.TrimSpace(in.UserNm) == "" || in.Password == "" || in.UserRole == "" {
		return nil, NewAppError(CodeValidationError, MsgValidationError)
	}
	if !validator.IsEmail(in.EmlAddr) {
		return nil, NewAppError(CodeValidationError, MsgValidationError)
	}
	if !in.UserRole.Valid() {
		return nil, NewAppError(CodeValidationError, MsgValidationError)
	}
	if in.UseYn != "" && !in.UseYn.Valid() {
		return nil, NewAppError(CodeValidationError, MsgValidationError)
	}

	//重複チェック（論理削除済みも含む）
	if err := u.ensureEmailFree(ctx, in.EmlAddr, 0); err != nil {
		return nil, err
	}
	if err := u.ensureUsernameFree(ctx, in.UserNm, 0); err != nil {
		return nil, err
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		u.logger.Error("create user: hash password", zap.Error(err))
		return nil, internalError()
	}

	created, err := u.users.Create(ctx, &model.User{
		EmlAddr:   in.EmlAddr,
		UserNm:    in.UserNm,
		UserRole:  in.UserRole,
		ProflImg:  in.ProflImg,
		UserBiogp: in.UserBiogp,
		EncptPswd: hashed,
		UseYn:     in.UseYn,
		CrtNo:     creatorNo,
		UpdtNo:    creatorNo,
	})
	if err != nil {
		return nil, u.writeError("create user", err)
	}

	out := toUserResponse(created)
	return &out, nil
}

func (u *UserUsecase) GetByID(ctx context.Context, userNo int64) (*UserResponse, error) {
	user, err := u.users.FindByID(ctx, userNo)
	if err != nil {
		u.logger.Error("get user", zap.Error(err), zap.Int64("userNo", userNo))
		return nil, internalError()
	}
	if user == nil {
		return nil, NewAppError(CodeNotFound, MsgUserNotFound)
	}

	out := toUserResponse(user)
	return &out, nil
}

func (u *UserUsecase) GetByEmail(ctx context.Context, emlAddr string) (*UserResponse, error) {
	user, err := u.users.FindByEmail(ctx, emlAddr)
	if err != nil {
		u.logger.Error("get user by email", zap.Error(err))
		return nil, internalError()
	}
	if user == nil {
		return nil, NewAppError(CodeNotFound, MsgUserNotFound)
	}

	out := toUserResponse(user)
	return &out, nil
}

func (u *UserUsecase) List(ctx context.Context, q repository.UserListQuery) (*UserListResponse, error) {
	if q.UserRole != "" && !q.UserRole.Valid() {
		return nil, NewAppError(CodeValidationError, MsgValidationError)
	}
	if (q.UseYn != "" && !q.UseYn.Valid()) || (q.DelYn != "" && !q.DelYn.Valid()) {
		return nil, NewAppError(CodeValidationError, MsgValidationError)
	}
	switch q.SrchType {
	case "", repository.SearchTypeUserNm, repository.SearchTypeEmlAddr:
	default:
		return nil, NewAppError(CodeValidationError, MsgValidationError)
	}
	if q.Page < 0 || q.PageSz < 0 {
		return nil, NewAppError(CodeValidationError, MsgValidationError)
	}

	users, total, err := u.users.List(ctx, q)
	if err != nil {
		u.logger.Error("list users", zap.Error(err))
		return nil, internalError()
	}

	out := &UserListResponse{
		List:     make([]UserResponse, 0, len(users)),
		TotalCnt: total,
	}
	for i := range users {
		out.List = append(out.List, toUserResponse(&users[i]))
	}
	return out, nil
}

// email / userNm は変更される場合だけ重複チェック（自分自身は除く）
func (u *UserUsecase) Update(ctx context.Context, userNo int64, in UpdateUserInput, updaterNo *int64) (*UserResponse, error) {
	user, err := u.users.FindByID(ctx, userNo)
	if err != nil {
		u.logger.Error("update user: find", zap.Error(err), zap.Int64("userNo", userNo))
		return nil, internalError()
	}
	if user == nil {
		return nil, NewAppError(CodeNotFound, MsgUserNotFound)
	}

	patch := repository.UserPatch{
		ProflImg:  in.ProflImg,
		UserBiogp: in.UserBiogp,
	}

	if v, ok := in.EmlAddr.Get(); ok {
		if !validator.IsEmail(v) {
			return nil, NewAppError(CodeValidationError, MsgValidationError)
		}
		if v != user.EmlAddr {
			if err := u.ensureEmailFree(ctx, v, user.UserNo); err != nil {
				return nil, err
			}
		}
		patch.EmlAddr = model.Some(v)
	}
	if v, ok := in.UserNm.Get(); ok {
		if strings.TrimSpace(v) == "" {
			return nil, NewAppError(CodeValidationError, MsgValidationError)
		}
		if v != user.UserNm {
			if err := u.ensureUsernameFree(ctx, v, user.UserNo); err != nil {
				return nil, err
			}
		}
		patch.UserNm = model.Some(v)
	}
	if v, ok := in.UserRole.Get(); ok {
		if !v.Valid() {
			return nil, NewAppError(CodeValidationError, MsgValidationError)
		}
		patch.UserRole = model.Some(v)
	}
	if v, ok := in.UseYn.Get(); ok {
		if !v.Valid() {
			return nil, NewAppError(CodeValidationError, MsgValidationError)
		}
		patch.UseYn = model.Some(v)
	}
	if v, ok := in.DelYn.Get(); ok {
		if !v.Valid() {
			return nil, NewAppError(CodeValidationError, MsgValidationError)
		}
		patch.DelYn = model.Some(v)
	}

	updated, err := u.users.Update(ctx, user, patch, updaterNo)
	if err != nil {
		return nil, u.writeError("update user", err)
	}
	if updated == nil {
		return nil, NewAppError(CodeNotFound, MsgUserNotFound)
	}

	out := toUserResponse(updated)
	return &out, nil
}

// 現在のパスワードは確認しない（確認はchange-password側）
func (u *UserUsecase) UpdatePassword(ctx context.Context, userNo int64, newPassword string, updaterNo *int64) error {
	if newPassword == "" {
		return NewAppError(CodeValidationError, MsgValidationError)
	}

	user, err := u.users.FindByID(ctx, userNo)
	if err != nil {
		u.logger.Error("update password: find", zap.Error(err), zap.Int64("userNo", userNo))
		return internalError()
	}
	if user == nil {
		return NewAppError(CodeNotFound, MsgUserNotFound)
	}

	hashed, err := u.hasher.Hash(newPassword)
	if err != nil {
		u.logger.Error("update password: hash", zap.Error(err), zap.Int64("userNo", userNo))
		return internalError()
	}

	now := u.clock.Now()
	updated, err := u.users.Update(ctx, user, repository.UserPatch{
		EncptPswd:     model.Some(hashed),
		LastPswdChgDt: model.Some(&now),
	}, updaterNo)
	if err != nil {
		return u.writeError("update password", err)
	}
	if updated == nil {
		return NewAppError(CodeNotFound, MsgUserNotFound)
	}
	return nil
}

// 論理削除。存在しない・削除済みはエラーにしない（メッセージだけ変える）。
func (u *UserUsecase) Delete(ctx context.Context, userNo int64, updaterNo *int64) (string, error) {
	user, err := u.users.FindByID(ctx, userNo)
	if err != nil {
		u.logger.Error("delete user: find", zap.Error(err), zap.Int64("userNo", userNo))
		return "", internalError()
	}
	if user == nil || user.IsDeleted() {
		return u.notFoundDeleteMessage(), nil
	}

	if err := u.users.SoftDelete(ctx, user, updaterNo); err != nil {
		u.logger.Error("delete user", zap.Error(err), zap.Int64("userNo", userNo))
		return "", internalError()
	}
	return MsgUserDeleted, nil
}

// 見つかったものだけ削除し、件数を返す（振り分けと削除は同じTx）
func (u *UserUsecase) DeleteMany(ctx context.Context, userNoList []int64, updaterNo *int64) (*DeleteManyOutput, string, error) {
	if len(userNoList) == 0 {
		return nil, "", NewAppError(CodeValidationError, MsgNoUserNoList)
	}

	out := &DeleteManyOutput{NotFoundList: []int64{}}

	err := u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		seen := make(map[int64]struct{}, len(userNoList))
		found := make([]*model.User, 0, len(userNoList))

		for _, no := range userNoList {
			if _, dup := seen[no]; dup {
				continue
			}
			seen[no] = struct{}{}

			user, err := r.Users().FindByID(ctx, no)
			if err != nil {
				return fmt.Errorf("find user %d: %w", no, err)
			}
			if user == nil || user.IsDeleted() {
				out.NotFoundList = append(out.NotFoundList, no)
				continue
			}
			found = append(found, user)
		}

		if len(found) > 0 {
			if err := r.Users().SoftDeleteMany(ctx, found, updaterNo); err != nil {
				return fmt.Errorf("soft delete users: %w", err)
			}
		}
		out.DeletedCnt = len(found)
		return nil
	})
	if err != nil {
		u.logger.Error("delete users", zap.Error(err))
		return nil, "", internalError()
	}

	return out, fmt.Sprintf(MsgUsersDeletedTemplate, out.DeletedCnt), nil
}

func (u *UserUsecase) notFoundDeleteMessage() string {
	if u.production {
		return MsgUserDeleted
	}
	return MsgUserNotFound
}

func (u *UserUsecase) ensureEmailFree(ctx context.Context, emlAddr string, self int64) error {
	existing, err := u.users.FindByEmail(ctx, emlAddr)
	if err != nil {
		u.logger.Error("check email", zap.Error(err))
		return internalError()
	}
	if existing != nil && existing.UserNo != self {
		return NewAppError(CodeConflict, MsgEmailConflict)
	}
	return nil
}

func (u *UserUsecase) ensureUsernameFree(ctx context.Context, userNm string, self int64) error {
	existing, err := u.users.FindByUsername(ctx, userNm)
	if err != nil {
		u.logger.Error("check username", zap.Error(err))
		return internalError()
	}
	if existing != nil && existing.UserNo != self {
		return NewAppError(CodeConflict, MsgUsernameConflict)
	}
	return nil
}

// unique制約違反は409相当、それ以外は500
func (u *UserUsecase) writeError(op string, err error) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return NewAppError(CodeConflict, MsgDuplicateUser)
	}
	u.logger.Error(op, zap.Error(err))
	return internalError()
}
