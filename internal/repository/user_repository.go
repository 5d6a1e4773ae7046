package repository

import (
	"context"
	"errors"
	"time"

	"accounts/internal/domain/model"
)

var (
	// unique制約違反（email / user_nm）
	ErrDuplicateKey = errors.New("duplicate key")

	// 保存済みrefresh tokenが提示されたものと一致しない
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)

// 検索タイプ（srchType）
const (
	SearchTypeUserNm  = "userNm"
	SearchTypeEmlAddr = "emlAddr"
)

// 一覧検索の条件。空の項目は条件に含めない。
type UserListQuery struct {
	UserNm   string
	EmlAddr  string
	UserRole model.Role
	UseYn    model.YN
	DelYn    model.YN

	SrchType string
	SrchKywd string

	// Page<=0 ならページングしない
	Page   int
	PageSz int
}

// 部分更新。Setされた項目だけ書き込む。
type UserPatch struct {
	EmlAddr   model.Optional[string]
	UserNm    model.Optional[string]
	UserRole  model.Optional[model.Role]
	ProflImg  model.Optional[*string]
	UserBiogp model.Optional[*string]
	UseYn     model.Optional[model.YN]
	DelYn     model.Optional[model.YN]

	EncptPswd     model.Optional[string]
	ReshToken     model.Optional[*string]
	LastLgnDt     model.Optional[*time.Time]
	LastPswdChgDt model.Optional[*time.Time]
}

// user_infoの保存・取得を約束。見つからない場合は nil, nil を返す。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	FindByID(ctx context.Context, userNo int64) (*model.User, error)
	FindByEmail(ctx context.Context, emlAddr string) (*model.User, error)
	FindByUsername(ctx context.Context, userNm string) (*model.User, error)
	List(ctx context.Context, q UserListQuery) ([]model.User, int64, error)

	// updt_dtは常に更新。updt_noはactorNo（nilなら既存値、それもなければ本人）。
	Update(ctx context.Context, user *model.User, patch UserPatch, actorNo *int64) (*model.User, error)

	// 保存済みトークンがexpectedと一致する場合だけnextに差し替える
	RotateRefreshToken(ctx context.Context, userNo int64, expected string, next string) error

	SoftDelete(ctx context.Context, user *model.User, actorNo *int64) error
	SoftDeleteMany(ctx context.Context, users []*model.User, actorNo *int64) error
}
