package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"accounts/internal/domain/model"
	domainrepo "accounts/internal/repository"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db, now: utcNow}
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	now := r.now()

	u := *user
	if u.UserRole == "" {
		u.UserRole = model.RoleUser
	}
	if u.UseYn == "" {
		u.UseYn = model.Yes
	}
	if u.DelYn == "" {
		u.DelYn = model.No
	}
	if u.CrtDt.IsZero() {
		u.CrtDt = now
	}
	u.UpdtDt = now

	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, userNo int64) (*model.User, error) {
	return r.findOne(ctx, "user_no = ?", userNo)
}

// emailでユーザーを1件取得
func (r *userGormRepository) FindByEmail(ctx context.Context, emlAddr string) (*model.User, error) {
	return r.findOne(ctx, "eml_addr = ?", emlAddr)
}

// ユーザー名で1件取得
func (r *userGormRepository) FindByUsername(ctx context.Context, userNm string) (*model.User, error) {
	return r.findOne(ctx, "user_nm = ?", userNm)
}

func (r *userGormRepository) findOne(ctx context.Context, cond string, arg interface{}) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where(cond, arg).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

// 検索条件つき一覧。totalはページング前の件数。
func (r *userGormRepository) List(ctx context.Context, q domainrepo.UserListQuery) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return []model.User{}, 0, err
	}

	tx := r.filtered(ctx, q).Order("user_no asc")
	if q.Page > 0 {
		size := q.PageSz
		if size <= 0 {
			size = 10
		}
		// 範囲外のページは空（オフセットのオーバーフローも防ぐ）
		if int64(q.Page-1) > total/int64(size) {
			return []model.User{}, total, nil
		}
		tx = tx.Offset((q.Page - 1) * size).Limit(size)
	}

	if err := tx.Find(&users).Error; err != nil {
		return []model.User{}, 0, err
	}

	return users, total, nil
}

func (r *userGormRepository) filtered(ctx context.Context, q domainrepo.UserListQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.User{})

	if q.UserNm != "" {
		tx = tx.Where("user_nm = ?", q.UserNm)
	}
	if q.EmlAddr != "" {
		tx = tx.Where("eml_addr = ?", q.EmlAddr)
	}
	if q.UserRole != "" {
		tx = tx.Where("user_role = ?", q.UserRole)
	}
	if q.UseYn != "" {
		tx = tx.Where("use_yn = ?", q.UseYn)
	}
	if q.DelYn != "" {
		tx = tx.Where("del_yn = ?", q.DelYn)
	}

	// キーワードは大文字小文字を区別しない部分一致。srchType未指定ならユーザー名 or メール
	if kw := strings.TrimSpace(q.SrchKywd); kw != "" {
		like := "%" + kw + "%"
		switch q.SrchType {
		case domainrepo.SearchTypeUserNm:
			tx = tx.Where("LOWER(user_nm) LIKE LOWER(?)", like)
		case domainrepo.SearchTypeEmlAddr:
			tx = tx.Where("LOWER(eml_addr) LIKE LOWER(?)", like)
		default:
			tx = tx.Where(r.db.Where("LOWER(user_nm) LIKE LOWER(?)", like).Or("LOWER(eml_addr) LIKE LOWER(?)", like))
		}
	}

	return tx
}

// 指定された項目だけ更新する。
func (r *userGormRepository) Update(ctx context.Context, user *model.User, patch domainrepo.UserPatch, actorNo *int64) (*model.User, error) {
	updated := *user
	cols := map[string]interface{}{}

	if v, ok := patch.EmlAddr.Get(); ok {
		cols["eml_addr"] = v
		updated.EmlAddr = v
	}
	if v, ok := patch.UserNm.Get(); ok {
		cols["user_nm"] = v
		updated.UserNm = v
	}
	if v, ok := patch.UserRole.Get(); ok {
		cols["user_role"] = v
		updated.UserRole = v
	}
	if v, ok := patch.ProflImg.Get(); ok {
		cols["profl_img"] = nullable(v)
		updated.ProflImg = v
	}
	if v, ok := patch.UserBiogp.Get(); ok {
		cols["user_biogp"] = nullable(v)
		updated.UserBiogp = v
	}
	if v, ok := patch.UseYn.Get(); ok {
		cols["use_yn"] = v
		updated.UseYn = v
	}
	if v, ok := patch.DelYn.Get(); ok {
		cols["del_yn"] = v
		updated.DelYn = v
	}
	if v, ok := patch.EncptPswd.Get(); ok {
		cols["encpt_pswd"] = v
		updated.EncptPswd = v
	}
	if v, ok := patch.ReshToken.Get(); ok {
		cols["resh_token"] = nullable(v)
		updated.ReshToken = v
	}
	if v, ok := patch.LastLgnDt.Get(); ok {
		cols["last_lgn_dt"] = nullable(v)
		updated.LastLgnDt = v
	}
	if v, ok := patch.LastPswdChgDt.Get(); ok {
		cols["last_pswd_chg_dt"] = nullable(v)
		updated.LastPswdChgDt = v
	}

	//更新者・更新日時は必ず付ける
	updtNo := resolveActor(user, actorNo)
	now := r.now()
	cols["updt_no"] = updtNo
	cols["updt_dt"] = now
	updated.UpdtNo = &updtNo
	updated.UpdtDt = now

	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_no = ?", user.UserNo).
		Updates(cols)
	if res.Error != nil {
		return nil, translate(res.Error)
	}

	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return nil, nil
	}

	return &updated, nil
}

// resh_tokenがexpectedのときだけ差し替える（同じトークンでの二重refreshを防ぐ）
func (r *userGormRepository) RotateRefreshToken(ctx context.Context, userNo int64, expected string, next string) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_no = ? AND resh_token = ?", userNo, expected).
		Updates(map[string]interface{}{
			"resh_token": next,
			"updt_no":    userNo,
			"updt_dt":    r.now(),
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return domainrepo.ErrRefreshTokenMismatch
	}
	return nil
}

// 論理削除（use_yn=N, del_yn=Y）。行は残す。
func (r *userGormRepository) SoftDelete(ctx context.Context, user *model.User, actorNo *int64) error {
	return softDelete(r.db.WithContext(ctx), user, actorNo, r.now())
}

// 複数件をまとめて論理削除
func (r *userGormRepository) SoftDeleteMany(ctx context.Context, users []*model.User, actorNo *int64) error {
	now := r.now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range users {
			if err := softDelete(tx, u, actorNo, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func softDelete(tx *gorm.DB, user *model.User, actorNo *int64, now time.Time) error {
	updtNo := resolveActor(user, actorNo)

	err := tx.Model(&model.User{}).
		Where("user_no = ?", user.UserNo).
		Updates(map[string]interface{}{
			"use_yn":  model.No,
			"del_yn":  model.Yes,
			"del_no":  updtNo,
			"del_dt":  now,
			"updt_no": updtNo,
			"updt_dt": now,
		}).Error
	if err != nil {
		return err
	}

	user.UseYn = model.No
	user.DelYn = model.Yes
	user.DelNo = &updtNo
	user.DelDt = &now
	user.UpdtNo = &updtNo
	user.UpdtDt = now
	return nil
}

// 操作者が分からなければ既存のupdt_no、それも無ければ本人
func resolveActor(user *model.User, actorNo *int64) int64 {
	if actorNo != nil {
		return *actorNo
	}
	if user.UpdtNo != nil {
		return *user.UpdtNo
	}
	return user.UserNo
}

func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainrepo.ErrDuplicateKey
	}
	return err
}
