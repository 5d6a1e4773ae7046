package model

import "time"

type Role string

const (
	RoleUser Role = "USER"
)

// 有効なロールか
func (r Role) Valid() bool {
	return r == RoleUser
}

// Y/Nフラグ
type YN string

const (
	Yes YN = "Y"
	No  YN = "N"
)

func (v YN) Valid() bool {
	return v == Yes || v == No
}

// user_infoテーブル
type User struct {
	UserNo        int64      `gorm:"column:user_no;primaryKey;autoIncrement"`
	EmlAddr       string     `gorm:"column:eml_addr;type:varchar(255);uniqueIndex;not null"`
	UserNm        string     `gorm:"column:user_nm;type:varchar(100);uniqueIndex;not null"`
	UserRole      Role       `gorm:"column:user_role;type:varchar(20);not null;default:'USER'"`
	ProflImg      *string    `gorm:"column:profl_img"`
	UserBiogp     *string    `gorm:"column:user_biogp"`
	EncptPswd     string     `gorm:"column:encpt_pswd;not null"`
	ReshToken     *string    `gorm:"column:resh_token"`
	UseYn         YN         `gorm:"column:use_yn;type:varchar(1);not null;default:'Y'"`
	DelYn         YN         `gorm:"column:del_yn;type:varchar(1);not null;default:'N'"`
	LastLgnDt     *time.Time `gorm:"column:last_lgn_dt"`
	LastPswdChgDt *time.Time `gorm:"column:last_pswd_chg_dt"`
	CrtNo         *int64     `gorm:"column:crt_no"`
	CrtDt         time.Time  `gorm:"column:crt_dt;not null"`
	UpdtNo        *int64     `gorm:"column:updt_no"`
	UpdtDt        time.Time  `gorm:"column:updt_dt;not null"`
	DelNo         *int64     `gorm:"column:del_no"`
	DelDt         *time.Time `gorm:"column:del_dt"`
}

func (User) TableName() string {
	return "user_info"
}

// ログイン可能か（use_yn=Y かつ del_yn=N）
func (u *User) IsActive() bool {
	return u.UseYn == Yes && u.DelYn == No
}

func (u *User) IsDeleted() bool {
	return u.DelYn == Yes
}
