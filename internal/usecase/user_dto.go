package usecase

import (
	"time"

	"accounts/internal/domain/model"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// API返却用。encptPswd / reshToken は常にnull。
type UserResponse struct {
	UserNo        int64      `json:"userNo"`
	EmlAddr       string     `json:"emlAddr"`
	UserNm        string     `json:"userNm"`
	UserRole      model.Role `json:"userRole"`
	ProflImg      *string    `json:"proflImg"`
	UserBiogp     *string    `json:"userBiogp"`
	EncptPswd     *string    `json:"encptPswd"`
	ReshToken     *string    `json:"reshToken"`
	UseYn         model.YN   `json:"useYn"`
	DelYn         model.YN   `json:"delYn"`
	LastLgnDt     *string    `json:"lastLgnDt"`
	LastPswdChgDt *string    `json:"lastPswdChgDt"`
	CrtNo         *int64     `json:"crtNo"`
	CrtDt         string     `json:"crtDt"`
	UpdtNo        *int64     `json:"updtNo"`
	UpdtDt        string     `json:"updtDt"`
	DelNo         *int64     `json:"delNo"`
	DelDt         *string    `json:"delDt"`
}

type UserListResponse struct {
	List     []UserResponse `json:"list"`
	TotalCnt int64          `json:"totalCnt"`
}

// model.UserをAPI返却用DTOに変換。
func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		UserNo:        u.UserNo,
		EmlAddr:       u.EmlAddr,
		UserNm:        u.UserNm,
		UserRole:      u.UserRole,
		ProflImg:      u.ProflImg,
		UserBiogp:     u.UserBiogp,
		EncptPswd:     nil,
		ReshToken:     nil,
		UseYn:         u.UseYn,
		DelYn:         u.DelYn,
		LastLgnDt:     formatTimePtr(u.LastLgnDt),
		LastPswdChgDt: formatTimePtr(u.LastPswdChgDt),
		CrtNo:         u.CrtNo,
		CrtDt:         formatTime(u.CrtDt),
		UpdtNo:        u.UpdtNo,
		UpdtDt:        formatTime(u.UpdtDt),
		DelNo:         u.DelNo,
		DelDt:         formatTimePtr(u.DelDt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
