package model

import "time"

// パスワード再設定チケット（メールアドレスごとに1件、DBには保存しない）
type ResetTicket struct {
	Token     string    `json:"token"`
	UserNo    int64     `json:"userNo"`
	CreatedAt time.Time `json:"createdAt"`
}
