package repository

import (
	"context"

	"accounts/internal/domain/model"
)

// パスワード再設定チケットの保存先（メモリ / Redis を差し替え可能）
type ResetTicketStore interface {
	// 無ければ nil, nil
	Get(ctx context.Context, emlAddr string) (*model.ResetTicket, error)
	// 同じメールアドレスは後勝ちで上書き
	Set(ctx context.Context, emlAddr string, ticket model.ResetTicket) error
	Delete(ctx context.Context, emlAddr string) error
}
