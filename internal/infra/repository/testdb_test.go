package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"accounts/internal/domain/model"
	"accounts/internal/infra/db"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// テストごとに独立したインメモリDB
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormDB
}

// 時計を固定したリポジトリ
func newTestUserRepo(t *testing.T, now time.Time) *userGormRepository {
	t.Helper()
	return &userGormRepository{
		db:  newTestDB(t),
		now: func() time.Time { return now },
	}
}

func seedUser(t *testing.T, r *userGormRepository, email string, name string) *model.User {
	t.Helper()
	u, err := r.Create(t.Context(), &model.User{
		EmlAddr:   email,
		UserNm:    name,
		EncptPswd: "hash",
	})
	require.NoError(t, err)
	return u
}
