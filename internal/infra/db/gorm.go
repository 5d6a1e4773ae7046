package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"accounts/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite://"

// Connect はDBに接続して *gorm.DB を返す。
// sqlite://<path> ならSQLite（ローカル開発用）。
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, sqliteScheme) {
		return OpenSQLite(strings.TrimPrefix(dsn, sqliteScheme), debug)
	}

	// DATABASE_URL が無ければ POSTGRES_* から組み立てる
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getenv("POSTGRES_HOST", "localhost"),
			getenv("POSTGRES_PORT", "5432"),
			getenv("POSTGRES_USER", "postgres"),
			getenv("POSTGRES_PASSWORD", "postgres"),
			getenv("POSTGRES_DB", "app"),
			getenv("POSTGRES_SSLMODE", "disable"),
		)
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), NewGormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	//コネクションプール
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(15)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return gormDB, nil
}

// SQLiteは書き込みが直列なので接続は1本
func OpenSQLite(path string, debug bool) (*gorm.DB, error) {
	gormDB, err := gorm.Open(sqlite.Open(path), NewGormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return gormDB, nil
}

// unique違反をgorm.ErrDuplicatedKeyに変換させる
func NewGormConfig(debug bool) *gorm.Config {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log.New(os.Stdout, "\r\n", log.LstdFlags), level),
	}
}

// 見つからないのはリポジトリの通常の結果（nil, nil）なのでログに出さない
func newGormLogger(w logger.Writer, level logger.LogLevel) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  true,
	})
}

// テーブル作成
func Migrate(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(&model.User{})
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
