package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// トークン種別（typeクレーム）
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
	TypeReset   = "reset"
)

// 署名不正・期限切れ・種別違いなど、検証失敗はすべてこれ
var ErrInvalidToken = errors.New("invalid token")

// トークンに載せるユーザー情報
type Subject struct {
	UserNo   int64
	UserNm   string
	Email    string
	UserRole string
}

type Claims struct {
	UserNm   string `json:"userNm,omitempty"`
	Email    string `json:"email,omitempty"`
	UserRole string `json:"userRole,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// subをユーザー番号として返す
func (c *Claims) UserNo() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

// access / refresh は別の秘密鍵で署名する
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
	now           func() time.Time
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		resetTTL:      cfg.ResetTTL,
		now:           time.Now,
	}
}

// テスト用に時計を差し替える
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *Manager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }
func (m *Manager) ResetTTL() time.Duration   { return m.resetTTL }

func (m *Manager) IssueAccess(s Subject) (string, error) {
	return m.issue(s, TypeAccess, m.accessSecret, m.accessTTL)
}

func (m *Manager) IssueRefresh(s Subject) (string, error) {
	return m.issue(s, TypeRefresh, m.refreshSecret, m.refreshTTL)
}

// リセットトークンはaccessと同じ鍵、typeで区別する
func (m *Manager) IssueReset(s Subject) (string, error) {
	return m.issue(s, TypeReset, m.accessSecret, m.resetTTL)
}

func (m *Manager) VerifyAccess(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, TypeAccess, m.accessSecret)
}

func (m *Manager) VerifyRefresh(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, TypeRefresh, m.refreshSecret)
}

func (m *Manager) VerifyReset(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, TypeReset, m.accessSecret)
}

func (m *Manager) issue(s Subject, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := m.now()

	claims := Claims{
		UserNm:   s.UserNm,
		Email:    s.Email,
		UserRole: s.UserRole,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(s.UserNo, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// 同じ秒に発行しても別のトークンになるように
			ID: uuid.NewString(),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (m *Manager) verify(tokenStr string, typ string, secret []byte) (*Claims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || tok == nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	//access と refresh の取り違えを防ぐ
	if claims.Type != typ {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserNo(); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
