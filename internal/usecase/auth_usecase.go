package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"accounts/internal/domain/model"
	"accounts/internal/mail"
	"accounts/internal/metrics"
	"accounts/internal/repository"
	"accounts/internal/security"
	"accounts/internal/token"

	"go.uber.org/zap"
)

// バックグラウンドのメール送信を待つ上限
const mailSendTimeout = 30 * time.Second

// JWTの発行・検証を約束
type TokenService interface {
	IssueAccess(s token.Subject) (string, error)
	IssueRefresh(s token.Subject) (string, error)
	IssueReset(s token.Subject) (string, error)
	VerifyAccess(tokenStr string) (*token.Claims, error)
	VerifyRefresh(tokenStr string) (*token.Claims, error)
	VerifyReset(tokenStr string) (*token.Claims, error)
}

type LoginInput struct {
	EmlAddr  string
	Password string
}

type ResetPasswordInput struct {
	EmlAddr     string
	ResetToken  string
	NewPassword string
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// handlerがCookieに詰める
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthUsecase struct {
	users   repository.UserRepository
	tickets repository.ResetTicketStore
	hasher  security.PasswordHasher
	tokens  TokenService
	mailer  mail.Mailer
	runner  TaskRunner
	clock   Clock
	logger  *zap.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	tickets repository.ResetTicketStore,
	hasher security.PasswordHasher,
	tokens TokenService,
	mailer mail.Mailer,
	runner TaskRunner,
	clock Clock,
	logger *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:   users,
		tickets: tickets,
		hasher:  hasher,
		tokens:  tokens,
		mailer:  mailer,
		runner:  runner,
		clock:   clock,
		logger:  logger,
	}
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	//ユーザー取得
	user, err := u.users.FindByEmail(ctx, in.EmlAddr)
	if err != nil {
		u.logger.Error("login: find user", zap.Error(err))
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, internalError()
	}
	//どちらが違うかは教えない
	if user == nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, NewAppError(CodeUnauthorized, MsgLoginFailed)
	}

	//停止・削除済みユーザーはログイン不可
	if !user.IsActive() {
		metrics.LoginAttemptsTotal.WithLabelValues("disabled").Inc()
		return nil, NewAppError(CodeForbidden, MsgUserDisabled)
	}

	//パスワード照合
	if !u.hasher.Verify(in.Password, user.EncptPswd) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, NewAppError(CodeUnauthorized, MsgLoginFailed)
	}

	pair, err := u.issuePair(user)
	if err != nil {
		u.logger.Error("login: issue tokens", zap.Error(err), zap.Int64("userNo", user.UserNo))
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, internalError()
	}

	//refresh tokenと最終ログイン日時を保存
	now := u.clock.Now()
	refresh := pair.RefreshToken
	updated, err := u.users.Update(ctx, user, repository.UserPatch{
		ReshToken: model.Some(&refresh),
		LastLgnDt: model.Some(&now),
	}, &user.UserNo)
	if err != nil {
		u.logger.Error("login: save refresh token", zap.Error(err), zap.Int64("userNo", user.UserNo))
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, internalError()
	}
	if updated == nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, NewAppError(CodeUnauthorized, MsgLoginFailed)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return pair, nil
}

// 保存済みトークンと一致したときだけ消す。結果に関わらず成功扱い。
func (u *AuthUsecase) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	claims, err := u.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return
	}
	userNo, _ := claims.UserNo()

	user, err := u.users.FindByID(ctx, userNo)
	if err != nil {
		u.logger.Warn("logout: find user", zap.Error(err), zap.Int64("userNo", userNo))
		return
	}
	if user == nil || user.ReshToken == nil || *user.ReshToken != refreshToken {
		return
	}

	if _, err := u.users.Update(ctx, user, repository.UserPatch{
		ReshToken: model.Some[*string](nil),
	}, &userNo); err != nil {
		u.logger.Warn("logout: clear refresh token", zap.Error(err), zap.Int64("userNo", userNo))
	}
}

// refresh tokenのローテーション。一度使ったトークンは二度と通らない。
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := u.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		return nil, NewAppError(CodeUnauthorized, MsgRefreshTokenInvalid)
	}
	userNo, _ := claims.UserNo()

	user, err := u.users.FindByID(ctx, userNo)
	if err != nil {
		u.logger.Error("refresh: find user", zap.Error(err), zap.Int64("userNo", userNo))
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		return nil, internalError()
	}

	//保存済みと違う＝古いトークンの再利用
	if user == nil || user.ReshToken == nil || *user.ReshToken != refreshToken {
		metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		return nil, NewAppError(CodeUnauthorized, MsgRefreshTokenInvalid)
	}
	if !user.IsActive() {
		metrics.TokenRefreshTotal.WithLabelValues("disabled").Inc()
		return nil, NewAppError(CodeForbidden, MsgUserDisabled)
	}

	pair, err := u.issuePair(user)
	if err != nil {
		u.logger.Error("refresh: issue tokens", zap.Error(err), zap.Int64("userNo", userNo))
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		return nil, internalError()
	}

	if err := u.users.RotateRefreshToken(ctx, userNo, refreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenMismatch) {
			metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
			return nil, NewAppError(CodeUnauthorized, MsgRefreshTokenInvalid)
		}
		u.logger.Error("refresh: rotate token", zap.Error(err), zap.Int64("userNo", userNo))
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		return nil, internalError()
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return pair, nil
}

// 存在しないメールでも同じ成功を返す（アカウント列挙対策）
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, emlAddr string) error {
	user, err := u.users.FindByEmail(ctx, emlAddr)
	if err != nil {
		u.logger.Error("reset request: find user", zap.Error(err))
		metrics.PasswordResetTotal.WithLabelValues("request", "error").Inc()
		return internalError()
	}
	if user == nil {
		metrics.PasswordResetTotal.WithLabelValues("request", "unknown_email").Inc()
		return nil
	}

	resetToken, err := u.tokens.IssueReset(token.Subject{
		UserNo: user.UserNo,
		Email:  user.EmlAddr,
	})
	if err != nil {
		u.logger.Error("reset request: issue token", zap.Error(err), zap.Int64("userNo", user.UserNo))
		metrics.PasswordResetTotal.WithLabelValues("request", "error").Inc()
		return internalError()
	}

	//同じメールへの再要求は後勝ち
	if err := u.tickets.Set(ctx, emlAddr, model.ResetTicket{
		Token:     resetToken,
		UserNo:    user.UserNo,
		CreatedAt: u.clock.Now(),
	}); err != nil {
		u.logger.Error("reset request: save ticket", zap.Error(err), zap.Int64("userNo", user.UserNo))
		metrics.PasswordResetTotal.WithLabelValues("request", "error").Inc()
		return internalError()
	}

	to := user.EmlAddr
	u.runner.Run(func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()
		if err := u.mailer.SendResetPassword(mailCtx, to, resetToken); err != nil {
			u.logger.Error("reset request: send mail", zap.Error(err), zap.String("to", to))
		}
	})

	metrics.PasswordResetTotal.WithLabelValues("request", "issued").Inc()
	return nil
}

// チケットと一致し、かつ有効なresetトークンのときだけ再設定する。失敗したらチケットは破棄。
func (u *AuthUsecase) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	ticket, err := u.tickets.Get(ctx, in.EmlAddr)
	if err != nil {
		u.logger.Error("reset: load ticket", zap.Error(err))
		return internalError()
	}
	if ticket == nil {
		metrics.PasswordResetTotal.WithLabelValues("confirm", "no_ticket").Inc()
		return NewAppError(CodeBadRequest, MsgResetTokenNotFound)
	}

	if subtle.ConstantTimeCompare([]byte(ticket.Token), []byte(in.ResetToken)) != 1 {
		u.discardTicket(ctx, in.EmlAddr)
		metrics.PasswordResetTotal.WithLabelValues("confirm", "mismatch").Inc()
		return NewAppError(CodeBadRequest, MsgResetTokenNotFound)
	}

	claims, err := u.tokens.VerifyReset(in.ResetToken)
	if err != nil || claims.Email != in.EmlAddr {
		u.discardTicket(ctx, in.EmlAddr)
		metrics.PasswordResetTotal.WithLabelValues("confirm", "invalid").Inc()
		return NewAppError(CodeBadRequest, MsgResetTokenInvalid)
	}

	user, err := u.users.FindByID(ctx, ticket.UserNo)
	if err != nil {
		u.logger.Error("reset: find user", zap.Error(err), zap.Int64("userNo", ticket.UserNo))
		return internalError()
	}
	if user == nil {
		u.discardTicket(ctx, in.EmlAddr)
		return NewAppError(CodeNotFound, MsgUserNotFound)
	}

	if err := u.storePassword(ctx, user, in.NewPassword); err != nil {
		return err
	}

	u.discardTicket(ctx, in.EmlAddr)
	metrics.PasswordResetTotal.WithLabelValues("confirm", "success").Inc()
	return nil
}

// ログイン中ユーザーのパスワード変更
func (u *AuthUsecase) ChangePassword(ctx context.Context, userNo int64, in ChangePasswordInput) error {
	user, err := u.users.FindByID(ctx, userNo)
	if err != nil {
		u.logger.Error("change password: find user", zap.Error(err), zap.Int64("userNo", userNo))
		return internalError()
	}
	if user == nil {
		return NewAppError(CodeNotFound, MsgUserNotFound)
	}

	if !u.hasher.Verify(in.CurrentPassword, user.EncptPswd) {
		return NewAppError(CodeUnauthorized, MsgCurrentPasswordWrong)
	}

	//同じパスワードへの変更はエラー
	if in.NewPassword == in.CurrentPassword {
		return NewAppError(CodeBadRequest, MsgNewPasswordSame)
	}

	return u.storePassword(ctx, user, in.NewPassword)
}

// access tokenを検証し、ユーザーが存在すればユーザー番号を返す
func (u *AuthUsecase) Authenticate(ctx context.Context, accessToken string) (int64, error) {
	claims, err := u.tokens.VerifyAccess(accessToken)
	if err != nil {
		return 0, NewAppError(CodeUnauthorized, MsgTokenInvalid)
	}
	userNo, _ := claims.UserNo()

	user, err := u.users.FindByID(ctx, userNo)
	if err != nil {
		u.logger.Error("authenticate: find user", zap.Error(err), zap.Int64("userNo", userNo))
		return 0, internalError()
	}
	if user == nil {
		return 0, NewAppError(CodeUnauthorized, MsgUserNotFound)
	}
	return user.UserNo, nil
}

func (u *AuthUsecase) issuePair(user *model.User) (*TokenPair, error) {
	sub := token.Subject{
		UserNo:   user.UserNo,
		UserNm:   user.UserNm,
		Email:    user.EmlAddr,
		UserRole: string(user.UserRole),
	}

	access, err := u.tokens.IssueAccess(sub)
	if err != nil {
		return nil, err
	}
	refresh, err := u.tokens.IssueRefresh(sub)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ハッシュ化して保存。last_pswd_chg_dt / updt_* も更新。
func (u *AuthUsecase) storePassword(ctx context.Context, user *model.User, plain string) error {
	hashed, err := u.hasher.Hash(plain)
	if err != nil {
		u.logger.Error("hash password", zap.Error(err), zap.Int64("userNo", user.UserNo))
		return internalError()
	}

	now := u.clock.Now()
	updated, err := u.users.Update(ctx, user, repository.UserPatch{
		EncptPswd:     model.Some(hashed),
		LastPswdChgDt: model.Some(&now),
	}, &user.UserNo)
	if err != nil {
		u.logger.Error("store password", zap.Error(err), zap.Int64("userNo", user.UserNo))
		return internalError()
	}
	if updated == nil {
		return NewAppError(CodeNotFound, MsgUserNotFound)
	}
	return nil
}

func (u *AuthUsecase) discardTicket(ctx context.Context, emlAddr string) {
	if err := u.tickets.Delete(ctx, emlAddr); err != nil {
		u.logger.Warn("discard reset ticket", zap.Error(err))
	}
}
