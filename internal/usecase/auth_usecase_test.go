package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"accounts/internal/domain/model"
	"accounts/internal/repository"
	"accounts/internal/security"
	"accounts/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type authDeps struct {
	users   *MockUserRepository
	tickets *MockResetTicketStore
	mailer  *MockMailer
	tokens  *token.Manager
	hasher  security.PasswordHasher
	uc      *AuthUsecase
}

func newAuthDeps(t *testing.T) *authDeps {
	t.Helper()

	d := &authDeps{
		users:   new(MockUserRepository),
		tickets: new(MockResetTicketStore),
		mailer:  new(MockMailer),
		tokens: token.NewManager(token.Config{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			ResetTTL:      15 * time.Minute,
		}),
		hasher: security.NewBcryptPasswordHasher(bcrypt.MinCost),
	}
	d.uc = NewAuthUsecase(d.users, d.tickets, d.hasher, d.tokens, d.mailer, inlineRunner{}, fixedClock{now: testNow}, zap.NewNop())

	t.Cleanup(func() {
		d.users.AssertExpectations(t)
		d.tickets.AssertExpectations(t)
		d.mailer.AssertExpectations(t)
	})
	return d
}

func (d *authDeps) activeUser(t *testing.T, password string) *model.User {
	t.Helper()
	hashed, err := d.hasher.Hash(password)
	require.NoError(t, err)
	return &model.User{
		UserNo:    1,
		EmlAddr:   "a@x.com",
		UserNm:    "alice",
		UserRole:  model.RoleUser,
		EncptPswd: hashed,
		UseYn:     model.Yes,
		DelYn:     model.No,
	}
}

func assertCode(t *testing.T, err error, code ResponseCode) {
	t.Helper()
	ae, ok := AsAppError(err)
	require.True(t, ok, "want AppError, got %v", err)
	assert.Equal(t, code, ae.Code)
}

func actorIs(no int64) interface{} {
	return mock.MatchedBy(func(p *int64) bool { return p != nil && *p == no })
}

func TestAuth_Login_Success(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "password123")

	d.users.On("FindByEmail", mock.Anything, "a@x.com").Return(user, nil)
	d.users.On("Update", mock.Anything, user, mock.MatchedBy(func(p repository.UserPatch) bool {
		tok, ok := p.ReshToken.Get()
		at, atOK := p.LastLgnDt.Get()
		return ok && tok != nil && *tok != "" && atOK && at.Equal(testNow)
	}), actorIs(1)).Return(user, nil)

	pair, err := d.uc.Login(context.Background(), LoginInput{EmlAddr: "a@x.com", Password: "password123"})
	require.NoError(t, err)

	claims, err := d.tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, "alice", claims.UserNm)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "USER", claims.UserRole)

	_, err = d.tokens.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

func TestAuth_Login_SameMessageForUnknownEmailAndWrongPassword(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "password123")

	d.users.On("FindByEmail", mock.Anything, "none@x.com").Return(nil, nil)
	d.users.On("FindByEmail", mock.Anything, "a@x.com").Return(user, nil)

	_, errUnknown := d.uc.Login(context.Background(), LoginInput{EmlAddr: "none@x.com", Password: "password123"})
	_, errWrong := d.uc.Login(context.Background(), LoginInput{EmlAddr: "a@x.com", Password: "wrong"})

	assertCode(t, errUnknown, CodeUnauthorized)
	assertCode(t, errWrong, CodeUnauthorized)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	d.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_Login_Disabled(t *testing.T) {
	for name, mutate := range map[string]func(u *model.User){
		"inactive": func(u *model.User) { u.UseYn = model.No },
		"deleted":  func(u *model.User) { u.DelYn = model.Yes },
	} {
		t.Run(name, func(t *testing.T) {
			d := newAuthDeps(t)
			user := d.activeUser(t, "password123")
			mutate(user)
			d.users.On("FindByEmail", mock.Anything, "a@x.com").Return(user, nil)

			_, err := d.uc.Login(context.Background(), LoginInput{EmlAddr: "a@x.com", Password: "password123"})
			assertCode(t, err, CodeForbidden)
		})
	}
}

func TestAuth_Login_RepositoryError(t *testing.T) {
	d := newAuthDeps(t)
	d.users.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("db down"))

	_, err := d.uc.Login(context.Background(), LoginInput{EmlAddr: "a@x.com", Password: "x"})
	assertCode(t, err, CodeInternalServerError)
}

func (d *authDeps) refreshFor(t *testing.T, user *model.User) string {
	t.Helper()
	tok, err := d.tokens.IssueRefresh(token.Subject{UserNo: user.UserNo, UserNm: user.UserNm, Email: user.EmlAddr})
	require.NoError(t, err)
	user.ReshToken = &tok
	return tok
}

func TestAuth_Refresh_Rotates(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")
	old := d.refreshFor(t, user)

	var rotated string
	d.users.On("FindByID", mock.Anything, int64(1)).Return(user, nil)
	d.users.On("RotateRefreshToken", mock.Anything, int64(1), old, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { rotated = args.String(3) }).
		Return(nil)

	pair, err := d.uc.Refresh(context.Background(), old)
	require.NoError(t, err)

	assert.NotEqual(t, old, pair.RefreshToken)
	assert.Equal(t, rotated, pair.RefreshToken)
	_, err = d.tokens.VerifyAccess(pair.AccessToken)
	assert.NoError(t, err)
}

func TestAuth_Refresh_ReusedTokenRejected(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")
	old := d.refreshFor(t, user)
	// 既に別のトークンに差し替わっている
	d.refreshFor(t, user)

	d.users.On("FindByID", mock.Anything, int64(1)).Return(user, nil)

	_, err := d.uc.Refresh(context.Background(), old)
	assertCode(t, err, CodeUnauthorized)
	d.users.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_Refresh_LostRace(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")
	old := d.refreshFor(t, user)

	d.users.On("FindByID", mock.Anything, int64(1)).Return(user, nil)
	d.users.On("RotateRefreshToken", mock.Anything, int64(1), old, mock.Anything).Return(repository.ErrRefreshTokenMismatch)

	_, err := d.uc.Refresh(context.Background(), old)
	assertCode(t, err, CodeUnauthorized)
}

func TestAuth_Refresh_Invalid(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")

	access, err := d.tokens.IssueAccess(token.Subject{UserNo: 1})
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", access} {
		_, err := d.uc.Refresh(context.Background(), tok)
		assertCode(t, err, CodeUnauthorized)
	}

	// 削除されたユーザー
	d.users.On("FindByID", mock.Anything, int64(1)).Return(nil, nil).Once()
	valid := d.refreshFor(t, user)
	_, err = d.uc.Refresh(context.Background(), valid)
	assertCode(t, err, CodeUnauthorized)
}

func TestAuth_Refresh_DisabledUser(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")
	user.UseYn = model.No
	old := d.refreshFor(t, user)

	d.users.On("FindByID", mock.Anything, int64(1)).Return(user, nil)

	_, err := d.uc.Refresh(context.Background(), old)
	assertCode(t, err, CodeForbidden)
}

func TestAuth_Logout_ClearsMatchingToken(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")
	tok := d.refreshFor(t, user)

	d.users.On("FindByID", mock.Anything, int64(1)).Return(user, nil)
	d.users.On("Update", mock.Anything, user, mock.MatchedBy(func(p repository.UserPatch) bool {
		v, ok := p.ReshToken.Get()
		return ok && v == nil
	}), actorIs(1)).Return(user, nil)

	d.uc.Logout(context.Background(), tok)
}

func TestAuth_Logout_IgnoresUnknownTokens(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")
	stale := d.refreshFor(t, user)
	d.refreshFor(t, user)

	d.users.On("FindByID", mock.Anything, int64(1)).Return(user, nil)

	d.uc.Logout(context.Background(), "")
	d.uc.Logout(context.Background(), "garbage")
	d.uc.Logout(context.Background(), stale)

	d.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_RequestPasswordReset_UnknownEmail(t *testing.T) {
	d := newAuthDeps(t)
	d.users.On("FindByEmail", mock.Anything, "none@x.com").Return(nil, nil)

	err := d.uc.RequestPasswordReset(context.Background(), "none@x.com")
	require.NoError(t, err)

	d.tickets.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	d.mailer.AssertNotCalled(t, "SendResetPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_RequestPasswordReset_IssuesTicketAndMails(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")

	var stored model.ResetTicket
	d.users.On("FindByEmail", mock.Anything, "a@x.com").Return(user, nil)
	d.tickets.On("Set", mock.Anything, "a@x.com", mock.AnythingOfType("model.ResetTicket")).
		Run(func(args mock.Arguments) { stored = args.Get(2).(model.ResetTicket) }).
		Return(nil)
	d.mailer.On("SendResetPassword", mock.Anything, "a@x.com", mock.AnythingOfType("string")).Return(nil)

	require.NoError(t, d.uc.RequestPasswordReset(context.Background(), "a@x.com"))

	assert.Equal(t, int64(1), stored.UserNo)
	assert.True(t, testNow.Equal(stored.CreatedAt))

	claims, err := d.tokens.VerifyReset(stored.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, token.TypeReset, claims.Type)

	d.mailer.AssertCalled(t, "SendResetPassword", mock.Anything, "a@x.com", stored.Token)
}

func TestAuth_RequestPasswordReset_MailFailureStillSucceeds(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")

	d.users.On("FindByEmail", mock.Anything, "a@x.com").Return(user, nil)
	d.tickets.On("Set", mock.Anything, "a@x.com", mock.Anything).Return(nil)
	d.mailer.On("SendResetPassword", mock.Anything, "a@x.com", mock.Anything).Return(errors.New("smtp down"))

	assert.NoError(t, d.uc.RequestPasswordReset(context.Background(), "a@x.com"))
}

func (d *authDeps) resetTokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	tok, err := d.tokens.IssueReset(token.Subject{UserNo: user.UserNo, Email: user.EmlAddr})
	require.NoError(t, err)
	return tok
}

func TestAuth_ResetPassword_Success(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "old")
	tok := d.resetTokenFor(t, user)

	var newHash string
	d.tickets.On("Get", mock.Anything, "a@x.com").Return(&model.ResetTicket{Token: tok, UserNo: 1}, nil)
	d.users.On("FindByID", mock.Anything, int64(1)).Return(user, nil)
	d.users.On("Update", mock.Anything, user, mock.MatchedBy(func(p repository.UserPatch) bool {
		at, ok := p.LastPswdChgDt.Get()
		return p.EncptPswd.IsSet() && ok && at.Equal(testNow)
	}), actorIs(1)).
		Run(func(args mock.Arguments) { newHash, _ = args.Get(2).(repository.UserPatch).EncptPswd.Get() }).
		Return(user, nil)
	d.tickets.On("Delete", mock.Anything, "a@x.com").Return(nil).Once()

	err := d.uc.ResetPassword(context.Background(), ResetPasswordInput{EmlAddr: "a@x.com", ResetToken: tok, NewPassword: "new"})
	require.NoError(t, err)

	assert.True(t, d.hasher.Verify("new", newHash))
	assert.False(t, d.hasher.Verify("old", newHash))
}

func TestAuth_ResetPassword_NoTicket(t *testing.T) {
	d := newAuthDeps(t)
	d.tickets.On("Get", mock.Anything, "a@x.com").Return(nil, nil)

	err := d.uc.ResetPassword(context.Background(), ResetPasswordInput{EmlAddr: "a@x.com", ResetToken: "t", NewPassword: "n"})
	assertCode(t, err, CodeBadRequest)
}

func TestAuth_ResetPassword_MismatchDiscardsTicket(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "old")
	stored := d.resetTokenFor(t, user)
	other := d.resetTokenFor(t, user)

	d.tickets.On("Get", mock.Anything, "a@x.com").Return(&model.ResetTicket{Token: stored, UserNo: 1}, nil)
	d.tickets.On("Delete", mock.Anything, "a@x.com").Return(nil).Once()

	err := d.uc.ResetPassword(context.Background(), ResetPasswordInput{EmlAddr: "a@x.com", ResetToken: other, NewPassword: "n"})
	assertCode(t, err, CodeBadRequest)
	d.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_ResetPassword_WrongTokenTypeDiscardsTicket(t *testing.T) {
	d := newAuthDeps(t)

	// チケットにaccess tokenが入っていてもtype=resetでなければ通さない
	access, err := d.tokens.IssueAccess(token.Subject{UserNo: 1, Email: "a@x.com"})
	require.NoError(t, err)

	d.tickets.On("Get", mock.Anything, "a@x.com").Return(&model.ResetTicket{Token: access, UserNo: 1}, nil)
	d.tickets.On("Delete", mock.Anything, "a@x.com").Return(nil).Once()

	err = d.uc.ResetPassword(context.Background(), ResetPasswordInput{EmlAddr: "a@x.com", ResetToken: access, NewPassword: "n"})
	assertCode(t, err, CodeBadRequest)
	ae, _ := AsAppError(err)
	assert.Equal(t, MsgResetTokenInvalid, ae.Message)
}

func TestAuth_ResetPassword_ExpiredToken(t *testing.T) {
	d := newAuthDeps(t)
	past := d.tokens.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	tok, err := past.IssueReset(token.Subject{UserNo: 1, Email: "a@x.com"})
	require.NoError(t, err)

	d.tickets.On("Get", mock.Anything, "a@x.com").Return(&model.ResetTicket{Token: tok, UserNo: 1}, nil)
	d.tickets.On("Delete", mock.Anything, "a@x.com").Return(nil).Once()

	err = d.uc.ResetPassword(context.Background(), ResetPasswordInput{EmlAddr: "a@x.com", ResetToken: tok, NewPassword: "n"})
	assertCode(t, err, CodeBadRequest)
}

func TestAuth_ResetPassword_UserGone(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "old")
	tok := d.resetTokenFor(t, user)

	d.tickets.On("Get", mock.Anything, "a@x.com").Return(&model.ResetTicket{Token: tok, UserNo: 1}, nil)
	d.users.On("FindByID", mock.Anything, int64(1)).Return(nil, nil)
	d.tickets.On("Delete", mock.Anything, "a@x.com").Return(nil).Once()

	err := d.uc.ResetPassword(context.Background(), ResetPasswordInput{EmlAddr: "a@x.com", ResetToken: tok, NewPassword: "n"})
	assertCode(t, err, CodeNotFound)
}

func TestAuth_ChangePassword(t *testing.T) {
	t.Run("user not found", func(t *testing.T) {
		d := newAuthDeps(t)
		d.users.On("FindByID", mock.Anything, int64(1)).Return(nil, nil)

		err := d.uc.ChangePassword(context.Background(), 1, ChangePasswordInput{CurrentPassword: "a", NewPassword: "b"})
		assertCode(t, err, CodeNotFound)
	})

	t.Run("wrong current password", func(t *testing.T) {
		d := newAuthDeps(t)
		d.users.On("FindByID", mock.Anything, int64(1)).Return(d.activeUser(t, "current"), nil)

		err := d.uc.ChangePassword(context.Background(), 1, ChangePasswordInput{CurrentPassword: "nope", NewPassword: "b"})
		assertCode(t, err, CodeUnauthorized)
	})

	t.Run("same password", func(t *testing.T) {
		d := newAuthDeps(t)
		d.users.On("FindByID", mock.Anything, int64(1)).Return(d.activeUser(t, "current"), nil)

		err := d.uc.ChangePassword(context.Background(), 1, ChangePasswordInput{CurrentPassword: "current", NewPassword: "current"})
		assertCode(t, err, CodeBadRequest)
	})

	t.Run("success", func(t *testing.T) {
		d := newAuthDeps(t)
		user := d.activeUser(t, "current")
		d.users.On("FindByID", mock.Anything, int64(1)).Return(user, nil)
		d.users.On("Update", mock.Anything, user, mock.MatchedBy(func(p repository.UserPatch) bool {
			h, ok := p.EncptPswd.Get()
			return ok && d.hasher.Verify("next", h) && p.LastPswdChgDt.IsSet()
		}), actorIs(1)).Return(user, nil)

		err := d.uc.ChangePassword(context.Background(), 1, ChangePasswordInput{CurrentPassword: "current", NewPassword: "next"})
		assert.NoError(t, err)
	})
}

func TestAuth_Authenticate(t *testing.T) {
	d := newAuthDeps(t)
	user := d.activeUser(t, "pw")

	access, err := d.tokens.IssueAccess(token.Subject{UserNo: 1})
	require.NoError(t, err)
	ghost, err := d.tokens.IssueAccess(token.Subject{UserNo: 2})
	require.NoError(t, err)

	d.users.On("FindByID", mock.Anything, int64(1)).Return(user, nil)
	d.users.On("FindByID", mock.Anything, int64(2)).Return(nil, nil)

	userNo, err := d.uc.Authenticate(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userNo)

	_, err = d.uc.Authenticate(context.Background(), ghost)
	assertCode(t, err, CodeUnauthorized)

	_, err = d.uc.Authenticate(context.Background(), "garbage")
	assertCode(t, err, CodeUnauthorized)
}
