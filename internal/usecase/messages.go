package usecase

// 認証
const (
	MsgLoginSuccess          = "Login succeeded."
	MsgLoginFailed           = "Email or password is incorrect."
	MsgUserDisabled          = "This account is disabled."
	MsgLogoutSuccess         = "Logout succeeded."
	MsgRefreshSuccess        = "Token refreshed."
	MsgRefreshTokenInvalid   = "Refresh token is invalid."
	MsgTokenInvalid          = "Token is invalid."
	MsgResetRequestSuccess   = "A password reset email has been sent."
	MsgResetSuccess          = "Password has been reset."
	MsgResetTokenInvalid     = "Password reset token is invalid or expired."
	MsgResetTokenNotFound    = "Password reset token was not found."
	MsgChangePasswordSuccess = "Password has been changed."
	MsgCurrentPasswordWrong  = "Current password is incorrect."
	MsgNewPasswordSame       = "New password must differ from the current password."
)

// ユーザー
const (
	MsgUserCreated          = "User created."
	MsgEmailConflict        = "Email already exists."
	MsgUsernameConflict     = "Username already exists."
	MsgDuplicateUser        = "Email or username already exists."
	MsgUserFound            = "User found."
	MsgUserListFound        = "User list found."
	MsgUserNotFound         = "User not found."
	MsgUserUpdated          = "User updated."
	MsgUserDeleted          = "User deleted."
	MsgUsersDeletedTemplate = "%d users deleted."
	MsgPasswordUpdated      = "Password updated."
	MsgNoUserNoList         = "userNoList is empty."
	MsgInvalidRequest       = "Invalid request."
	MsgValidationError      = "Invalid input."
)

const (
	MsgSuccess  = "Success."
	MsgInternal = "Internal server error."
)
