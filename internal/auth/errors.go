package auth

import "github.com/Tom8810/janso/internal/apperr"

// Error codes of the authentication catalog.
const (
	CodeInvalidCredentials = "invalid-credentials"
	CodeUserNotFound       = "user-not-found"
	CodeWeakPassword       = "weak-password"
	CodeInvalidEmail       = "invalid-email"
	CodeEmailInUse         = "email-already-in-use"
	CodeTooManyRequests    = "too-many-requests"
	CodeLoginRequired      = "login-required"
	CodePermissionDenied   = "permission-denied"
	CodeInvalidRequest     = "invalid-request"
)

// Messages shown to owners. Raw provider errors are never returned.
const (
	MsgInvalidCredentials = "メールアドレスまたはパスワードが正しくありません"
	MsgUserNotFound       = "ユーザーが見つかりません"
	MsgWeakPassword       = "パスワードは6文字以上で入力してください"
	MsgInvalidEmail       = "メールアドレスの形式が正しくありません"
	MsgEmailInUse         = "このメールアドレスは既に使用されています"
	MsgTooManyRequests    = "リクエストが多すぎます。しばらくしてから再度お試しください"
	MsgLoginRequired      = "ログインが必要です"
	MsgPermissionDenied   = "このアクションを実行する権限がありません"
	MsgInvalidRequest     = "入力内容が正しくありません"

	msgRegisterFailed = "登録に失敗しました"
	msgLoginFailed    = "ログインに失敗しました"
	msgLogoutFailed   = "ログアウトに失敗しました"
)

var (
	errInvalidCredentials = apperr.New(apperr.KindUnauthenticated, CodeInvalidCredentials, MsgInvalidCredentials)
	errWeakPassword       = apperr.New(apperr.KindInvalidArgument, CodeWeakPassword, MsgWeakPassword)
	errInvalidEmail       = apperr.New(apperr.KindInvalidArgument, CodeInvalidEmail, MsgInvalidEmail)
	errEmailInUse         = apperr.New(apperr.KindConflict, CodeEmailInUse, MsgEmailInUse)
	errInvalidRequest     = apperr.New(apperr.KindInvalidArgument, CodeInvalidRequest, MsgInvalidRequest)

	// ErrLoginRequired is returned for missing, invalid or revoked tokens.
	ErrLoginRequired = apperr.New(apperr.KindUnauthenticated, CodeLoginRequired, MsgLoginRequired)
	// ErrPermissionDenied is returned when a token does not own the parlor.
	ErrPermissionDenied = apperr.New(apperr.KindPermissionDenied, CodePermissionDenied, MsgPermissionDenied)
	// ErrTooManyRequests is returned by the rate limiter.
	ErrTooManyRequests = apperr.New(apperr.KindTooManyRequests, CodeTooManyRequests, MsgTooManyRequests)
)
