package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// カテゴリはハンドラーでのHTTPステータス分岐に使用する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, attendance, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeHistoryNotFound = "HISTORY_NOT_FOUND"
	ErrCodeProviderFailed  = "PROVIDER_FAILED"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
)

// ErrNotFound はレコード未検出を示す番兵エラー。
// 呼び出し側はerrors.Isで分岐できる。
var ErrNotFound = errors.New("record not found")

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found in our db.",
		Category: "auth",
	}
}

// NewUnauthorizedError は認証失敗エラーを生成する。
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  reason,
		Category: "auth",
	}
}

// NewHistoryNotFoundError は打刻履歴未検出エラーを生成する。
func NewHistoryNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeHistoryNotFound,
		Message:  "No attendance history found",
		Category: "attendance",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
	}
}

// NewProviderFailedError は外部API呼び出し失敗エラーを生成する。
// resourceには取得対象（attendance history, user informationなど）を渡す。
func NewProviderFailedError(resource, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderFailed,
		Message:  fmt.Sprintf("Can't fetch %s from infotech. Reason: %s", resource, reason),
		Category: "attendance",
	}
}
