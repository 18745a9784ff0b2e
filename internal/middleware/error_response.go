package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Status   bool   `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// WriteJSON はJSONレスポンスを書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// WriteServiceResponse はサービス層のレスポンスをそのままHTTPレスポンスにする。
// HTTPステータスはレスポンスのCodeを使用する。
func WriteServiceResponse(w http.ResponseWriter, resp *model.ServiceResponse) {
	WriteJSON(w, resp.Code, resp)
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	WriteJSON(w, statusCode, ErrorResponseBody{
		Status:   false,
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
	})
}

// ValidationErrorBody はリクエスト検証エラーのレスポンス。
// フィールドごとのエラーメッセージを含む。
type ValidationErrorBody struct {
	Status  bool              `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// WriteValidationErrors はフィールドごとの検証エラーを400で書き込む。
func WriteValidationErrors(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteJSON(w, http.StatusBadRequest, ValidationErrorBody{
		Status:  false,
		Code:    model.ErrCodeInvalidRequest,
		Message: "Request validation failed.",
		Errors:  fieldErrors,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "Something went wrong. Please try again later.",
		Category: "system",
	})
}
