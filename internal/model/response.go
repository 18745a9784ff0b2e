package model

import "net/http"

// ServiceResponse はサービス層の統一レスポンス。
// エラーはソフトフェイルとしてStatus=falseで表現し、境界を越えてpanic/errorを
// 伝播させない。Codeはハンドラーがそのまま HTTPステータスとして使用する。
type ServiceResponse struct {
	Status  bool   `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OKResponse は成功レスポンスを生成する。
func OKResponse(data any) *ServiceResponse {
	return &ServiceResponse{
		Status: true,
		Code:   http.StatusOK,
		Data:   data,
	}
}

// FailResponse は失敗レスポンスを生成する。
func FailResponse(code int, message string) *ServiceResponse {
	return &ServiceResponse{
		Status:  false,
		Code:    code,
		Message: message,
	}
}

// ErrorResponse はAPIErrorから失敗レスポンスを生成する。
func ErrorResponse(code int, apiErr *APIError) *ServiceResponse {
	return FailResponse(code, apiErr.Message)
}

// PaginatedItems はページネーション結果のエンベロープ。
type PaginatedItems struct {
	CurrentPage     int  `json:"currentPage"`
	TotalItems      int  `json:"totalItems"`
	TotalPages      int  `json:"totalPages"`
	PageSize        int  `json:"pageSize"`
	NextPage        *int `json:"nextPage"`
	PreviousPage    *int `json:"previousPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
	Items           any  `json:"items"`
}
