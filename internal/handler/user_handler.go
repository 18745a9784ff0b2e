package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/middleware"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetUserInformation(ctx context.Context, req user.LoginRequest) *model.ServiceResponse
	StoreUserInformation(ctx context.Context, req user.StoreUserRequest) *model.ServiceResponse
	UpdateAppPassword(ctx context.Context, email, newPassword string) *model.ServiceResponse
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// GetUserInfo はユーザー情報を取得する。
// POST /api/user/getUserInfo
func (h *UserHandler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	var body user.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be valid JSON"))
		return
	}

	errs := map[string]string{}
	if body.Type != user.RequestTypeLogin && body.Type != user.RequestTypeGet {
		errs["type"] = "type must be either get or login"
	}
	if body.Email == "" {
		errs["email"] = "email is required"
	} else if _, err := mail.ParseAddress(body.Email); err != nil {
		errs["email"] = "email must be a valid email address"
	}
	if body.Type == user.RequestTypeGet && body.Password == "" {
		errs["password"] = "password is required"
	}
	if body.Type == user.RequestTypeLogin && body.AppPassword == "" {
		errs["appPassword"] = "appPassword is required"
	}
	if len(errs) > 0 {
		middleware.WriteValidationErrors(w, errs)
		return
	}

	resp := h.service.GetUserInformation(r.Context(), body)
	middleware.WriteServiceResponse(w, resp)
}

// StoreUserInfo はユーザーと打刻設定を登録する。
// POST /api/user/storeUserInfo
func (h *UserHandler) StoreUserInfo(w http.ResponseWriter, r *http.Request) {
	var body user.StoreUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be valid JSON"))
		return
	}

	errs := map[string]string{}
	if body.Email == "" {
		errs["email"] = "email is required"
	} else if _, err := mail.ParseAddress(body.Email); err != nil {
		errs["email"] = "email must be a valid email address"
	}
	if body.IMEI == "" {
		errs["imei"] = "imei is required"
	}
	if body.Token == "" {
		errs["token"] = "token is required"
	}
	if body.CustomerID == 0 {
		errs["customerId"] = "customerId is required"
	}
	if body.EmployeeID == "" {
		errs["employeeId"] = "employeeId is required"
	}
	if len(body.AppPassword) < 5 {
		errs["appPassword"] = "appPassword must be at least 5 characters"
	}
	if body.AttendanceData.LocationName == "" {
		errs["attendanceData.locationName"] = "locationName is required"
	}
	if body.AttendanceData.Latitude == "" {
		errs["attendanceData.latitude"] = "latitude is required"
	}
	if body.AttendanceData.Longitude == "" {
		errs["attendanceData.longitude"] = "longitude is required"
	}
	if len(errs) > 0 {
		middleware.WriteValidationErrors(w, errs)
		return
	}

	resp := h.service.StoreUserInformation(r.Context(), body)
	middleware.WriteServiceResponse(w, resp)
}

// updatePasswordRequestBody はアプリパスワード更新リクエスト。
type updatePasswordRequestBody struct {
	Email       string `json:"email"`
	AppPassword string `json:"appPassword"`
}

// UpdatePassword はアプリパスワードを更新する。
// PUT /api/user/updatePassword
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var body updatePasswordRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be valid JSON"))
		return
	}

	errs := map[string]string{}
	if body.Email == "" {
		errs["email"] = "email is required"
	}
	if len(body.AppPassword) < 5 {
		errs["appPassword"] = "appPassword must be at least 5 characters"
	}
	if len(errs) > 0 {
		middleware.WriteValidationErrors(w, errs)
		return
	}

	resp := h.service.UpdateAppPassword(r.Context(), body.Email, body.AppPassword)
	middleware.WriteServiceResponse(w, resp)
}
