// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/attendance"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/middleware"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
)

// AttendanceServiceInterface は打刻ハンドラーが必要とするサービスインターフェース。
type AttendanceServiceInterface interface {
	GetAttendanceHistory(ctx context.Context, query attendance.HistoryQuery, fetchLast bool, page, pageSize int) *model.ServiceResponse
	GetLocationHistory(ctx context.Context, query attendance.HistoryQuery) *model.ServiceResponse
	UpdateStatus(ctx context.Context, userID int64, isActive bool) *model.ServiceResponse
	UpdateLocation(ctx context.Context, userID int64, locationName, latitude, longitude, timeZone string) *model.ServiceResponse
	DispatchClockJobs(ctx context.Context, action model.ClockAction, locationID int) (int, error)
}

// AttendanceHandler は打刻関連のHTTPハンドラー。
type AttendanceHandler struct {
	service AttendanceServiceInterface
}

// NewAttendanceHandler はAttendanceHandlerを生成する。
func NewAttendanceHandler(service AttendanceServiceInterface) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
	}
}

// historyRequestBody は履歴取得リクエスト。
type historyRequestBody struct {
	EmployeeID string `json:"employeeId"`
	CustomerID int64  `json:"customerId"`
	CompanyID  int64  `json:"companyId"`
	Email      string `json:"email"`
	IMEI       string `json:"imei"`
	Token      string `json:"token"`
}

func (b *historyRequestBody) validate() map[string]string {
	errs := map[string]string{}
	if b.EmployeeID == "" {
		errs["employeeId"] = "employeeId is required"
	}
	if b.CustomerID == 0 {
		errs["customerId"] = "customerId is required"
	}
	if b.CompanyID == 0 {
		errs["companyId"] = "companyId is required"
	}
	if b.Email == "" {
		errs["email"] = "email is required"
	} else if _, err := mail.ParseAddress(b.Email); err != nil {
		errs["email"] = "email must be a valid email address"
	}
	if b.IMEI == "" {
		errs["imei"] = "imei is required"
	}
	if b.Token == "" {
		errs["token"] = "token is required"
	}
	return errs
}

func (b *historyRequestBody) toQuery() attendance.HistoryQuery {
	return attendance.HistoryQuery{
		EmployeeID: b.EmployeeID,
		CustomerID: b.CustomerID,
		CompanyID:  b.CompanyID,
		Email:      b.Email,
		IMEI:       b.IMEI,
		Token:      b.Token,
	}
}

// GetAttendanceHistory は打刻履歴をページネーションして返す。
// POST /api/attendance/history?page=1&perPage=5&getLast=0
func (h *AttendanceHandler) GetAttendanceHistory(w http.ResponseWriter, r *http.Request) {
	var body historyRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be valid JSON"))
		return
	}
	if errs := body.validate(); len(errs) > 0 {
		middleware.WriteValidationErrors(w, errs)
		return
	}

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "perPage", 5)
	fetchLast := queryInt(r, "getLast", 0) == 1

	resp := h.service.GetAttendanceHistory(r.Context(), body.toQuery(), fetchLast, page, perPage)
	middleware.WriteServiceResponse(w, resp)
}

// GetLocationHistory は履歴から導出した打刻位置の一覧を返す。
// POST /api/attendance/location
func (h *AttendanceHandler) GetLocationHistory(w http.ResponseWriter, r *http.Request) {
	var body historyRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be valid JSON"))
		return
	}
	if errs := body.validate(); len(errs) > 0 {
		middleware.WriteValidationErrors(w, errs)
		return
	}

	resp := h.service.GetLocationHistory(r.Context(), body.toQuery())
	middleware.WriteServiceResponse(w, resp)
}

// updateStatusRequestBody は自動打刻の有効・無効切り替えリクエスト。
type updateStatusRequestBody struct {
	UserID int64  `json:"userId"`
	Status string `json:"status"`
}

// UpdateStatus は自動打刻の有効・無効を切り替える。
// PUT /api/attendance/updateStatus
func (h *AttendanceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body updateStatusRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be valid JSON"))
		return
	}

	errs := map[string]string{}
	if body.UserID == 0 {
		errs["userId"] = "userId is required"
	}
	if body.Status != "enable" && body.Status != "disable" {
		errs["status"] = "status must be either enable or disable"
	}
	if len(errs) > 0 {
		middleware.WriteValidationErrors(w, errs)
		return
	}

	resp := h.service.UpdateStatus(r.Context(), body.UserID, body.Status == "enable")
	middleware.WriteServiceResponse(w, resp)
}

// updateLocationRequestBody は打刻位置情報の更新リクエスト。
type updateLocationRequestBody struct {
	UserID       int64  `json:"userId"`
	LocationName string `json:"locationName"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
	TimeZone     string `json:"timeZone"`
}

// UpdateLocation は打刻位置情報を更新する。timeZoneは省略可能。
// PUT /api/attendance/updateLocation
func (h *AttendanceHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var body updateLocationRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("request body must be valid JSON"))
		return
	}

	errs := map[string]string{}
	if body.UserID == 0 {
		errs["userId"] = "userId is required"
	}
	if body.LocationName == "" {
		errs["locationName"] = "locationName is required"
	}
	if body.Latitude == "" {
		errs["latitude"] = "latitude is required"
	}
	if body.Longitude == "" {
		errs["longitude"] = "longitude is required"
	}
	if len(errs) > 0 {
		middleware.WriteValidationErrors(w, errs)
		return
	}

	resp := h.service.UpdateLocation(r.Context(), body.UserID, body.LocationName, body.Latitude, body.Longitude, body.TimeZone)
	middleware.WriteServiceResponse(w, resp)
}

// HandleCron はディスパッチサイクルを手動で起動する。
// GET /api/attendance/cron/{type}
func (h *AttendanceHandler) HandleCron(w http.ResponseWriter, r *http.Request) {
	clockType := chi.URLParam(r, "type")

	action := model.ClockOut
	if clockType == "in" {
		action = model.ClockIn
	}

	if _, err := h.service.DispatchClockJobs(r.Context(), action, 0); err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"code":    http.StatusOK,
		"message": "Clock " + clockType + " cron job dispatched",
	})
}

// queryInt はクエリパラメータを整数として読み取る。不正な値はデフォルトを返す。
func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}
