package user

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/cache"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/crypto"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/provider"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/repository"
)

// bcryptCost はアプリパスワードのハッシュ化コスト。
const bcryptCost = 10

// CacheStore はサービスが必要とするキャッシュ操作のインターフェース。
type CacheStore interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// ProviderCaller はプロバイダAPI呼び出しのインターフェース。
type ProviderCaller interface {
	Call(ctx context.Context, api provider.API, path, encryptedPayload string, withToken bool, id crypto.ClientIdentity) *provider.Result
}

// AttendanceStore は打刻設定保存のインターフェース。
type AttendanceStore interface {
	StoreAttendanceData(ctx context.Context, data *model.AttendanceData) *model.ServiceResponse
}

// Service はユーザー情報の取得・保存を行う。
type Service struct {
	users      repository.UserRepository
	attendance AttendanceStore
	cache      CacheStore
	api        ProviderCaller
	cipher     *crypto.Cipher
	endpoints  *provider.Endpoints
	logger     *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	attendance AttendanceStore,
	cacheStore CacheStore,
	api ProviderCaller,
	cipher *crypto.Cipher,
	endpoints *provider.Endpoints,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:      users,
		attendance: attendance,
		cache:      cacheStore,
		api:        api,
		cipher:     cipher,
		endpoints:  endpoints,
		logger:     logger,
	}
}

// リクエスト種別。
const (
	// RequestTypeLogin は登録済みユーザーのログイン（DB照合）。
	RequestTypeLogin = "login"
	// RequestTypeGet はInfotechからの認証情報取得。
	RequestTypeGet = "get"
)

// LoginRequest はユーザー情報取得リクエスト。
// Typeがloginの場合はAppPassword、getの場合はPasswordが必須になる。
type LoginRequest struct {
	Type        string `json:"type"`
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
	AppPassword string `json:"appPassword,omitempty"`
}

// GetUserInformation はユーザー情報を取得する。
// login: DBに登録済みのプロファイルをアプリパスワードで照合して返す。
// get: 新規IMEIを採番してInfotechへログインし、認証情報を取得して返す。
func (s *Service) GetUserInformation(ctx context.Context, req LoginRequest) *model.ServiceResponse {
	if req.Type == RequestTypeLogin {
		profile, err := s.getUserInformationFromDb(ctx, req.Email, req.AppPassword)
		if err != nil {
			s.logger.Error("ユーザー情報のDB照合に失敗しました",
				slog.String("email", req.Email),
				slog.String("error", err.Error()),
			)
			return model.FailResponse(http.StatusInternalServerError, err.Error())
		}
		if profile == nil {
			return model.ErrorResponse(http.StatusBadRequest, model.NewUserNotFoundError())
		}
		return model.OKResponse(profile)
	}

	info, resp := s.fetchUserInformationFromInfotech(ctx, req.Email, req.Password)
	if resp != nil {
		return resp
	}
	return model.OKResponse(info)
}

// providerLoginRequest はInfotechログインAPIのペイロード。
type providerLoginRequest struct {
	IMEINo       string `json:"IMEINo"`
	Plaintext    string `json:"plaintext"`
	UserEmail    string `json:"UserEmail"`
	UserPassword string `json:"UserPassword"`
}

// providerLoginResponse はInfotechログインAPIのレスポンスのうち必要な部分。
type providerLoginResponse struct {
	UserID            int64  `json:"UserId"`
	IToken            string `json:"IToken"`
	IDNumber          string `json:"IDNumber"`
	UserAuthorization struct {
		UserID    int64  `json:"UserId"`
		EmpCode   string `json:"EmpCode"`
		CompanyID int64  `json:"CompanyId"`
		Customer  struct {
			CustomerID int64 `json:"CustomerId"`
		} `json:"Customer"`
	} `json:"UserAuthorization"`
}

// fetchUserInformationFromInfotech はInfotechへログインして認証情報を取得する。
// 新規採番したIMEIをそのままデバイスIDとして使用する。
// UserIdが0のレスポンスは認証失敗として扱う。
func (s *Service) fetchUserInformationFromInfotech(ctx context.Context, email, password string) (*model.User, *model.ServiceResponse) {
	imei := GenerateIMEI()
	payload := providerLoginRequest{
		IMEINo:       imei,
		UserEmail:    email,
		UserPassword: password,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, model.FailResponse(http.StatusInternalServerError, err.Error())
	}

	identity := crypto.ClientIdentity{Email: email, IMEI: imei}
	result := s.api.Call(ctx, provider.APIInfotech, s.endpoints.GetUserInfoPath, s.cipher.Encrypt(string(jsonPayload)), false, identity)
	if !result.OK {
		apiErr := model.NewProviderFailedError("user information", result.Message)
		s.logger.Error(apiErr.Message, slog.String("email", email))
		return nil, model.ErrorResponse(http.StatusBadGateway, apiErr)
	}

	var login providerLoginResponse
	if err := result.Decode(&login); err != nil {
		return nil, model.ErrorResponse(http.StatusBadGateway, model.NewProviderFailedError("user information", err.Error()))
	}
	if login.UserID == 0 {
		return nil, model.FailResponse(http.StatusUnauthorized, "Credentials might be wrong.")
	}

	info := &model.User{
		Email:          email,
		IMEI:           imei,
		Token:          login.IToken,
		DeviceID:       imei,
		CustomerID:     login.UserAuthorization.Customer.CustomerID,
		IDNumber:       login.IDNumber,
		EmployeeID:     login.UserAuthorization.EmpCode,
		CompanyID:      login.UserAuthorization.CompanyID,
		InfotechUserID: login.UserAuthorization.UserID,
	}
	info.UserToken = s.buildUserToken(info.IMEI, info.Email, info.EmployeeID)

	return info, nil
}

// buildUserToken はユーザー識別トークンを生成する。
// IMEI・メールアドレス・従業員IDのJSONを暗号化した値で、登録後の照合に使用する。
func (s *Service) buildUserToken(imei, email, employeeID string) string {
	formula := struct {
		IMEI       string `json:"imei"`
		Email      string `json:"email"`
		EmployeeID string `json:"employeeId"`
	}{IMEI: imei, Email: email, EmployeeID: employeeID}

	raw, _ := json.Marshal(formula)
	return s.cipher.Encrypt(string(raw))
}

// getUserInformationFromDb は登録済みプロファイルをアプリパスワードで照合して返す。
// キャッシュには照合済みのプロファイルを保持する（パスワードハッシュは
// シリアライズ対象外のため含まれない）。未登録・パスワード不一致はnilを返す。
func (s *Service) getUserInformationFromDb(ctx context.Context, email, appPassword string) (*model.UserAttendanceProfile, error) {
	key := cache.UserKey(email, appPassword)

	var cached model.UserAttendanceProfile
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Error("ユーザーキャッシュの読み取りに失敗しました", slog.String("error", err.Error()))
	}
	if hit {
		return &cached, nil
	}

	profile, err := s.users.FindProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.ManagementAppPassword), []byte(appPassword)); err != nil {
		return nil, nil
	}

	if err := s.cache.Set(ctx, key, profile, cache.UserLookupTTL); err != nil {
		s.logger.Error("ユーザーキャッシュの書き込みに失敗しました", slog.String("error", err.Error()))
	}
	return profile, nil
}

// StoreUserRequest はユーザー登録リクエスト。
type StoreUserRequest struct {
	Email          string `json:"email"`
	IMEI           string `json:"imei"`
	Token          string `json:"token"`
	CustomerID     int64  `json:"customerId"`
	IDNumber       string `json:"idNumber"`
	EmployeeID     string `json:"employeeId"`
	CompanyID      int64  `json:"companyId"`
	InfotechUserID int64  `json:"infotechUserId"`
	UserGroupID    int    `json:"userGroupId"`
	UserToken      string `json:"userToken"`
	AppPassword    string `json:"appPassword"`

	AttendanceData StoreAttendanceRequest `json:"attendanceData"`
}

// StoreAttendanceRequest は登録時の打刻設定。
type StoreAttendanceRequest struct {
	LocationName    string `json:"locationName"`
	Latitude        string `json:"latitude"`
	Longitude       string `json:"longitude"`
	IsActive        bool   `json:"isActive"`
	Remarks         string `json:"remarks"`
	IsImmediate     bool   `json:"isImmediate"`
	IsSubscribeMail bool   `json:"isSubscribeMail"`
}

// StoreUserInformation はユーザーと打刻設定を保存する。
// ユーザーはメールアドレスをキーにupsertし、タイムゾーンはリージョンから導出する。
func (s *Service) StoreUserInformation(ctx context.Context, req StoreUserRequest) *model.ServiceResponse {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.AppPassword), bcryptCost)
	if err != nil {
		return s.storeFailure(req.Email, err)
	}

	stored, err := s.users.Upsert(ctx, &model.User{
		Email:                 req.Email,
		IMEI:                  req.IMEI,
		Token:                 req.Token,
		DeviceID:              req.IMEI,
		CustomerID:            req.CustomerID,
		IDNumber:              req.IDNumber,
		EmployeeID:            req.EmployeeID,
		CompanyID:             req.CompanyID,
		InfotechUserID:        req.InfotechUserID,
		UserGroupID:           req.UserGroupID,
		UserToken:             req.UserToken,
		ManagementAppPassword: string(passwordHash),
	})
	if err != nil {
		return s.storeFailure(req.Email, err)
	}

	attendanceResp := s.attendance.StoreAttendanceData(ctx, &model.AttendanceData{
		UserID:          stored.ID,
		LocationName:    req.AttendanceData.LocationName,
		Latitude:        req.AttendanceData.Latitude,
		Longitude:       req.AttendanceData.Longitude,
		IsActive:        req.AttendanceData.IsActive,
		Remarks:         req.AttendanceData.Remarks,
		TimeZone:        model.TimezoneForLocation(req.UserGroupID),
		IsImmediate:     req.AttendanceData.IsImmediate,
		IsSubscribeMail: req.AttendanceData.IsSubscribeMail,
	})
	if !attendanceResp.Status {
		return s.storeFailure(req.Email, fmt.Errorf("failed to store attendance data"))
	}

	return &model.ServiceResponse{
		Status: true,
		Code:   http.StatusCreated,
		Data: &model.UserAttendanceProfile{
			User:           *stored,
			AttendanceData: attendanceResp.Data.(*model.AttendanceData),
		},
	}
}

func (s *Service) storeFailure(email string, err error) *model.ServiceResponse {
	message := fmt.Sprintf("Failed to store user information. Reason: %s", err.Error())
	s.logger.Error(message, slog.String("email", email))
	return model.FailResponse(http.StatusInternalServerError, message)
}

// UpdateAppPassword はアプリパスワードを更新する。
// 現在のパスワードと同一の値への変更は拒否する。
func (s *Service) UpdateAppPassword(ctx context.Context, email, newPassword string) *model.ServiceResponse {
	current, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		message := fmt.Sprintf("Failed to update app password. Reason: %s", err.Error())
		s.logger.Error(message, slog.String("email", email))
		return model.FailResponse(http.StatusInternalServerError, message)
	}
	if current == nil {
		return model.FailResponse(http.StatusNotFound, "User not found.")
	}

	if bcrypt.CompareHashAndPassword([]byte(current.ManagementAppPassword), []byte(newPassword)) == nil {
		return model.FailResponse(http.StatusBadRequest, "Your new app password is same as the current app password")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return model.FailResponse(http.StatusInternalServerError, err.Error())
	}
	if err := s.users.UpdatePassword(ctx, email, string(passwordHash)); err != nil {
		message := fmt.Sprintf("Failed to update app password. Reason: %s", err.Error())
		s.logger.Error(message, slog.String("email", email))
		return model.FailResponse(http.StatusInternalServerError, message)
	}

	return &model.ServiceResponse{
		Status:  true,
		Code:    http.StatusOK,
		Message: "App password has been updated.",
	}
}
