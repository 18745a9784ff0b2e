package user

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/cache"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/crypto"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/provider"
)

func TestGenerateIMEI(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		imei := GenerateIMEI()
		if len(imei) != 15 {
			t.Fatalf("GenerateIMEI() = %q, want 15 digits", imei)
		}
		if !ValidIMEI(imei) {
			t.Fatalf("GenerateIMEI() = %q, Luhn check failed", imei)
		}
		seen[imei] = true
	}
	if len(seen) < 2 {
		t.Error("GenerateIMEI returned the same value 100 times")
	}
}

func TestValidIMEI(t *testing.T) {
	tests := []struct {
		name string
		imei string
		want bool
	}{
		{name: "valid", imei: "490154203237518", want: true},
		{name: "wrong check digit", imei: "490154203237519", want: false},
		{name: "too short", imei: "49015420323751", want: false},
		{name: "too long", imei: "4901542032375180", want: false},
		{name: "non numeric", imei: "49015420323751x", want: false},
		{name: "empty", imei: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidIMEI(tt.imei); got != tt.want {
				t.Errorf("ValidIMEI(%q) = %v, want %v", tt.imei, got, tt.want)
			}
		})
	}
}

// ----- fakes -----

type fakeCache struct {
	store map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = raw
	return nil
}

type fakeProvider struct {
	result    *provider.Result
	calls     int
	lastPath  string
	lastToken bool
	lastID    crypto.ClientIdentity
}

func (p *fakeProvider) Call(ctx context.Context, api provider.API, path, encryptedPayload string, withToken bool, id crypto.ClientIdentity) *provider.Result {
	p.calls++
	p.lastPath = path
	p.lastToken = withToken
	p.lastID = id
	return p.result
}

type fakeUserRepo struct {
	profile     *model.UserAttendanceProfile
	user        *model.User
	upserted    *model.User
	findCalls   int
	updatedHash string
	updateErr   error
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.user, nil
}

func (r *fakeUserRepo) FindProfileByEmail(ctx context.Context, email string) (*model.UserAttendanceProfile, error) {
	r.findCalls++
	return r.profile, nil
}

func (r *fakeUserRepo) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	stored := *user
	stored.ID = 1
	r.upserted = &stored
	return &stored, nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updatedHash = passwordHash
	return nil
}

func (r *fakeUserRepo) ListActiveProfiles(ctx context.Context, locationID int) ([]*model.UserAttendanceProfile, error) {
	return nil, nil
}

type fakeAttendanceStore struct {
	stored *model.AttendanceData
	fail   bool
}

func (a *fakeAttendanceStore) StoreAttendanceData(ctx context.Context, data *model.AttendanceData) *model.ServiceResponse {
	if a.fail {
		return model.FailResponse(http.StatusInternalServerError, "Cannot store attendance data.")
	}
	a.stored = data
	return model.OKResponse(data)
}

func testCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	cipher, err := crypto.NewCipher(
		"0123456789abcdef0123456789abcdef",
		"0123456789abcdef",
	)
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}
	return cipher
}

type serviceFixture struct {
	service    *Service
	cache      *fakeCache
	api        *fakeProvider
	users      *fakeUserRepo
	attendance *fakeAttendanceStore
	cipher     *crypto.Cipher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		cache:      newFakeCache(),
		api:        &fakeProvider{result: &provider.Result{OK: true, Body: json.RawMessage(`{}`)}},
		users:      &fakeUserRepo{},
		attendance: &fakeAttendanceStore{},
		cipher:     testCipher(t),
	}
	endpoints := &provider.Endpoints{GetUserInfoPath: "/login"}
	f.service = NewService(
		f.users, f.attendance, f.cache, f.api,
		f.cipher, endpoints,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}
	return string(hash)
}

func registeredProfile(t *testing.T, email, appPassword string) *model.UserAttendanceProfile {
	t.Helper()
	return &model.UserAttendanceProfile{
		User: model.User{
			ID:                    1,
			Email:                 email,
			IMEI:                  "490154203237518",
			ManagementAppPassword: hashPassword(t, appPassword),
		},
		AttendanceData: &model.AttendanceData{UserID: 1, LocationName: "Jakarta"},
	}
}

// ----- login -----

func TestGetUserInformation_Login(t *testing.T) {
	f := newServiceFixture(t)
	f.users.profile = registeredProfile(t, "a@example.com", "secret")

	resp := f.service.GetUserInformation(context.Background(), LoginRequest{
		Type:        RequestTypeLogin,
		Email:       "a@example.com",
		AppPassword: "secret",
	})
	if !resp.Status {
		t.Fatalf("login failed: %s", resp.Message)
	}

	profile := resp.Data.(*model.UserAttendanceProfile)
	if profile.Email != "a@example.com" {
		t.Errorf("email = %s, want a@example.com", profile.Email)
	}
	if f.api.calls != 0 {
		t.Errorf("provider calls = %d, want 0 for login", f.api.calls)
	}

	// 照合済みプロファイルはキャッシュされ、レスポンスにパスワードハッシュを含めない
	raw, ok := f.cache.store[cache.UserKey("a@example.com", "secret")]
	if !ok {
		t.Fatal("profile should be cached after login")
	}
	if strings.Contains(string(raw), profile.ManagementAppPassword) {
		t.Error("cached profile should not contain the password hash")
	}
}

func TestGetUserInformation_LoginCacheHit(t *testing.T) {
	f := newServiceFixture(t)
	f.users.profile = registeredProfile(t, "a@example.com", "secret")

	f.service.GetUserInformation(context.Background(), LoginRequest{
		Type: RequestTypeLogin, Email: "a@example.com", AppPassword: "secret",
	})
	f.service.GetUserInformation(context.Background(), LoginRequest{
		Type: RequestTypeLogin, Email: "a@example.com", AppPassword: "secret",
	})

	if f.users.findCalls != 1 {
		t.Errorf("repository lookups = %d, want 1 (second login served from cache)", f.users.findCalls)
	}
}

func TestGetUserInformation_LoginWrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	f.users.profile = registeredProfile(t, "a@example.com", "secret")

	resp := f.service.GetUserInformation(context.Background(), LoginRequest{
		Type: RequestTypeLogin, Email: "a@example.com", AppPassword: "wrong",
	})
	if resp.Status {
		t.Fatal("login should fail with wrong password")
	}
	if resp.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", resp.Code)
	}
}

func TestGetUserInformation_LoginUnknownUser(t *testing.T) {
	f := newServiceFixture(t)

	resp := f.service.GetUserInformation(context.Background(), LoginRequest{
		Type: RequestTypeLogin, Email: "nobody@example.com", AppPassword: "secret",
	})
	if resp.Status {
		t.Fatal("login should fail for unknown user")
	}
	if resp.Message != "User not found in our db." {
		t.Errorf("message = %q", resp.Message)
	}
}

// ----- provider fetch -----

func providerLoginBody() json.RawMessage {
	return json.RawMessage(`{
		"UserId": 77,
		"IToken": "itoken-xyz",
		"IDNumber": "ID-9",
		"UserAuthorization": {
			"UserId": 77,
			"EmpCode": "EMP-9",
			"CompanyId": 3,
			"Customer": {"CustomerId": 42}
		}
	}`)
}

func TestGetUserInformation_FetchFromProvider(t *testing.T) {
	f := newServiceFixture(t)
	f.api.result = &provider.Result{OK: true, Body: providerLoginBody()}

	resp := f.service.GetUserInformation(context.Background(), LoginRequest{
		Type:     RequestTypeGet,
		Email:    "a@example.com",
		Password: "infotech-password",
	})
	if !resp.Status {
		t.Fatalf("fetch failed: %s", resp.Message)
	}
	if f.api.lastToken {
		t.Error("login call should not include one-time token")
	}

	info := resp.Data.(*model.User)
	if info.Token != "itoken-xyz" {
		t.Errorf("token = %s, want itoken-xyz", info.Token)
	}
	if info.CustomerID != 42 || info.CompanyID != 3 || info.InfotechUserID != 77 {
		t.Errorf("mapping mismatch: %+v", info)
	}
	if info.EmployeeID != "EMP-9" || info.IDNumber != "ID-9" {
		t.Errorf("mapping mismatch: %+v", info)
	}
	if !ValidIMEI(info.IMEI) {
		t.Errorf("imei = %q, want generated Luhn-valid value", info.IMEI)
	}
	if info.DeviceID != info.IMEI {
		t.Errorf("deviceId = %s, want same as imei", info.DeviceID)
	}

	// userTokenは復号するとIMEI・メール・従業員IDのJSONになる
	plain, err := f.cipher.Decrypt(info.UserToken)
	if err != nil {
		t.Fatalf("decrypt userToken: %v", err)
	}
	var formula struct {
		IMEI       string `json:"imei"`
		Email      string `json:"email"`
		EmployeeID string `json:"employeeId"`
	}
	if err := json.Unmarshal([]byte(plain), &formula); err != nil {
		t.Fatalf("unmarshal userToken: %v", err)
	}
	if formula.IMEI != info.IMEI || formula.Email != "a@example.com" || formula.EmployeeID != "EMP-9" {
		t.Errorf("userToken formula = %+v", formula)
	}
}

func TestGetUserInformation_BadCredentials(t *testing.T) {
	f := newServiceFixture(t)
	f.api.result = &provider.Result{OK: true, Body: json.RawMessage(`{"UserId": 0}`)}

	resp := f.service.GetUserInformation(context.Background(), LoginRequest{
		Type: RequestTypeGet, Email: "a@example.com", Password: "wrong",
	})
	if resp.Status {
		t.Fatal("expected failure for UserId=0 response")
	}
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("code = %d, want 401", resp.Code)
	}
}

func TestGetUserInformation_ProviderFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.api.result = &provider.Result{OK: false, ErrKind: provider.ErrKindNetwork, Message: "timeout"}

	resp := f.service.GetUserInformation(context.Background(), LoginRequest{
		Type: RequestTypeGet, Email: "a@example.com", Password: "pw",
	})
	if resp.Status {
		t.Fatal("expected failure when provider is unreachable")
	}
	if !strings.Contains(resp.Message, "timeout") {
		t.Errorf("message = %q, want provider reason included", resp.Message)
	}
}

// ----- store -----

func storeRequest() StoreUserRequest {
	return StoreUserRequest{
		Email:          "a@example.com",
		IMEI:           "490154203237518",
		Token:          "itoken-xyz",
		CustomerID:     42,
		IDNumber:       "ID-9",
		EmployeeID:     "EMP-9",
		CompanyID:      3,
		InfotechUserID: 77,
		UserGroupID:    model.LocationMalaysia,
		UserToken:      "user-token",
		AppPassword:    "secret",
		AttendanceData: StoreAttendanceRequest{
			LocationName:    "KL Office",
			Latitude:        "3.1",
			Longitude:       "101.7",
			IsActive:        true,
			IsSubscribeMail: true,
		},
	}
}

func TestStoreUserInformation(t *testing.T) {
	f := newServiceFixture(t)

	resp := f.service.StoreUserInformation(context.Background(), storeRequest())
	if !resp.Status {
		t.Fatalf("StoreUserInformation failed: %s", resp.Message)
	}
	if resp.Code != http.StatusCreated {
		t.Errorf("code = %d, want 201", resp.Code)
	}

	stored := f.users.upserted
	if stored == nil {
		t.Fatal("user was not upserted")
	}
	if stored.DeviceID != "490154203237518" {
		t.Errorf("deviceId = %s, want imei", stored.DeviceID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.ManagementAppPassword), []byte("secret")); err != nil {
		t.Error("stored password hash does not match the app password")
	}

	data := f.attendance.stored
	if data == nil {
		t.Fatal("attendance data was not stored")
	}
	if data.UserID != stored.ID {
		t.Errorf("attendance userId = %d, want %d", data.UserID, stored.ID)
	}
	if data.TimeZone != model.TimezoneMalaysia {
		t.Errorf("timeZone = %s, want %s for Malaysian region", data.TimeZone, model.TimezoneMalaysia)
	}
}

func TestStoreUserInformation_AttendanceFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.attendance.fail = true

	resp := f.service.StoreUserInformation(context.Background(), storeRequest())
	if resp.Status {
		t.Fatal("expected failure when attendance data cannot be stored")
	}
	if resp.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", resp.Code)
	}
}

// ----- update password -----

func TestUpdateAppPassword(t *testing.T) {
	f := newServiceFixture(t)
	f.users.user = &model.User{
		ID:                    1,
		Email:                 "a@example.com",
		ManagementAppPassword: hashPassword(t, "old-secret"),
	}

	resp := f.service.UpdateAppPassword(context.Background(), "a@example.com", "new-secret")
	if !resp.Status {
		t.Fatalf("UpdateAppPassword failed: %s", resp.Message)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(f.users.updatedHash), []byte("new-secret")); err != nil {
		t.Error("updated hash does not match the new password")
	}
}

func TestUpdateAppPassword_SamePassword(t *testing.T) {
	f := newServiceFixture(t)
	f.users.user = &model.User{
		ID:                    1,
		Email:                 "a@example.com",
		ManagementAppPassword: hashPassword(t, "old-secret"),
	}

	resp := f.service.UpdateAppPassword(context.Background(), "a@example.com", "old-secret")
	if resp.Status {
		t.Fatal("expected failure for unchanged password")
	}
	if resp.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", resp.Code)
	}
}

func TestUpdateAppPassword_UserNotFound(t *testing.T) {
	f := newServiceFixture(t)

	resp := f.service.UpdateAppPassword(context.Background(), "nobody@example.com", "new-secret")
	if resp.Status {
		t.Fatal("expected failure for unknown user")
	}
	if resp.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", resp.Code)
	}
}
