// Package model はドメインモデルを定義する。
package model

import "time"

// User はInfotechの認証情報を保持する登録ユーザーを表す。
// ManagementAppPasswordはbcryptハッシュであり、APIレスポンスには含めない。
type User struct {
	ID                    int64     `json:"id"`
	Email                 string    `json:"email"`
	IMEI                  string    `json:"imei"`
	Token                 string    `json:"token"`
	DeviceID              string    `json:"deviceId"`
	CustomerID            int64     `json:"customerId"`
	IDNumber              string    `json:"idNumber"`
	EmployeeID            string    `json:"employeeId"`
	CompanyID             int64     `json:"companyId"`
	InfotechUserID        int64     `json:"infotechUserId"`
	UserGroupID           int       `json:"userGroupId"`
	UserToken             string    `json:"userToken"`
	ManagementAppPassword string    `json:"-"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// AttendanceData は自動打刻に必要なユーザーごとの設定を表す。
// ユーザーにつき1件のみ存在する（user_idユニーク制約、upsertセマンティクス）。
type AttendanceData struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	LocationName    string    `json:"locationName"`
	Latitude        string    `json:"latitude"`
	Longitude       string    `json:"longitude"`
	IsActive        bool      `json:"isActive"`
	Remarks         string    `json:"remarks"`
	TimeZone        string    `json:"timeZone"`
	IsImmediate     bool      `json:"isImmediate"`
	IsSubscribeMail bool      `json:"isSubscribeMail"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// UserAttendanceProfile はユーザーと打刻設定のスナップショット。
// ディスパッチ時に作成され、ジョブのペイロードとしてそのまま運ばれる。
type UserAttendanceProfile struct {
	User
	AttendanceData *AttendanceData `json:"attendanceData"`
}

// 対応リージョン（ユーザーグループID）。
const (
	LocationIndonesia = 1
	LocationMalaysia  = 2
)

// タイムゾーンコード。リージョンから導出される。
const (
	TimezoneIndonesia = "Asia/Jakarta"
	TimezoneMalaysia  = "Asia/Kuala_Lumpur"
)

// TimezoneForLocation はリージョンに対応するタイムゾーンコードを返す。
// 未知のリージョンはインドネシア扱いとする。
func TimezoneForLocation(locationID int) string {
	if locationID == LocationMalaysia {
		return TimezoneMalaysia
	}
	return TimezoneIndonesia
}
