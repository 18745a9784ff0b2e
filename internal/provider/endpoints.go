// Package provider はInfotech打刻プロバイダへの外部API呼び出しを提供する。
package provider

import (
	"fmt"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/crypto"
)

// API は呼び出し先のAPI種別を表す。
type API string

const (
	// APIInfotech はユーザー情報系のAPI。
	APIInfotech API = "infotech"
	// APIAttendance は打刻・履歴系のAPI。
	APIAttendance API = "attendance"
)

// Endpoints はプロバイダAPIのベースURLとパスを保持する。
// 環境変数には暗号化された値が格納されており、起動時に1回だけ復号する。
type Endpoints struct {
	InfotechBaseURL          string
	AttendanceBaseURL        string
	ClockInPath              string
	GetUserInfoPath          string
	GetAttendanceHistoryPath string
}

// EncryptedEndpoints は復号前のエンドポイント設定。
type EncryptedEndpoints struct {
	InfotechBaseURL          string
	AttendanceBaseURL        string
	ClockInPath              string
	GetUserInfoPath          string
	GetAttendanceHistoryPath string
}

// NewEndpoints は暗号化された設定値を復号してEndpointsを生成する。
// 復号に失敗した場合はエラーを返す（設定ミスを起動時に検出させる）。
func NewEndpoints(cipher *crypto.Cipher, enc EncryptedEndpoints) (*Endpoints, error) {
	decrypt := func(name, value string) (string, error) {
		decrypted, err := cipher.Decrypt(value)
		if err != nil {
			return "", fmt.Errorf("provider: failed to decrypt %s: %w", name, err)
		}
		return decrypted, nil
	}

	e := &Endpoints{}
	var err error
	if e.InfotechBaseURL, err = decrypt("INFOTECH_API_BASE_URL", enc.InfotechBaseURL); err != nil {
		return nil, err
	}
	if e.AttendanceBaseURL, err = decrypt("ATTENDANCE_API_BASE_URL", enc.AttendanceBaseURL); err != nil {
		return nil, err
	}
	if e.ClockInPath, err = decrypt("CLOCK_IN_PATH", enc.ClockInPath); err != nil {
		return nil, err
	}
	if e.GetUserInfoPath, err = decrypt("GET_USER_INFO_PATH", enc.GetUserInfoPath); err != nil {
		return nil, err
	}
	if e.GetAttendanceHistoryPath, err = decrypt("GET_ATTENDANCE_HISTORY_PATH", enc.GetAttendanceHistoryPath); err != nil {
		return nil, err
	}

	return e, nil
}

// BaseURL はAPI種別に対応するベースURLを返す。
func (e *Endpoints) BaseURL(api API) string {
	if api == APIInfotech {
		return e.InfotechBaseURL
	}
	return e.AttendanceBaseURL
}
