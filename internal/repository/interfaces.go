// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindProfileByEmail はユーザーと打刻設定を結合したプロファイルを取得する。
	// 見つからない場合はnilを返す。打刻設定が未登録の場合はAttendanceDataがnilになる。
	FindProfileByEmail(ctx context.Context, email string) (*model.UserAttendanceProfile, error)

	// Upsert はユーザーをメールアドレスをキーにupsertする（last write wins）。
	// 既存ユーザーの場合はトークン・デバイスID・ユーザートークンのみ更新する。
	Upsert(ctx context.Context, user *model.User) (*model.User, error)

	// UpdatePassword は管理アプリパスワードのハッシュを更新する。
	// 対象ユーザーが存在しない場合はmodel.ErrNotFoundを返す。
	UpdatePassword(ctx context.Context, email, passwordHash string) error

	// ListActiveProfiles はis_active=trueの打刻設定を持つ全ユーザーのプロファイルを返す。
	// locationIDが0以外の場合はそのリージョンのユーザーに絞り込む。
	ListActiveProfiles(ctx context.Context, locationID int) ([]*model.UserAttendanceProfile, error)
}

// AttendanceDataRepository は打刻設定の永続化インターフェース。
type AttendanceDataRepository interface {
	// Upsert は打刻設定をuser_idをキーにupsertする。
	// ユーザーにつき常に1件のアクティブな設定のみが存在する。
	Upsert(ctx context.Context, data *model.AttendanceData) (*model.AttendanceData, error)

	// UpdateStatus は自動打刻の有効・無効を切り替える。
	// 対象が存在しない場合はmodel.ErrNotFoundを返す。
	UpdateStatus(ctx context.Context, userID int64, isActive bool) error

	// UpdateLocation は打刻位置情報を更新する。timeZoneが空の場合は変更しない。
	// 対象が存在しない場合はmodel.ErrNotFoundを返す。
	UpdateLocation(ctx context.Context, userID int64, locationName, latitude, longitude, timeZone string) error
}
