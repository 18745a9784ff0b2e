package cache

import (
	"fmt"
	"time"
)

// キーファミリーごとのTTL。
// 状態を変更する操作の後は明示的に無効化されるため、
// TTLは受動的な失効のための上限に過ぎない。
const (
	// HistoryTTL は打刻履歴キャッシュの保持時間。
	HistoryTTL = time.Hour
	// AttendancesDataTTL はロースタースナップショットの保持時間。
	AttendancesDataTTL = 24 * time.Hour
	// UserLookupTTL は認証済みユーザー情報キャッシュの保持時間。
	UserLookupTTL = time.Hour
)

// AttendancesDataKey はアクティブな打刻ロースターのスナップショットキー。
const AttendancesDataKey = "attendances-data"

// HistoryKey はユーザーごとの打刻履歴キャッシュのキーを返す。
func HistoryKey(email string) string {
	return fmt.Sprintf("history-%s", email)
}

// UserKey は認証情報付きユーザー検索キャッシュのキーを返す。
func UserKey(email, appPassword string) string {
	return fmt.Sprintf("user-%s-%s", email, appPassword)
}
