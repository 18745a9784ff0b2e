// Package attendance は自動打刻のオーケストレーションを提供する。
// ディスパッチャ、打刻ワーカー、履歴取得、遅延ポリシーを含む。
package attendance

import (
	"math/rand"
	"time"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
)

// 遅延計算に使用する定数（ミリ秒）。
const (
	oneSecondMs      = 1_000
	fiveSecondsMs    = 5_000
	tenSecondsMs     = 10_000
	fifteenMinutesMs = 900_000
)

// ImmediateDelay は即時打刻ユーザー向けの遅延を返す。[1s, 11s)の一様分布。
func ImmediateDelay() time.Duration {
	ms := rand.Intn(tenSecondsMs) + oneSecondMs
	return time.Duration(ms) * time.Millisecond
}

// DeferredDelay は通常ユーザー向けの遅延を返す。
// floor(random * 15分) + 5秒 * r（rは1..15の一様乱数）により、
// おおよそ[5s, 15分+75s)に分布する。全ユーザーの打刻時刻を散らし、
// プロバイダ側から同期的なトラフィックとして観測されないようにする。
func DeferredDelay() time.Duration {
	r := rand.Intn(15) + 1
	ms := rand.Intn(fifteenMinutesMs) + fiveSecondsMs*r
	return time.Duration(ms) * time.Millisecond
}

// DelayFor はプロファイルのisImmediateフラグに応じた遅延を返す。
func DelayFor(profile *model.UserAttendanceProfile) time.Duration {
	if profile.AttendanceData != nil && profile.AttendanceData.IsImmediate {
		return ImmediateDelay()
	}
	return DeferredDelay()
}

// Shuffle はプロファイルのスライスをFisher–Yatesでin-placeにシャッフルする。
// ディスパッチ順序がストレージ上の格納順と相関しないようにするための処理で、
// 実行のたびに異なる順序になる。
func Shuffle(profiles []*model.UserAttendanceProfile) {
	rand.Shuffle(len(profiles), func(i, j int) {
		profiles[i], profiles[j] = profiles[j], profiles[i]
	})
}
