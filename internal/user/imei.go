// Package user はユーザー登録・認証情報の管理を提供する。
// Infotechへのログイン代行、プロファイルの保存、アプリパスワードの管理を含む。
package user

import (
	"math/rand"
	"strconv"
)

// GenerateIMEI はLuhnチェックディジット付きのランダムな15桁IMEIを生成する。
// 登録ごとに固有のデバイスとしてInfotechへ提示するための値で、
// 実在する端末のTACと一致する必要はない。
func GenerateIMEI() string {
	digits := make([]int, 15)
	// 先頭はゼロ以外にして常に15桁を保つ
	digits[0] = rand.Intn(9) + 1
	for i := 1; i < 14; i++ {
		digits[i] = rand.Intn(10)
	}
	digits[14] = luhnCheckDigit(digits[:14])

	var buf []byte
	for _, d := range digits {
		buf = strconv.AppendInt(buf, int64(d), 10)
	}
	return string(buf)
}

// luhnCheckDigit は先頭14桁に対するLuhnチェックディジットを計算する。
func luhnCheckDigit(digits []int) int {
	sum := 0
	for i, d := range digits {
		// チェックディジットから見て奇数位置（右から2番目起点）を2倍する
		if (len(digits)-i)%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// ValidIMEI は15桁かつLuhnチェックが成立するIMEIかどうかを返す。
func ValidIMEI(imei string) bool {
	if len(imei) != 15 {
		return false
	}
	digits := make([]int, 15)
	for i, r := range imei {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}
	return luhnCheckDigit(digits[:14]) == digits[14]
}
