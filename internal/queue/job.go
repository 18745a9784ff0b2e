// Package queue はRedisを使用した遅延ジョブキューを提供する。
// レーンごとに独立したsorted setでジョブを保持し、per-jobの遅延と
// at-least-once配信（リース方式）をサポートする。
package queue

import (
	"encoding/json"
	"time"
)

// レーン名。打刻レーンと通知レーンは独立して処理され、互いをブロックしない。
const (
	// LaneAttendance は打刻アクションジョブのレーン。
	LaneAttendance = "attendance"
	// LaneMail はメール通知ジョブのレーン。
	LaneMail = "mail"
)

// ジョブ種別。
const (
	// TypeAutoClockIn は自動打刻ジョブ。
	TypeAutoClockIn = "auto-clock-in"
	// TypeSendMail はメール送信ジョブ。
	TypeSendMail = "send-mail"
)

// Job はキューに登録されるジョブを表す。
// 作成後は変更されず、ワーカーはスナップショットとして受け取る。
type Job struct {
	ID         string          `json:"id"`
	Lane       string          `json:"lane"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	ReadyAt    time.Time       `json:"readyAt"`

	// raw はRedisのsorted setメンバーそのもの。ack時のZREMに使用する。
	raw string
}
