package model

// ClockAction は打刻の種別を表す。
type ClockAction string

const (
	// ClockIn は出勤打刻。
	ClockIn ClockAction = "Clock In"
	// ClockOut は退勤打刻。
	ClockOut ClockAction = "Clock Out"
)

// PunchAction はInfotech APIのPunchActionフィールド値を返す。
func (a ClockAction) PunchAction() string {
	if a == ClockOut {
		return "OUT"
	}
	return "IN"
}

// Valid は既知の打刻種別かどうかを返す。
func (a ClockAction) Valid() bool {
	return a == ClockIn || a == ClockOut
}

// ClockJobPayload は打刻レーンのジョブペイロード。
// ディスパッチ時点のプロファイルスナップショットを保持し、作成後は変更しない。
type ClockJobPayload struct {
	Profile    UserAttendanceProfile `json:"profile"`
	ActionType ClockAction           `json:"actionType"`
}

// MailJobPayload は通知レーンのジョブペイロード。
type MailJobPayload struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
