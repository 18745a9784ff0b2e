package provider

import (
	"encoding/json"
	"fmt"
)

// ErrKind はプロバイダ呼び出し失敗の分類。
type ErrKind string

const (
	// ErrKindNetwork はタイムアウト・接続失敗などのネットワーク起因の失敗。
	ErrKindNetwork ErrKind = "network"
	// ErrKindStatus は非2xxステータスによる失敗。
	ErrKindStatus ErrKind = "status"
	// ErrKindDecode はレスポンスの解析失敗。
	ErrKindDecode ErrKind = "decode"
)

// Result はプロバイダAPIレスポンスのタグ付き結果。
// 成功時はBodyに検証済みJSONを持ち、失敗時はErrKindとMessageを持つ。
// 型のないblobを境界の内側へ持ち込まないための防壁として機能する。
type Result struct {
	OK      bool
	Body    json.RawMessage
	ErrKind ErrKind
	Message string
}

// Decode は成功レスポンスのBodyをdestへデコードする。
// 失敗結果に対する呼び出しと、期待した形に合わないBodyはエラーを返す。
func (r *Result) Decode(dest any) error {
	if !r.OK {
		return fmt.Errorf("provider: cannot decode failed result: %s", r.Message)
	}
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return fmt.Errorf("provider: unexpected response shape: %w", err)
	}
	return nil
}

func errResult(kind ErrKind, message string) *Result {
	return &Result{OK: false, ErrKind: kind, Message: message}
}
