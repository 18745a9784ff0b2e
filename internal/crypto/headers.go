package crypto

// ClientIdentity はヘッダー構築に使用する呼び出し元の識別情報。
type ClientIdentity struct {
	Email string
	IMEI  string
	Token string
}

// UserAgent はInfotechモバイルアプリが使用するHTTPクライアントのシグネチャ。
// 実機トラフィックと同一のリテラルである必要がある。
const UserAgent = "okhttp/3.12.1"

// BuildHeaders はInfotech APIに送信するリクエストヘッダーを構築する。
// キー名はモバイルSDKの難読化された命名に合わせてあり、値は暗号化済み:
//
//	kF — 端末検証済みフラグ
//	dT — デバイス種別
//	eM — ユーザーのメールアドレス
//	iM — IMEI
//
// withTokenがtrueの場合はセッショントークンを平文のtokenヘッダーで付加する。
func (c *Cipher) BuildHeaders(withToken bool, id ClientIdentity) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json; charset=UTF-8",
		"User-Agent":   UserAgent,
		"kF":           c.Encrypt("true"),
		"dT":           c.Encrypt("android"),
		"eM":           c.Encrypt(id.Email),
		"iM":           c.Encrypt(id.IMEI),
	}
	if withToken {
		headers["token"] = id.Token
	}
	return headers
}
