package crypto

// RequestToken はワンタイムリクエストトークンを計算する。
// フロントエンドは同一の式でトークンを生成し、x-app-tokenヘッダーで送信する。
// サーバー側で再計算した値と一致しないリクエストは改ざん・リプレイとして拒否される。
// トークンは生成元のリクエスト（パス・UA・タイムスタンプ・ボディ）にのみ有効。
func (c *Cipher) RequestToken(frontendHost, path, userAgent, requestTime string, body []byte) string {
	if len(body) == 0 {
		body = []byte("{}")
	}
	formula := frontendHost + path + userAgent + requestTime + string(c.iv) + string(body)
	return c.Encrypt(formula)
}
