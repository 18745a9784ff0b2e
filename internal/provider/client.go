package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/crypto"
)

// maxResponseSize はプロバイダレスポンスの最大読み取りサイズ。
const maxResponseSize = 2 << 20

// NewSafeHTTPClient はSSRF防止機能付きのHTTPクライアントを生成する。
// プロバイダのベースURLは復号された設定値であり信頼しないため、
// safeurlによりプライベートIP・ループバック・メタデータIPへの到達を遮断する。
func NewSafeHTTPClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// Client はInfotech APIのHTTPクライアント。
// 暗号化済みペイロードを {"str": <ciphertext>} のボディで送信し、
// モバイルクライアントを模したヘッダーを付加する。
type Client struct {
	httpClient *http.Client
	cipher     *crypto.Cipher
	endpoints  *Endpoints
	logger     *slog.Logger
}

// NewClient はClientを生成する。
func NewClient(httpClient *http.Client, cipher *crypto.Cipher, endpoints *Endpoints, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		cipher:     cipher,
		endpoints:  endpoints,
		logger:     logger,
	}
}

// requestBody はプロバイダAPIのワイヤフォーマット。
type requestBody struct {
	Str string `json:"str"`
}

// Call はプロバイダAPIへPOSTリクエストを送信する。
// 失敗は常にタグ付きResultのソフトフェイルとして返り、errorは返さない。
// ネットワークエラー、非2xx、不正なレスポンスはすべてログに記録される。
func (c *Client) Call(ctx context.Context, api API, path, encryptedPayload string, withToken bool, id crypto.ClientIdentity) *Result {
	url := fmt.Sprintf("%s/%s", c.endpoints.BaseURL(api), path)

	body, err := json.Marshal(requestBody{Str: encryptedPayload})
	if err != nil {
		return errResult(ErrKindNetwork, fmt.Sprintf("Can't fetch api for %s. Reason: %s", path, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errResult(ErrKindNetwork, fmt.Sprintf("Can't fetch api for %s. Reason: %s", path, err))
	}

	for key, value := range c.cipher.BuildHeaders(withToken, id) {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("プロバイダAPIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return errResult(ErrKindNetwork, fmt.Sprintf("Can't fetch api for %s. Reason: %s", path, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errResult(ErrKindNetwork, fmt.Sprintf("Can't read response for %s. Reason: %s", path, err))
	}

	c.logger.Info("プロバイダAPIを呼び出しました",
		slog.String("path", path),
		slog.Int("http_status", resp.StatusCode),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errResult(ErrKindStatus, fmt.Sprintf("Provider returned status %d for %s", resp.StatusCode, path))
	}

	if !json.Valid(raw) {
		return errResult(ErrKindDecode, fmt.Sprintf("Provider returned malformed response for %s", path))
	}

	return &Result{OK: true, Body: raw}
}
