package attendance

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/cache"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/crypto"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/provider"
)

// HistoryQuery は打刻履歴取得に必要なユーザー識別情報。
type HistoryQuery struct {
	EmployeeID string
	CustomerID int64
	CompanyID  int64
	Email      string
	IMEI       string
	Token      string
}

// historyRequest はInfotech履歴APIのペイロード。
type historyRequest struct {
	EmpCode    string `json:"EmpCode"`
	CustomerID int64  `json:"CustomerID"`
	CompanyID  int64  `json:"CompanyID"`
}

// historyEntry は履歴エントリのうち位置情報の抽出に必要なフィールドのみを持つ。
// プロバイダのレスポンス形状は固定ではないため、それ以外はRawMessageのまま扱う。
type historyEntry struct {
	LocationNameC string `json:"LocationNameC"`
	LatN          string `json:"LatN"`
	LngN          string `json:"LngN"`
}

// GetAttendanceHistory はユーザーの打刻履歴をページネーションして返す。
// fetchLastが真の場合はページネーションせず最新1件のみ返す。
func (s *Service) GetAttendanceHistory(ctx context.Context, query HistoryQuery, fetchLast bool, page, pageSize int) *model.ServiceResponse {
	history, resp := s.fetchHistory(ctx, query)
	if resp != nil {
		return resp
	}

	if fetchLast {
		return model.OKResponse(history[0])
	}
	return model.OKResponse(paginate(history, pageSize, page))
}

// GetLocationHistory は打刻履歴から重複のない打刻位置の一覧を導出する。
// 履歴の並び順を保ったまま、各LocationNameCの初出のみを残す。
func (s *Service) GetLocationHistory(ctx context.Context, query HistoryQuery) *model.ServiceResponse {
	history, resp := s.fetchHistory(ctx, query)
	if resp != nil {
		return resp
	}

	type location struct {
		ID           int    `json:"id"`
		LocationName string `json:"locationName"`
		Latitude     string `json:"latitude"`
		Longitude    string `json:"longitude"`
	}

	seen := map[string]bool{}
	locations := make([]location, 0)
	for _, raw := range history {
		var entry historyEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if seen[entry.LocationNameC] {
			continue
		}
		seen[entry.LocationNameC] = true
		locations = append(locations, location{
			ID:           len(locations) + 1,
			LocationName: entry.LocationNameC,
			Latitude:     entry.LatN,
			Longitude:    entry.LngN,
		})
	}

	return model.OKResponse(locations)
}

// fetchHistory は履歴をキャッシュ優先で取得する。キャッシュには新しい順に
// 並べ替えた全履歴を保持する。履歴が空の場合は404のソフトフェイルを返す。
func (s *Service) fetchHistory(ctx context.Context, query HistoryQuery) ([]json.RawMessage, *model.ServiceResponse) {
	key := cache.HistoryKey(query.Email)

	var history []json.RawMessage
	hit, err := s.cache.Get(ctx, key, &history)
	if err != nil {
		s.logger.Error("履歴キャッシュの読み取りに失敗しました",
			slog.String("email", query.Email),
			slog.String("error", err.Error()),
		)
	}
	if hit && len(history) > 0 {
		return history, nil
	}

	payload := historyRequest{
		EmpCode:    query.EmployeeID,
		CustomerID: query.CustomerID,
		CompanyID:  query.CompanyID,
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, model.FailResponse(http.StatusInternalServerError, err.Error())
	}

	identity := crypto.ClientIdentity{Email: query.Email, IMEI: query.IMEI, Token: query.Token}
	result := s.api.Call(ctx, provider.APIAttendance, s.endpoints.GetAttendanceHistoryPath, s.cipher.Encrypt(string(jsonPayload)), true, identity)
	if !result.OK {
		apiErr := model.NewProviderFailedError("attendance history", result.Message)
		s.logger.Error(apiErr.Message, slog.String("email", query.Email))
		return nil, model.ErrorResponse(http.StatusBadGateway, apiErr)
	}

	if err := result.Decode(&history); err != nil {
		return nil, model.ErrorResponse(http.StatusBadGateway, model.NewProviderFailedError("attendance history", err.Error()))
	}
	if len(history) == 0 {
		return nil, model.ErrorResponse(http.StatusNotFound, model.NewHistoryNotFoundError())
	}

	// プロバイダは古い順で返すため、新しい順に反転してからキャッシュする
	reverse(history)
	if err := s.cache.Set(ctx, key, history, cache.HistoryTTL); err != nil {
		s.logger.Error("履歴キャッシュの書き込みに失敗しました",
			slog.String("email", query.Email),
			slog.String("error", err.Error()),
		)
	}

	return history, nil
}

func reverse(items []json.RawMessage) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

// paginate はスライスを1始まりのページ番号でページネーションする。
// 範囲外のページ番号は[1, totalPages]にクランプする。
func paginate(items []json.RawMessage, pageSize, currentPage int) *model.PaginatedItems {
	totalItems := len(items)
	totalPages := (totalItems + pageSize - 1) / pageSize

	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	start := (currentPage - 1) * pageSize
	end := start + pageSize
	if end > totalItems {
		end = totalItems
	}

	result := &model.PaginatedItems{
		CurrentPage:     currentPage,
		TotalItems:      totalItems,
		TotalPages:      totalPages,
		PageSize:        pageSize,
		HasPreviousPage: currentPage > 1,
		HasNextPage:     currentPage < totalPages,
		Items:           items[start:end],
	}
	if result.HasNextPage {
		next := currentPage + 1
		result.NextPage = &next
	}
	if result.HasPreviousPage {
		previous := currentPage - 1
		result.PreviousPage = &previous
	}
	return result
}
