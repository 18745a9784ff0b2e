package attendance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/cache"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
)

// StoreAttendanceData は打刻設定をupsertする。ユーザーにつき常に1件のみ保持し、
// 保存後はロースターキャッシュを無効化して次回ディスパッチに反映させる。
func (s *Service) StoreAttendanceData(ctx context.Context, data *model.AttendanceData) *model.ServiceResponse {
	stored, err := s.dataRepo.Upsert(ctx, data)
	if err != nil {
		s.logger.Error("打刻設定の保存に失敗しました",
			slog.Int64("user_id", data.UserID),
			slog.String("error", err.Error()),
		)
		return model.FailResponse(http.StatusInternalServerError, "Cannot store attendance data.")
	}

	s.invalidateRoster(ctx)
	return model.OKResponse(stored)
}

// UpdateStatus は自動打刻の有効・無効を切り替える。
func (s *Service) UpdateStatus(ctx context.Context, userID int64, isActive bool) *model.ServiceResponse {
	if err := s.dataRepo.UpdateStatus(ctx, userID, isActive); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.FailResponse(http.StatusNotFound, "Attendance data not found.")
		}
		s.logger.Error("打刻ステータスの更新に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return model.FailResponse(http.StatusInternalServerError, "Cannot update attendance status.")
	}

	s.invalidateRoster(ctx)
	return model.OKResponse(nil)
}

// UpdateLocation は打刻位置情報を更新する。timeZoneが空の場合は現在値を維持する。
func (s *Service) UpdateLocation(ctx context.Context, userID int64, locationName, latitude, longitude, timeZone string) *model.ServiceResponse {
	if err := s.dataRepo.UpdateLocation(ctx, userID, locationName, latitude, longitude, timeZone); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.FailResponse(http.StatusNotFound, "Attendance data not found.")
		}
		s.logger.Error("打刻位置情報の更新に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return model.FailResponse(http.StatusInternalServerError, "Cannot update attendance location.")
	}

	s.invalidateRoster(ctx)
	return model.OKResponse(nil)
}

// invalidateRoster はロースターキャッシュを削除する。削除失敗時はTTL切れまで
// 古いロースターが使われるだけなので、ログに記録して続行する。
func (s *Service) invalidateRoster(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.AttendancesDataKey); err != nil {
		s.logger.Error("ロースターキャッシュの無効化に失敗しました", slog.String("error", err.Error()))
	}
}
