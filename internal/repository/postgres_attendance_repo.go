package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
)

// PostgresAttendanceDataRepo はPostgreSQLを使用した打刻設定リポジトリ。
type PostgresAttendanceDataRepo struct {
	db *sql.DB
}

// NewPostgresAttendanceDataRepo はPostgresAttendanceDataRepoを生成する。
func NewPostgresAttendanceDataRepo(db *sql.DB) *PostgresAttendanceDataRepo {
	return &PostgresAttendanceDataRepo{db: db}
}

// Upsert は打刻設定をuser_idをキーにupsertする。
func (r *PostgresAttendanceDataRepo) Upsert(ctx context.Context, data *model.AttendanceData) (*model.AttendanceData, error) {
	now := time.Now()
	saved := &model.AttendanceData{}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO attendance_data (user_id, location_name, latitude, longitude,
		        is_active, remarks, time_zone, is_immediate, is_subscribe_mail,
		        created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 ON CONFLICT (user_id) DO UPDATE SET
		        location_name = EXCLUDED.location_name,
		        latitude = EXCLUDED.latitude,
		        longitude = EXCLUDED.longitude,
		        is_active = EXCLUDED.is_active,
		        remarks = EXCLUDED.remarks,
		        time_zone = EXCLUDED.time_zone,
		        is_immediate = EXCLUDED.is_immediate,
		        is_subscribe_mail = EXCLUDED.is_subscribe_mail,
		        updated_at = EXCLUDED.updated_at
		 RETURNING id, user_id, location_name, latitude, longitude, is_active,
		        remarks, time_zone, is_immediate, is_subscribe_mail, created_at, updated_at`,
		data.UserID, data.LocationName, data.Latitude, data.Longitude,
		data.IsActive, data.Remarks, data.TimeZone, data.IsImmediate,
		data.IsSubscribeMail, now,
	).Scan(
		&saved.ID, &saved.UserID, &saved.LocationName, &saved.Latitude, &saved.Longitude,
		&saved.IsActive, &saved.Remarks, &saved.TimeZone, &saved.IsImmediate,
		&saved.IsSubscribeMail, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert attendance data: %w", err)
	}
	return saved, nil
}

// UpdateStatus は自動打刻の有効・無効を切り替える。
func (r *PostgresAttendanceDataRepo) UpdateStatus(ctx context.Context, userID int64, isActive bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendance_data SET is_active = $1, updated_at = now() WHERE user_id = $2`,
		isActive, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance status: %w", err)
	}
	return requireRowAffected(result)
}

// UpdateLocation は打刻位置情報を更新する。timeZoneが空の場合は変更しない。
func (r *PostgresAttendanceDataRepo) UpdateLocation(ctx context.Context, userID int64, locationName, latitude, longitude, timeZone string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendance_data
		 SET location_name = $1, latitude = $2, longitude = $3,
		     time_zone = COALESCE(NULLIF($4, ''), time_zone),
		     updated_at = now()
		 WHERE user_id = $5`,
		locationName, latitude, longitude, timeZone, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance location: %w", err)
	}
	return requireRowAffected(result)
}

// requireRowAffected は更新対象が存在しない場合にErrNotFoundへ変換する。
func requireRowAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ AttendanceDataRepository = (*PostgresAttendanceDataRepo)(nil)
