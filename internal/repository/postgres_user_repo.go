package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, imei, token, device_id, customer_id, id_number,
	employee_id, company_id, infotech_user_id, user_group_id, user_token,
	management_app_password, created_at, updated_at`

// scanUser は1行分のユーザーをスキャンする。
func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.IMEI, &user.Token, &user.DeviceID,
		&user.CustomerID, &user.IDNumber, &user.EmployeeID, &user.CompanyID,
		&user.InfotechUserID, &user.UserGroupID, &user.UserToken,
		&user.ManagementAppPassword, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindProfileByEmail はユーザーと打刻設定を結合したプロファイルを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindProfileByEmail(ctx context.Context, email string) (*model.UserAttendanceProfile, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}

	profile := &model.UserAttendanceProfile{User: *user}

	data := &model.AttendanceData{}
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, location_name, latitude, longitude, is_active,
		        remarks, time_zone, is_immediate, is_subscribe_mail, created_at, updated_at
		 FROM attendance_data WHERE user_id = $1`,
		user.ID,
	).Scan(
		&data.ID, &data.UserID, &data.LocationName, &data.Latitude, &data.Longitude,
		&data.IsActive, &data.Remarks, &data.TimeZone, &data.IsImmediate,
		&data.IsSubscribeMail, &data.CreatedAt, &data.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find attendance data: %w", err)
	}

	profile.AttendanceData = data
	return profile, nil
}

// Upsert はユーザーをメールアドレスをキーにupsertする。
// 既存ユーザーの場合はトークン・デバイスID・ユーザートークンのみ更新する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()

	saved, err := scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, imei, token, device_id, customer_id, id_number,
		        employee_id, company_id, infotech_user_id, user_group_id, user_token,
		        management_app_password, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		 ON CONFLICT (email) DO UPDATE SET
		        token = EXCLUDED.token,
		        device_id = EXCLUDED.device_id,
		        user_token = EXCLUDED.user_token,
		        updated_at = EXCLUDED.updated_at
		 RETURNING `+userColumns,
		user.Email, user.IMEI, user.Token, user.DeviceID, user.CustomerID,
		user.IDNumber, user.EmployeeID, user.CompanyID, user.InfotechUserID,
		user.UserGroupID, user.UserToken, user.ManagementAppPassword, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return saved, nil
}

// UpdatePassword は管理アプリパスワードのハッシュを更新する。
func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET management_app_password = $1, updated_at = now() WHERE email = $2`,
		passwordHash, email,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListActiveProfiles はis_active=trueの打刻設定を持つ全ユーザーのプロファイルを返す。
// locationIDが0以外の場合はそのリージョンのユーザーに絞り込む。
func (r *PostgresUserRepo) ListActiveProfiles(ctx context.Context, locationID int) ([]*model.UserAttendanceProfile, error) {
	query := `SELECT u.id, u.email, u.imei, u.token, u.device_id, u.customer_id, u.id_number,
	       u.employee_id, u.company_id, u.infotech_user_id, u.user_group_id, u.user_token,
	       u.management_app_password, u.created_at, u.updated_at,
	       a.id, a.user_id, a.location_name, a.latitude, a.longitude, a.is_active,
	       a.remarks, a.time_zone, a.is_immediate, a.is_subscribe_mail, a.created_at, a.updated_at
	 FROM users u
	 JOIN attendance_data a ON a.user_id = u.id
	 WHERE a.is_active = TRUE`
	args := []any{}
	if locationID != 0 {
		query += ` AND u.user_group_id = $1`
		args = append(args, locationID)
	}
	query += ` ORDER BY u.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.UserAttendanceProfile
	for rows.Next() {
		user := model.User{}
		data := model.AttendanceData{}
		err := rows.Scan(
			&user.ID, &user.Email, &user.IMEI, &user.Token, &user.DeviceID,
			&user.CustomerID, &user.IDNumber, &user.EmployeeID, &user.CompanyID,
			&user.InfotechUserID, &user.UserGroupID, &user.UserToken,
			&user.ManagementAppPassword, &user.CreatedAt, &user.UpdatedAt,
			&data.ID, &data.UserID, &data.LocationName, &data.Latitude, &data.Longitude,
			&data.IsActive, &data.Remarks, &data.TimeZone, &data.IsImmediate,
			&data.IsSubscribeMail, &data.CreatedAt, &data.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, &model.UserAttendanceProfile{User: user, AttendanceData: &data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
