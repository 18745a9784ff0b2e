package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/cache"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/crypto"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/metrics"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/provider"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/queue"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/repository"
)

// CacheStore はサービスが必要とするキャッシュ操作のインターフェース。
type CacheStore interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// JobEnqueuer はジョブ登録のインターフェース。
type JobEnqueuer interface {
	Enqueue(ctx context.Context, lane, jobType string, payload any, delay time.Duration) (*queue.Job, error)
}

// ProviderCaller はプロバイダAPI呼び出しのインターフェース。
type ProviderCaller interface {
	Call(ctx context.Context, api provider.API, path, encryptedPayload string, withToken bool, id crypto.ClientIdentity) *provider.Result
}

// Service は自動打刻のオーケストレーションを行う。
// ディスパッチサイクルの実行と、キュー経由・手動トリガー両方の打刻処理を担当する。
type Service struct {
	users     repository.UserRepository
	dataRepo  repository.AttendanceDataRepository
	cache     CacheStore
	queue     JobEnqueuer
	api       ProviderCaller
	cipher    *crypto.Cipher
	endpoints *provider.Endpoints
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	dataRepo repository.AttendanceDataRepository,
	cacheStore CacheStore,
	jobQueue JobEnqueuer,
	api ProviderCaller,
	cipher *crypto.Cipher,
	endpoints *provider.Endpoints,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:     users,
		dataRepo:  dataRepo,
		cache:     cacheStore,
		queue:     jobQueue,
		api:       api,
		cipher:    cipher,
		endpoints: endpoints,
		metrics:   recorder,
		logger:    logger,
	}
}

// DispatchClockJobs は1ディスパッチサイクルを実行する。
// アクティブなロースターを取得してシャッフルし、ユーザーごとにランダムな遅延を
// 付与して打刻ジョブを登録する。個別ユーザーの登録失敗はログに記録して続行し、
// サイクル全体を失敗させない。登録したジョブ数を返す。
func (s *Service) DispatchClockJobs(ctx context.Context, action model.ClockAction, locationID int) (int, error) {
	profiles, err := s.getRoster(ctx, locationID)
	if err != nil {
		return 0, fmt.Errorf("attendance: failed to resolve roster: %w", err)
	}
	if len(profiles) == 0 {
		s.logger.Info("ディスパッチ対象のユーザーはいません",
			slog.String("action", string(action)),
			slog.Int("location_id", locationID),
		)
		return 0, nil
	}

	Shuffle(profiles)

	dispatched := 0
	for _, profile := range profiles {
		delay := DelayFor(profile)

		payload := model.ClockJobPayload{Profile: *profile, ActionType: action}
		if _, err := s.queue.Enqueue(ctx, queue.LaneAttendance, queue.TypeAutoClockIn, payload, delay); err != nil {
			s.logger.Error("打刻ジョブの登録に失敗しました",
				slog.String("email", profile.Email),
				slog.String("action", string(action)),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.logger.Info(fmt.Sprintf("%s in %.0fs for %s", action, delay.Seconds(), profile.Email))
		s.metrics.RecordJobDispatched(string(action))
		dispatched++
	}

	return dispatched, nil
}

// getRoster はアクティブな打刻ロースターをキャッシュ優先で取得する。
// キャッシュには全リージョンのロースターを保持し、リージョン絞り込みは
// 取得後にメモリ上で行う。
func (s *Service) getRoster(ctx context.Context, locationID int) ([]*model.UserAttendanceProfile, error) {
	var profiles []*model.UserAttendanceProfile

	hit, err := s.cache.Get(ctx, cache.AttendancesDataKey, &profiles)
	if err != nil {
		s.logger.Error("ロースターキャッシュの読み取りに失敗しました", slog.String("error", err.Error()))
	}
	if !hit {
		profiles, err = s.users.ListActiveProfiles(ctx, 0)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, cache.AttendancesDataKey, profiles, cache.AttendancesDataTTL); err != nil {
			s.logger.Error("ロースターキャッシュの書き込みに失敗しました", slog.String("error", err.Error()))
		}
	}

	if locationID == 0 {
		return profiles, nil
	}
	filtered := make([]*model.UserAttendanceProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.UserGroupID == locationID {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// HandleClockJob は打刻レーンのジョブハンドラー。
// 打刻の失敗はソフトフェイルとして処理済みのため常にnilを返し、
// ブローカーによる再配信を発生させない。
func (s *Service) HandleClockJob(ctx context.Context, job *queue.Job) error {
	var payload model.ClockJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		s.logger.Error("打刻ジョブのペイロードを解析できません",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	s.Clock(ctx, &payload.Profile, payload.ActionType)
	return nil
}

// clockRequest はInfotech打刻APIのペイロード。
type clockRequest struct {
	CardNoC       string `json:"CardNoC"`
	CustomerID    int64  `json:"CustomerID"`
	DeviceID      string `json:"Deviceid"`
	IMEINo        string `json:"IMEINo"`
	LatN          string `json:"LatN"`
	LngN          string `json:"LngN"`
	LocationNameC string `json:"LocationNameC"`
	Remarks       string `json:"remarks"`
	TimeZoneName  string `json:"timeZoneName"`
	IsException   bool   `json:"IsException"`
	Language      string `json:"language"`
	PunchAction   string `json:"PunchAction"`
	JobCode       string `json:"JobCode"`
	NRICNo        string `json:"NRICNo"`
	Temperature   string `json:"Temperature"`
	VerifyType    string `json:"VerifyType"`
	WIFISSID      string `json:"WIFISSID"`
}

// Clock は1ユーザー分の打刻を実行する。キュー経由のジョブと
// 手動トリガーの両方から呼ばれる。
// 成功時はユーザーの履歴キャッシュを無効化し、失敗時はキャッシュに触れない。
// isSubscribeMailが有効な場合は成否に応じた通知ジョブを登録する。
func (s *Service) Clock(ctx context.Context, profile *model.UserAttendanceProfile, action model.ClockAction) *model.ServiceResponse {
	data := profile.AttendanceData
	if data == nil {
		s.logger.Error("打刻設定のないユーザーの打刻ジョブを受信しました", slog.String("email", profile.Email))
		return model.FailResponse(http.StatusBadRequest, "No attendance data registered.")
	}

	payload := clockRequest{
		CardNoC:       profile.IDNumber,
		CustomerID:    profile.CustomerID,
		DeviceID:      profile.DeviceID,
		IMEINo:        profile.IMEI,
		LatN:          data.Latitude,
		LngN:          data.Longitude,
		LocationNameC: data.LocationName,
		Remarks:       data.Remarks,
		TimeZoneName:  data.TimeZone,
		Language:      "english",
		PunchAction:   action.PunchAction(),
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return model.FailResponse(http.StatusInternalServerError, err.Error())
	}

	identity := crypto.ClientIdentity{Email: profile.Email, IMEI: profile.IMEI, Token: profile.Token}

	start := time.Now()
	result := s.api.Call(ctx, provider.APIAttendance, s.endpoints.ClockInPath, s.cipher.Encrypt(string(jsonPayload)), true, identity)
	s.metrics.RecordProviderLatency(time.Since(start))

	clockTime := time.Now().Format("15:04:05")

	if !result.OK {
		s.metrics.RecordClockFailure(string(action))
		s.logger.Error(fmt.Sprintf("Cannot %s. Reason: %s", action, result.Message),
			slog.String("email", profile.Email),
			slog.String("err_kind", string(result.ErrKind)),
		)
		if data.IsSubscribeMail {
			s.enqueueMail(ctx, model.MailJobPayload{
				Recipient: profile.Email,
				Subject:   fmt.Sprintf("Failed to auto %s at the moment, please do %s manually.", action, action),
				Body:      fmt.Sprintf("<p>We cannot perform %s at the moment. Please report this to the developer</p>", action),
			})
		}
		return model.FailResponse(http.StatusBadGateway, result.Message)
	}

	// 成功: 次回の履歴読み出しが新しい打刻を反映するようキャッシュを無効化する
	if err := s.cache.Delete(ctx, cache.HistoryKey(profile.Email)); err != nil {
		s.logger.Error("履歴キャッシュの無効化に失敗しました",
			slog.String("email", profile.Email),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.RecordClockSuccess(string(action))
	s.logger.Info(fmt.Sprintf("%s Success at: %s", action, clockTime), slog.String("email", profile.Email))

	if data.IsSubscribeMail {
		s.enqueueMail(ctx, model.MailJobPayload{
			Recipient: profile.Email,
			Subject:   fmt.Sprintf("Successfully %s at %s", action, clockTime),
			Body:      fmt.Sprintf(`<p style="font-weight: bold">You have successfully %s at %s in %s</p>`, action, clockTime, data.LocationName),
		})
	}

	return model.OKResponse(nil)
}

// enqueueMail は通知ジョブを登録する。失敗してもClock処理自体は成功扱いのまま、
// ログに記録するだけに留める。
func (s *Service) enqueueMail(ctx context.Context, payload model.MailJobPayload) {
	if _, err := s.queue.Enqueue(ctx, queue.LaneMail, queue.TypeSendMail, payload, 0); err != nil {
		s.logger.Error("通知ジョブの登録に失敗しました",
			slog.String("recipient", payload.Recipient),
			slog.String("error", err.Error()),
		)
	}
}
