// Package scheduler は打刻ディスパッチサイクルの定期起動を提供する。
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
)

// Dispatcher はディスパッチサイクル実行のインターフェース。
type Dispatcher interface {
	DispatchClockJobs(ctx context.Context, action model.ClockAction, locationID int) (int, error)
}

// schedule は1つのcronエントリを表す。
type schedule struct {
	spec       string
	action     model.ClockAction
	locationID int
}

// 平日8:25に出勤打刻、17:30に退勤打刻をリージョンごとのタイムゾーンで起動する。
// 実際の打刻時刻はディスパッチャがユーザーごとのランダム遅延で散らすため、
// 起動時刻そのものは固定で問題ない。
func schedules() []schedule {
	return []schedule{
		{spec: "CRON_TZ=Asia/Jakarta 25 8 * * 1-5", action: model.ClockIn, locationID: model.LocationIndonesia},
		{spec: "CRON_TZ=Asia/Jakarta 30 17 * * 1-5", action: model.ClockOut, locationID: model.LocationIndonesia},
		{spec: "CRON_TZ=Asia/Kuala_Lumpur 25 8 * * 1-5", action: model.ClockIn, locationID: model.LocationMalaysia},
		{spec: "CRON_TZ=Asia/Kuala_Lumpur 30 17 * * 1-5", action: model.ClockOut, locationID: model.LocationMalaysia},
	}
}

// Scheduler はcronエントリを管理し、発火時にディスパッチサイクルを実行する。
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	logger     *slog.Logger
}

// New はSchedulerを生成し、全エントリを登録する。
func New(dispatcher Dispatcher, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(),
		dispatcher: dispatcher,
		logger:     logger,
	}

	for _, entry := range schedules() {
		entry := entry
		if _, err := s.cron.AddFunc(entry.spec, func() {
			s.dispatch(entry.action, entry.locationID)
		}); err != nil {
			return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", entry.spec, err)
		}
	}

	return s, nil
}

// dispatch は1サイクルを実行する。失敗してもcron自体は止めない。
func (s *Scheduler) dispatch(action model.ClockAction, locationID int) {
	s.logger.Info("ディスパッチサイクルを開始します",
		slog.String("action", string(action)),
		slog.Int("location_id", locationID),
	)

	dispatched, err := s.dispatcher.DispatchClockJobs(context.Background(), action, locationID)
	if err != nil {
		s.logger.Error("ディスパッチサイクルが失敗しました",
			slog.String("action", string(action)),
			slog.Int("location_id", locationID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("ディスパッチサイクルが完了しました",
		slog.String("action", string(action)),
		slog.Int("location_id", locationID),
		slog.Int("dispatched", dispatched),
	)
}

// Start はcronの実行を開始する。
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop はcronを停止し、実行中のジョブの完了を待つためのコンテキストを返す。
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// EntryCount は登録済みのcronエントリ数を返す。
func (s *Scheduler) EntryCount() int {
	return len(s.cron.Entries())
}
