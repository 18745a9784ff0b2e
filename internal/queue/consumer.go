package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handler はジョブ処理関数。nilを返すとジョブはAckされ、
// エラーを返すとリース期限切れ後に再配信される。
type Handler func(ctx context.Context, job *Job) error

// ConsumerConfig はコンシューマの動作設定。
type ConsumerConfig struct {
	PollInterval   time.Duration // 実行可能ジョブの確認間隔
	LeaseTime      time.Duration // 1回のclaimで保持するリース時間
	BatchSize      int           // 1回のclaimで取得する最大件数
	MaxConcurrency int           // 同時に処理するジョブの最大数
}

// DefaultConsumerConfig はデフォルトのコンシューマ設定を返す。
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		PollInterval:   time.Second,
		LeaseTime:      2 * time.Minute,
		BatchSize:      10,
		MaxConcurrency: 5,
	}
}

// Consumer は単一レーンのジョブを消費する。
// アイドル時のみブロックし、遅延の経過待ちはブローカー側のスコアで表現されるため
// タイマーをビジーウェイトすることはない。
type Consumer struct {
	broker  *Broker
	lane    string
	handler Handler
	logger  *slog.Logger
	config  ConsumerConfig
}

// NewConsumer はConsumerを生成する。
// 設定のゼロ値はDefaultConsumerConfigの値で補完される。
func NewConsumer(broker *Broker, lane string, handler Handler, logger *slog.Logger, config ConsumerConfig) *Consumer {
	def := DefaultConsumerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.LeaseTime <= 0 {
		config.LeaseTime = def.LeaseTime
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	return &Consumer{
		broker:  broker,
		lane:    lane,
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// Start はポーリングループを開始する。コンテキストがキャンセルされるまで実行を継続し、
// 処理中のジョブの完了を待ってから戻る。
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info("キューコンシューマを開始しました",
		slog.String("lane", c.lane),
		slog.Int("max_concurrency", c.config.MaxConcurrency),
	)

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, c.config.MaxConcurrency)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			c.logger.Info("キューコンシューマを停止しました", slog.String("lane", c.lane))
			return
		case <-ticker.C:
			c.runCycle(ctx, sem, &wg)
		}
	}
}

// runCycle は期限切れリースの回収と実行可能ジョブの処理を1回行う。
func (c *Consumer) runCycle(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) {
	if reaped, err := c.broker.Reap(ctx, c.lane, c.config.BatchSize); err != nil {
		c.logger.Error("期限切れリースの回収に失敗しました",
			slog.String("lane", c.lane),
			slog.String("error", err.Error()),
		)
	} else if reaped > 0 {
		c.logger.Warn("リース期限切れのジョブを再スケジュールしました",
			slog.String("lane", c.lane),
			slog.Int("count", reaped),
		)
	}

	jobs, err := c.broker.Claim(ctx, c.lane, c.config.BatchSize, c.config.LeaseTime)
	if err != nil {
		c.logger.Error("ジョブの取得に失敗しました",
			slog.String("lane", c.lane),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}

		go func(j *Job) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := c.handler(ctx, j); err != nil {
				// Ackせずリース期限切れによる再配信に委ねる
				c.logger.Error("ジョブの処理に失敗しました",
					slog.String("lane", c.lane),
					slog.String("job_id", j.ID),
					slog.String("job_type", j.Type),
					slog.String("error", err.Error()),
				)
				return
			}

			if err := c.broker.Ack(ctx, j); err != nil {
				c.logger.Error("ジョブのAckに失敗しました",
					slog.String("lane", c.lane),
					slog.String("job_id", j.ID),
					slog.String("error", err.Error()),
				)
			}
		}(job)
	}
}
