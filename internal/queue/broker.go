package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// claimScript は実行可能時刻に達したジョブをアトミックにprocessingへ移動する。
// KEYS[1]=scheduled, KEYS[2]=processing, ARGV[1]=現在時刻(ms),
// ARGV[2]=リース期限(ms), ARGV[3]=最大取得件数
var claimScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[3]))
for _, member in ipairs(due) do
  redis.call('ZREM', KEYS[1], member)
  redis.call('ZADD', KEYS[2], ARGV[2], member)
end
return due
`)

// reapScript はリース期限切れのジョブをscheduledへ戻す。
// クラッシュしたワーカーが掴んだままのジョブを再配信するためのもの。
// KEYS[1]=processing, KEYS[2]=scheduled, ARGV[1]=現在時刻(ms), ARGV[2]=最大件数
var reapScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(expired) do
  redis.call('ZREM', KEYS[1], member)
  redis.call('ZADD', KEYS[2], ARGV[1], member)
end
return #expired
`)

// Broker はRedisバックエンドの遅延ジョブブローカー。
// ジョブJSONをメンバー、実行可能時刻(unix ms)をスコアとしてsorted setに保持する。
// 配信はat-least-onceであり、重複排除は行わない。
type Broker struct {
	client redis.Cmdable
}

// NewBroker はBrokerを生成する。
func NewBroker(client redis.Cmdable) *Broker {
	return &Broker{client: client}
}

// Enqueue はジョブを指定レーンに登録する。
// delayが正の場合、ジョブはその時間が経過するまでワーカーから見えない。
func (b *Broker) Enqueue(ctx context.Context, lane, jobType string, payload any, delay time.Duration) (*Job, error) {
	if delay < 0 {
		delay = 0
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("queue: failed to encode payload: %w", err)
	}

	now := time.Now()
	job := &Job{
		ID:         uuid.NewString(),
		Lane:       lane,
		Type:       jobType,
		Payload:    raw,
		Attempt:    1,
		EnqueuedAt: now,
		ReadyAt:    now.Add(delay),
	}

	member, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: failed to encode job: %w", err)
	}

	err = b.client.ZAdd(ctx, scheduledKey(lane), redis.Z{
		Score:  float64(job.ReadyAt.UnixMilli()),
		Member: string(member),
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("queue: failed to enqueue job to %s: %w", lane, err)
	}

	return job, nil
}

// Claim は実行可能なジョブを最大batch件取得し、リース付きでprocessingへ移動する。
// リース期限内にAckされなかったジョブはReapにより再配信される。
func (b *Broker) Claim(ctx context.Context, lane string, batch int, lease time.Duration) ([]*Job, error) {
	now := time.Now()
	members, err := claimScript.Run(ctx, b.client,
		[]string{scheduledKey(lane), processingKey(lane)},
		now.UnixMilli(),
		now.Add(lease).UnixMilli(),
		batch,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("queue: failed to claim jobs from %s: %w", lane, err)
	}

	jobs := make([]*Job, 0, len(members))
	for _, member := range members {
		job := &Job{}
		if err := json.Unmarshal([]byte(member), job); err != nil {
			// 壊れたメンバーはprocessingに残さず破棄する
			b.client.ZRem(ctx, processingKey(lane), member)
			continue
		}
		job.raw = member
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Ack はジョブの処理完了を確定し、再配信対象から外す。
func (b *Broker) Ack(ctx context.Context, job *Job) error {
	if err := b.client.ZRem(ctx, processingKey(job.Lane), job.raw).Err(); err != nil {
		return fmt.Errorf("queue: failed to ack job %s: %w", job.ID, err)
	}
	return nil
}

// Reap はリース期限切れのジョブをscheduledへ戻し、戻した件数を返す。
func (b *Broker) Reap(ctx context.Context, lane string, limit int) (int, error) {
	count, err := reapScript.Run(ctx, b.client,
		[]string{processingKey(lane), scheduledKey(lane)},
		time.Now().UnixMilli(),
		limit,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("queue: failed to reap lane %s: %w", lane, err)
	}
	return count, nil
}

func scheduledKey(lane string) string {
	return fmt.Sprintf("queue:%s:scheduled", lane)
}

func processingKey(lane string) string {
	return fmt.Sprintf("queue:%s:processing", lane)
}
