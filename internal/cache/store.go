// Package cache はRedisを使用したread-throughキャッシュ層を提供する。
// キーファミリーごとに明示的なTTLを持ち、書き込み系の操作後は
// 呼び出し側が対応するキーを同期的に無効化する。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store はRedisバックエンドのキー・バリューキャッシュ。
// 複数のワーカーから並行アクセスされるが、ロックは行わない。
// Setはlast-writer-wins、無効化はDeleteによるベストエフォートであり、
// TTL以内の古い値の読み出しは設計上許容される。
type Store struct {
	client redis.Cmdable
}

// NewStore はStoreを生成する。
func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client}
}

// Get はキーの値をdestへJSONデコードして取得する。
// キャッシュミス（キー不在または期限切れ）は(false, nil)を返す。
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache: failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Set は値をJSONエンコードして指定TTLで保存する。
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to set %s: %w", key, err)
	}
	return nil
}

// Delete は指定キーを削除する。存在しないキーはエラーにならない（冪等）。
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: failed to delete %v: %w", keys, err)
	}
	return nil
}
