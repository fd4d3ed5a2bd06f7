package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "carecall:emotion:"

// RedisStore 는 여러 인스턴스가 smoothing 이력을 공유할 때 쓰는 저장소.
// 세션 키에 TTL 을 걸어 방치된 세션을 자동으로 정리한다.
type RedisStore struct {
	client *redis.Client
	window int
	ttl    time.Duration
}

// NewRedisStore 는 연결을 확인한 뒤 저장소를 돌려준다.
func NewRedisStore(ctx context.Context, addr string, window int, ttl time.Duration) (*RedisStore, error) {
	if window < 1 {
		window = 1
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client, window: window, ttl: ttl}, nil
}

// Append 는 MULTI 파이프라인으로 push/trim/read 를 묶어 같은 세션에 대한
// 동시 호출에도 window 가 일관되게 유지되도록 한다.
func (s *RedisStore) Append(ctx context.Context, sessionID string, score float64) (float64, error) {
	if sessionID == "" {
		return 0, ErrSessionIDRequired
	}
	if score < 0 || score > 1 {
		return 0, ErrScoreOutOfRange
	}

	key := redisKeyPrefix + sessionID

	var rangeCmd *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, score)
		pipe.LTrim(ctx, key, 0, int64(s.window-1))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		rangeCmd = pipe.LRange(ctx, key, 0, -1)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append emotion score: %w", err)
	}

	raw, err := rangeCmd.Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read emotion window: %w", err)
	}

	sum := 0.0
	for _, item := range raw {
		val, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt emotion window entry %q: %w", item, err)
		}
		sum += val
	}

	return sum / float64(len(raw)), nil
}

// Reset 은 세션 키를 삭제한다.
func (s *RedisStore) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}

	if err := s.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}

// Close 는 redis 연결을 닫는다.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
