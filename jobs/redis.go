package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "versereel:job:"

// RedisStore 将任务快照以 JSON 存入 Redis，并设置过期时间。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to addr and pings it once.
func NewRedisStore(ctx context.Context, addr string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("连接 Redis %s 失败: %w", addr, err)
	}
	return NewRedisStoreWithClient(rdb, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client; ttl <= 0 keeps jobs for a day.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Create(ctx context.Context, job Job) (Job, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return Job{}, err
	}
	ok, err := r.client.SetNX(ctx, keyPrefix+job.ID, data, r.ttl).Result()
	if err != nil {
		return Job{}, fmt.Errorf("写入任务失败: %w", err)
	}
	if !ok {
		return Job{}, fmt.Errorf("任务 %s 已存在", job.ID)
	}
	return job, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Job, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("读取任务失败: %w", err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("解析任务失败: %w", err)
	}
	return job, nil
}

// Update 读取-修改-写回；同一任务只由一个 worker 推进，不需要乐观锁。
func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Job)) (Job, error) {
	job, err := r.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if job.State.Terminal() {
		return job, fmt.Errorf("任务 %s 已结束（%s）", id, job.State)
	}
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return Job{}, err
	}
	if err := r.client.Set(ctx, keyPrefix+id, data, r.ttl).Err(); err != nil {
		return Job{}, fmt.Errorf("更新任务失败: %w", err)
	}
	return job, nil
}

func (r *RedisStore) Close() error { return r.client.Close() }
