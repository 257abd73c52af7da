// Package jobs tracks the lifecycle of render jobs: queued -> running -> done | failed.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound 表示任务不存在或已过期。
var ErrNotFound = errors.New("job not found")

// State 是任务状态。
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Job 是一次渲染任务的快照。
type Job struct {
	ID        string         `json:"id"`
	State     State          `json:"state"`
	Stage     string         `json:"stage,omitempty"` // 失败时所处的阶段
	Error     string         `json:"error,omitempty"`
	Request   map[string]any `json:"request,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store persists job snapshots.
type Store interface {
	Create(ctx context.Context, job Job) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	Update(ctx context.Context, id string, fn func(*Job)) (Job, error)
}

// NewID returns a fresh job id.
func NewID() string { return uuid.New().String() }

// New returns a queued job with a fresh id unless one is given.
func New(id string, req map[string]any) Job {
	if id == "" {
		id = NewID()
	}
	now := time.Now().UTC()
	return Job{ID: id, State: StateQueued, Request: req, CreatedAt: now, UpdatedAt: now}
}

// Start, Finish and Fail are the transitions used by the pipeline.
func Start(j *Job) { j.State = StateRunning }

func Finish(result map[string]any) func(*Job) {
	return func(j *Job) {
		j.State = StateDone
		j.Result = result
	}
}

func Fail(stage string, err error) func(*Job) {
	return func(j *Job) {
		j.State = StateFailed
		j.Stage = stage
		if err != nil {
			j.Error = err.Error()
		}
	}
}

// MemoryStore 是进程内的任务存储，供单机和测试使用。
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]Job{}}
}

func (m *MemoryStore) Create(_ context.Context, job Job) (Job, error) {
	if job.ID == "" {
		return Job{}, fmt.Errorf("任务缺少 id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return Job{}, fmt.Errorf("任务 %s 已存在", job.ID)
	}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Job)) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	if job.State.Terminal() {
		return job, fmt.Errorf("任务 %s 已结束（%s）", id, job.State)
	}
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	m.jobs[id] = job
	return job, nil
}

// List returns all jobs, newest first.
func (m *MemoryStore) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}
