package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

var jobStates = []domain.JobState{
	domain.JobStateWaiting,
	domain.JobStateActive,
	domain.JobStateCompleted,
	domain.JobStateFailed,
}

// RedisJobStore keeps job records in Redis so status survives restarts and is
// shared between replicas. Each job is a JSON string key; each state is a set
// of job ids.
type RedisJobStore struct {
	client     redis.UniversalClient
	prefix     string
	historyTTL time.Duration
}

// NewRedisJobStore builds a store. Finished jobs expire after historyTTL when it is positive.
func NewRedisJobStore(client redis.UniversalClient, prefix string, historyTTL time.Duration) *RedisJobStore {
	if prefix == "" {
		prefix = "sla-monitor"
	}
	return &RedisJobStore{client: client, prefix: prefix, historyTTL: historyTTL}
}

func (s *RedisJobStore) jobKey(id string) string {
	return fmt.Sprintf("%s:job:%s", s.prefix, id)
}

func (s *RedisJobStore) stateKey(state domain.JobState) string {
	return fmt.Sprintf("%s:jobs:%s", s.prefix, state)
}

func (s *RedisJobStore) Save(ctx context.Context, job domain.CycleJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	var ttl time.Duration
	if isFinished(job.State) {
		ttl = s.historyTTL
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, state := range jobStates {
			if state != job.State {
				pipe.SRem(ctx, s.stateKey(state), job.ID)
			}
		}
		pipe.SAdd(ctx, s.stateKey(job.State), job.ID)
		pipe.Set(ctx, s.jobKey(job.ID), raw, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisJobStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, state := range jobStates {
			pipe.SRem(ctx, s.stateKey(state), id)
		}
		pipe.Del(ctx, s.jobKey(id))
		return nil
	})
	return err
}

// Counts reports set sizes. Finished ids whose record expired are pruned first.
func (s *RedisJobStore) Counts(ctx context.Context) (domain.QueueStatus, error) {
	for _, state := range []domain.JobState{domain.JobStateCompleted, domain.JobStateFailed} {
		if err := s.pruneExpired(ctx, state); err != nil {
			return domain.QueueStatus{}, err
		}
	}
	pipe := s.client.Pipeline()
	cmds := make(map[domain.JobState]*redis.IntCmd, len(jobStates))
	for _, state := range jobStates {
		cmds[state] = pipe.SCard(ctx, s.stateKey(state))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.QueueStatus{}, fmt.Errorf("count jobs: %w", err)
	}
	status := domain.QueueStatus{
		Waiting:   int(cmds[domain.JobStateWaiting].Val()),
		Active:    int(cmds[domain.JobStateActive].Val()),
		Completed: int(cmds[domain.JobStateCompleted].Val()),
		Failed:    int(cmds[domain.JobStateFailed].Val()),
	}
	status.TotalJobs = status.Waiting + status.Active + status.Completed + status.Failed
	return status, nil
}

func (s *RedisJobStore) ClearFinished(ctx context.Context) (int, error) {
	removed := 0
	for _, state := range []domain.JobState{domain.JobStateCompleted, domain.JobStateFailed} {
		ids, err := s.client.SMembers(ctx, s.stateKey(state)).Result()
		if err != nil {
			return removed, fmt.Errorf("list %s jobs: %w", state, err)
		}
		if len(ids) == 0 {
			continue
		}
		keys := make([]string, 0, len(ids)+1)
		for _, id := range ids {
			keys = append(keys, s.jobKey(id))
		}
		keys = append(keys, s.stateKey(state))
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return removed, fmt.Errorf("clear %s jobs: %w", state, err)
		}
		removed += len(ids)
	}
	return removed, nil
}

// Job loads one job record.
func (s *RedisJobStore) Job(ctx context.Context, id string) (domain.CycleJob, error) {
	raw, err := s.client.Get(ctx, s.jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CycleJob{}, fmt.Errorf("job %s not found", id)
		}
		return domain.CycleJob{}, err
	}
	var job domain.CycleJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return domain.CycleJob{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

func (s *RedisJobStore) pruneExpired(ctx context.Context, state domain.JobState) error {
	if s.historyTTL <= 0 {
		return nil
	}
	ids, err := s.client.SMembers(ctx, s.stateKey(state)).Result()
	if err != nil {
		return fmt.Errorf("list %s jobs: %w", state, err)
	}
	if len(ids) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, s.jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("check %s jobs: %w", state, err)
	}
	var stale []interface{}
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return s.client.SRem(ctx, s.stateKey(state), stale...).Err()
}
