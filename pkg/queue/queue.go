package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/zhengshuai-xiao/DupeFinder/internal"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/dupes"
)

var logger = internal.GetLogger("dupefinder_queue")

const (
	// TypeVerifyDupes is the task type carrying one dispatched batch.
	TypeVerifyDupes = "dupes:verify"

	// QueueName is the queue worker bots consume from.
	QueueName = "dupes"
)

// Job is the wire payload of one dispatched batch: the run criteria plus
// the hash groups a worker bot must verify and tag.
type Job struct {
	RunID    string            `json:"run_id"`
	Criteria dupes.Criteria    `json:"criteria"`
	Groups   []dupes.HashGroup `json:"hashgroups"`
}

// ParseRedisOpt turns a "host:port/db" address into client options, picking
// the password up from the environment when the address carries none.
func ParseRedisOpt(addr string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL("redis://" + addr)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("invalid redis address format: %w", err)
	}
	if opt.Password == "" {
		opt.Password = os.Getenv("REDIS_PASSWORD")
	}
	return asynq.RedisClientOpt{Addr: opt.Addr, DB: opt.DB, Password: opt.Password}, nil
}

// Client is the remote job-submission side of the distributed queue.
// It implements dupes.JobQueue.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	resultTTL time.Duration
}

func NewClient(addr string, resultTTL time.Duration) (*Client, error) {
	opt, err := ParseRedisOpt(addr)
	if err != nil {
		return nil, err
	}

	// Ping first so a missing queue backend fails the run at startup.
	rdb := redis.NewClient(&redis.Options{Addr: opt.Addr, DB: opt.DB, Password: opt.Password})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	rdb.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &Client{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		resultTTL: resultTTL,
	}, nil
}

func (c *Client) Close() error {
	if err := c.inspector.Close(); err != nil {
		logger.Warnf("failed to close queue inspector: %v", err)
	}
	return c.client.Close()
}

// EnqueueGroups submits one batch as a single job. Results are retained for
// the configured TTL so a finished run stays inspectable.
func (c *Client) EnqueueGroups(ctx context.Context, crit dupes.Criteria, groups []dupes.HashGroup) error {
	payload, err := json.Marshal(Job{
		RunID:    uuid.NewString(),
		Criteria: crit,
		Groups:   groups,
	})
	if err != nil {
		return fmt.Errorf("failed to encode job payload: %w", err)
	}
	task := asynq.NewTask(TypeVerifyDupes, payload)
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(0),
		asynq.Retention(c.resultTTL),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue batch of %d hashgroups: %w", len(groups), err)
	}
	logger.Debugf("enqueued job %s with %d hashgroups", info.ID, len(groups))
	return nil
}

// Backlog reports how many dispatched batches no worker picked up yet.
func (c *Client) Backlog(ctx context.Context) (int, error) {
	info, err := c.queueInfo()
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, nil
	}
	return info.Pending, nil
}

// WorkersBusy reports whether any batch is still waiting or in flight.
func (c *Client) WorkersBusy(ctx context.Context) (bool, error) {
	info, err := c.queueInfo()
	if err != nil {
		return false, err
	}
	if info == nil {
		return false, nil
	}
	return info.Pending+info.Active+info.Scheduled+info.Retry > 0, nil
}

// queueInfo treats a queue nobody wrote to yet as empty.
func (c *Client) queueInfo() (*asynq.QueueInfo, error) {
	info, err := c.inspector.GetQueueInfo(QueueName)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return info, nil
}
