package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Handler processes one dispatched batch.
type Handler func(ctx context.Context, job *Job) error

// Server is the worker-bot side of the distributed queue. It consumes one
// batch at a time; scaling out means running more worker processes, which
// keeps the in-process hash pool private to a single verification at a time.
type Server struct {
	srv *asynq.Server
}

func NewServer(addr string) (*Server, error) {
	opt, err := ParseRedisOpt(addr)
	if err != nil {
		return nil, err
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{QueueName: 1},
		Logger:      logger,
	})
	return &Server{srv: srv}, nil
}

// Run blocks serving jobs until the process receives SIGTERM/SIGINT.
func (s *Server) Run(h Handler) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeVerifyDupes, func(ctx context.Context, t *asynq.Task) error {
		var job Job
		if err := json.Unmarshal(t.Payload(), &job); err != nil {
			return fmt.Errorf("bad job payload: %w", err)
		}
		logger.Infof("processing job %s: %d hashgroups from index %s", job.RunID, len(job.Groups), job.Criteria.Index)
		return h(ctx, &job)
	})
	return s.srv.Run(mux)
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}
