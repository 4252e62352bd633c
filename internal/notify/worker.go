package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Worker consumes notification tasks from the asynq queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(opt asynq.RedisConnOpt, concurrency int, deliverer *Deliverer) *Worker {
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: max(1, concurrency),
		Logger:      asynqLogger{},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDeliver, deliveryTaskHandler(deliverer))
	return &Worker{server: server, mux: mux}
}

// Start runs the worker in the background.
func (w *Worker) Start() error {
	log.Info().Str("component", "notify-worker").Msg("starting")
	return w.server.Start(w.mux)
}

// Shutdown waits for in-flight deliveries to finish.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
	log.Info().Str("component", "notify-worker").Msg("stopped")
}

// deliveryTaskHandler posts one queued delivery. Malformed payloads are
// dropped rather than retried.
func deliveryTaskHandler(d *Deliverer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var del Delivery
		if err := json.Unmarshal(t.Payload(), &del); err != nil {
			return fmt.Errorf("unmarshal delivery: %v: %w", err, asynq.SkipRetry)
		}
		if del.URL == "" || (del.Vote == nil) == (del.Submission == nil) {
			return fmt.Errorf("malformed delivery to %q: %w", del.Target, asynq.SkipRetry)
		}
		return d.Deliver(ctx, del)
	}
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { log.Debug().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { log.Info().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { log.Warn().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { log.Error().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) { log.Fatal().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
