package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const (
	TaskDeliver = "notify:deliver"

	deliveryTimeout = 30 * time.Second
	maxRetry        = 3
)

// Dispatcher fans an event out into one queued task per target, or delivers
// each from a detached goroutine when no queue client is configured or
// enqueueing fails.
type Dispatcher struct {
	client    *asynq.Client
	deliverer *Deliverer
}

// NewDispatcher accepts a nil client.
func NewDispatcher(client *asynq.Client, deliverer *Deliverer) *Dispatcher {
	return &Dispatcher{client: client, deliverer: deliverer}
}

func (d *Dispatcher) PublishVote(ctx context.Context, ev VoteEvent) {
	if d == nil || d.deliverer == nil {
		return
	}
	for _, del := range d.deliverer.VoteDeliveries(ev) {
		d.dispatch(ctx, del)
	}
}

func (d *Dispatcher) PublishSubmission(ctx context.Context, ev SubmissionEvent) {
	if d == nil || d.deliverer == nil {
		return
	}
	for _, del := range d.deliverer.SubmissionDeliveries(ev) {
		d.dispatch(ctx, del)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, del Delivery) {
	if d.client != nil {
		err := d.enqueue(ctx, del)
		if err == nil {
			return
		}
		log.Warn().Err(err).Str("component", "notify").Str("target", del.Target).
			Msg("enqueue failed, delivering inline")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := d.deliverer.Deliver(ctx, del); err != nil {
			log.Error().Err(err).Str("component", "notify").Str("target", del.Target).Msg("delivery failed")
		}
	}()
}

func (d *Dispatcher) enqueue(ctx context.Context, del Delivery) error {
	data, err := json.Marshal(del)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskDeliver, data,
		asynq.TaskID(uuid.NewString()),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(deliveryTimeout),
	)
	_, err = d.client.EnqueueContext(ctx, task)
	return err
}
