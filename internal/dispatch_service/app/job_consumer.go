package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"

	"github.com/aradsms/golang_services/internal/core_domain"
)

// JobBroker is the part of messagebroker.NatsClient the consumer needs.
type JobBroker interface {
	Subscribe(ctx context.Context, subject, queueGroup string, handler nats.MsgHandler) (*nats.Subscription, error)
	Publish(ctx context.Context, subject string, data []byte) error
}

// JobDispatcher runs one job.
type JobDispatcher interface {
	Dispatch(ctx context.Context, job *core_domain.Job) error
}

// JobReply is published on the reply subject of a job message, when one is set.
type JobReply struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"` // completed, failed, invalid
	Error  string `json:"error,omitempty"`
}

const (
	replyCompleted = "completed"
	replyFailed    = "failed"
	replyInvalid   = "invalid"
)

// JobConsumer feeds jobs from a NATS queue subscription into a dispatcher.
type JobConsumer struct {
	broker     JobBroker
	dispatcher JobDispatcher
	validate   *validator.Validate
	jobTimeout time.Duration
	logger     *slog.Logger
	sub        *nats.Subscription
}

func NewJobConsumer(broker JobBroker, dispatcher JobDispatcher, jobTimeout time.Duration, logger *slog.Logger) *JobConsumer {
	return &JobConsumer{
		broker:     broker,
		dispatcher: dispatcher,
		validate:   validator.New(),
		jobTimeout: jobTimeout,
		logger:     logger.With("component", "job_consumer"),
	}
}

// Start subscribes to subject within queueGroup. Jobs are handled on the
// subscription's delivery goroutine, one at a time.
func (c *JobConsumer) Start(ctx context.Context, subject, queueGroup string) error {
	c.logger.InfoContext(ctx, "Starting NATS job consumer", "subject", subject, "queue_group", queueGroup)
	sub, err := c.broker.Subscribe(ctx, subject, queueGroup, func(msg *nats.Msg) {
		c.HandleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to NATS subject '%s': %w", subject, err)
	}
	c.sub = sub
	return nil
}

const drainPollInterval = 50 * time.Millisecond

// Stop drains the subscription and waits until the in-flight and already
// delivered jobs have finished, or ctx is done.
func (c *JobConsumer) Stop(ctx context.Context) error {
	if c.sub == nil {
		return nil
	}
	if err := c.sub.Drain(); err != nil {
		c.logger.WarnContext(ctx, "Failed to drain job subscription", "error", err)
		return err
	}
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for c.sub.IsValid() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("draining job subscription: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	c.logger.InfoContext(ctx, "Job subscription drained")
	return nil
}

// HandleMessage decodes, validates and dispatches a single job message.
// The dispatch is detached from ctx cancellation so a job that started before
// shutdown runs to completion; only the job timeout bounds it.
func (c *JobConsumer) HandleMessage(ctx context.Context, msg *nats.Msg) {
	jobsReceivedCounter.Inc()
	c.logger.DebugContext(ctx, "Received NATS job", "subject", msg.Subject, "data_len", len(msg.Data))

	var job core_domain.Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		c.logger.ErrorContext(ctx, "Failed to unmarshal NATS job payload", "error", err, "data", string(msg.Data))
		jobsProcessedCounter.WithLabelValues("invalid").Inc()
		c.reply(ctx, msg, JobReply{Status: replyInvalid, Error: err.Error()})
		return
	}
	if err := c.validate.Struct(&job); err != nil {
		c.logger.ErrorContext(ctx, "Invalid dispatch job", "error", err, "job_id", job.ID)
		jobsProcessedCounter.WithLabelValues("invalid").Inc()
		c.reply(ctx, msg, JobReply{JobID: job.ID, Status: replyInvalid, Error: err.Error()})
		return
	}

	jobCtx := context.WithoutCancel(ctx)
	if c.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, c.jobTimeout)
		defer cancel()
	}

	if err := c.dispatcher.Dispatch(jobCtx, &job); err != nil {
		outcome := "fatal"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			outcome = "cancelled"
		}
		c.logger.ErrorContext(ctx, "Failed to dispatch job", "error", err, "job_id", job.ID)
		jobsProcessedCounter.WithLabelValues(outcome).Inc()
		c.reply(ctx, msg, JobReply{JobID: job.ID, Status: replyFailed, Error: err.Error()})
		return
	}
	jobsProcessedCounter.WithLabelValues("completed").Inc()
	c.reply(ctx, msg, JobReply{JobID: job.ID, Status: replyCompleted})
}

func (c *JobConsumer) reply(ctx context.Context, msg *nats.Msg, r JobReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to encode job reply", "error", err, "job_id", r.JobID)
		return
	}
	if err := c.broker.Publish(ctx, msg.Reply, data); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish job reply", "error", err, "job_id", r.JobID)
	}
}
