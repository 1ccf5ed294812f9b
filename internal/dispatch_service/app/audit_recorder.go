package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

// AuditRecorder appends execution details for a job.
type AuditRecorder struct {
	repo   domain.ExecutionDetailRepository
	logger *slog.Logger
}

func NewAuditRecorder(repo domain.ExecutionDetailRepository, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, logger: logger.With("component", "audit_recorder")}
}

// Record writes a success-path detail. Write failures are returned.
func (a *AuditRecorder) Record(ctx context.Context, d *core_domain.ExecutionDetail) error {
	stamp(d)
	if err := a.repo.Create(ctx, d); err != nil {
		auditWriteErrorsCounter.WithLabelValues("success").Inc()
		return fmt.Errorf("recording %s execution detail: %w", d.Detail, err)
	}
	auditEventsCounter.WithLabelValues(string(d.Detail), string(d.Status)).Inc()
	return nil
}

// RecordFailure writes an error-path detail. It survives cancellation of ctx,
// and write failures are logged and dropped.
func (a *AuditRecorder) RecordFailure(ctx context.Context, d *core_domain.ExecutionDetail) {
	stamp(d)
	if err := a.repo.Create(context.WithoutCancel(ctx), d); err != nil {
		auditWriteErrorsCounter.WithLabelValues("error").Inc()
		a.logger.ErrorContext(ctx, "Failed to record execution detail",
			"error", err, "job_id", d.JobID, "detail", d.Detail, "status", d.Status)
		return
	}
	auditEventsCounter.WithLabelValues(string(d.Detail), string(d.Status)).Inc()
}

func stamp(d *core_domain.ExecutionDetail) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
}

// newDetail starts an execution detail for job with the given classification.
func newDetail(job *core_domain.Job, code core_domain.DetailCode, source core_domain.DetailSource, status core_domain.DetailStatus, opts ...detailOpt) *core_domain.ExecutionDetail {
	d := &core_domain.ExecutionDetail{
		JobID:          job.ID,
		NotificationID: job.NotificationID,
		SubscriberID:   job.SubscriberID,
		OrganizationID: job.OrganizationID,
		EnvironmentID:  job.EnvironmentID,
		TransactionID:  job.TransactionID,
		ChannelType:    job.ChannelType,
		Detail:         code,
		Source:         source,
		Status:         status,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type detailOpt func(*core_domain.ExecutionDetail)

func withProvider(id core_domain.ProviderID) detailOpt {
	return func(ed *core_domain.ExecutionDetail) {
		p := id
		ed.ProviderID = &p
	}
}

func withMessage(id string) detailOpt {
	return func(ed *core_domain.ExecutionDetail) {
		m := id
		ed.MessageID = &m
	}
}

func withRaw(raw string) detailOpt {
	return func(ed *core_domain.ExecutionDetail) {
		if raw == "" {
			return
		}
		r := raw
		ed.Raw = &r
	}
}

// rawJSON serializes v for the Raw field of a detail. Values that serialize
// to nothing useful fall back to {"message": fallback}.
func rawJSON(v any, fallback string) string {
	b, err := json.Marshal(v)
	if err == nil {
		s := string(b)
		if s != "null" && s != "{}" && s != `""` {
			return s
		}
	}
	if fallback == "" {
		return ""
	}
	b, _ = json.Marshal(map[string]string{"message": fallback})
	return string(b)
}
