package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

// PgExecutionDetailRepository only inserts and reads; rows are never updated or deleted.
type PgExecutionDetailRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgExecutionDetailRepository(db DBTX, logger *slog.Logger) domain.ExecutionDetailRepository {
	return &PgExecutionDetailRepository{db: db, logger: logger.With("component", "execution_detail_repository_pg")}
}

const insertExecutionDetailQuery = `INSERT INTO execution_details (id, job_id, notification_id, subscriber_id, organization_id, environment_id, transaction_id, message_id, provider_id, channel_type, detail, source, status, is_test, is_retry, raw, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

func (r *PgExecutionDetailRepository) Create(ctx context.Context, d *core_domain.ExecutionDetail) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	var providerID *string
	if d.ProviderID != nil {
		p := string(*d.ProviderID)
		providerID = &p
	}
	_, err := r.db.Exec(ctx, insertExecutionDetailQuery,
		d.ID, d.JobID, d.NotificationID, d.SubscriberID, d.OrganizationID, d.EnvironmentID, d.TransactionID,
		d.MessageID, providerID, string(d.ChannelType), string(d.Detail), string(d.Source), string(d.Status),
		d.IsTest, d.IsRetry, d.Raw, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting execution detail: %w", err)
	}
	return nil
}

const listExecutionDetailsQuery = `SELECT id, job_id, notification_id, subscriber_id, organization_id, environment_id, transaction_id, message_id, provider_id, channel_type, detail, source, status, is_test, is_retry, raw, created_at FROM execution_details WHERE job_id = $1 ORDER BY created_at ASC, id ASC`

func (r *PgExecutionDetailRepository) ListByJob(ctx context.Context, jobID string) ([]*core_domain.ExecutionDetail, error) {
	rows, err := r.db.Query(ctx, listExecutionDetailsQuery, jobID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying execution details", "error", err, "job_id", jobID)
		return nil, fmt.Errorf("querying execution details: %w", err)
	}
	defer rows.Close()

	var out []*core_domain.ExecutionDetail
	for rows.Next() {
		var (
			d                                   core_domain.ExecutionDetail
			providerID                          *string
			channelType, detail, source, status string
		)
		if err := rows.Scan(&d.ID, &d.JobID, &d.NotificationID, &d.SubscriberID, &d.OrganizationID, &d.EnvironmentID,
			&d.TransactionID, &d.MessageID, &providerID, &channelType, &detail, &source, &status,
			&d.IsTest, &d.IsRetry, &d.Raw, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning execution detail row: %w", err)
		}
		if providerID != nil {
			p := core_domain.ProviderID(*providerID)
			d.ProviderID = &p
		}
		d.ChannelType = core_domain.ChannelType(channelType)
		d.Detail = core_domain.DetailCode(detail)
		d.Source = core_domain.DetailSource(source)
		d.Status = core_domain.DetailStatus(status)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating execution detail rows: %w", err)
	}
	return out, nil
}
