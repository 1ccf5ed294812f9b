package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

type PgMessageRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgMessageRepository(db DBTX, logger *slog.Logger) domain.MessageRepository {
	return &PgMessageRepository{db: db, logger: logger.With("component", "message_repository_pg")}
}

const insertMessageQuery = `INSERT INTO messages (id, job_id, notification_id, template_id, transaction_id, organization_id, environment_id, subscriber_id, channel_type, provider_id, integration_id, title, content, targets, payload, overrides, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

// Create inserts msg, assigning an id, timestamps and the pending status when unset.
func (r *PgMessageRepository) Create(ctx context.Context, msg *core_domain.Message) (*core_domain.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Status == "" {
		msg.Status = core_domain.MessageStatusPending
	}

	payload, err := jsonb(msg.Payload)
	if err != nil {
		return nil, err
	}
	overrides, err := jsonb(msg.Overrides)
	if err != nil {
		return nil, err
	}

	_, err = r.db.Exec(ctx, insertMessageQuery,
		msg.ID, msg.JobID, msg.NotificationID, msg.TemplateID, msg.TransactionID, msg.OrganizationID, msg.EnvironmentID,
		msg.SubscriberID, string(msg.ChannelType), string(msg.ProviderID), msg.IntegrationID, msg.Title, msg.Content,
		msg.Targets, payload, overrides, string(msg.Status), msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting message", "error", err, "job_id", msg.JobID, "provider_id", msg.ProviderID)
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	return msg, nil
}

const updateMessageStatusQuery = `UPDATE messages SET status = $2, provider_message_id = COALESCE($3, provider_message_id), error_text = COALESCE($4, error_text), updated_at = $5 WHERE id = $1`

func (r *PgMessageRepository) UpdateStatus(ctx context.Context, id string, status core_domain.MessageStatus, providerMessageID *string, errorText *string) error {
	tag, err := r.db.Exec(ctx, updateMessageStatusQuery, id, string(status), providerMessageID, errorText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating message status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const getMessageQuery = `SELECT id, job_id, notification_id, template_id, transaction_id, organization_id, environment_id, subscriber_id, channel_type, provider_id, integration_id, title, content, targets, payload, overrides, status, provider_message_id, error_text, created_at, updated_at FROM messages WHERE id = $1`

func (r *PgMessageRepository) GetByID(ctx context.Context, id string) (*core_domain.Message, error) {
	var (
		m            core_domain.Message
		channelType  string
		providerID   string
		status       string
		payloadRaw   []byte
		overridesRaw []byte
	)
	err := r.db.QueryRow(ctx, getMessageQuery, id).Scan(
		&m.ID, &m.JobID, &m.NotificationID, &m.TemplateID, &m.TransactionID, &m.OrganizationID, &m.EnvironmentID,
		&m.SubscriberID, &channelType, &providerID, &m.IntegrationID, &m.Title, &m.Content, &m.Targets,
		&payloadRaw, &overridesRaw, &status, &m.ProviderMessageID, &m.ErrorText, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("querying message: %w", err)
	}
	m.ChannelType = core_domain.ChannelType(channelType)
	m.ProviderID = core_domain.ProviderID(providerID)
	if err := m.Status.Scan(status); err != nil {
		return nil, err
	}
	if err := fromJSONB(payloadRaw, &m.Payload); err != nil {
		return nil, err
	}
	if err := fromJSONB(overridesRaw, &m.Overrides); err != nil {
		return nil, err
	}
	return &m, nil
}
