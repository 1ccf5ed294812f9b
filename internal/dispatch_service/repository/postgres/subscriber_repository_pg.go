package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

type PgSubscriberRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgSubscriberRepository(db DBTX, logger *slog.Logger) domain.SubscriberRepository {
	return &PgSubscriberRepository{db: db, logger: logger.With("component", "subscriber_repository_pg")}
}

const findSubscriberQuery = `SELECT id, subscriber_id, organization_id, environment_id, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(email, ''), COALESCE(phone, ''), COALESCE(locale, ''), data, channels, created_at, updated_at FROM subscribers WHERE environment_id = $1 AND subscriber_id = $2 AND deleted = FALSE`

// FindBySubscriberID returns (nil, nil) when the subscriber does not exist in the environment.
func (r *PgSubscriberRepository) FindBySubscriberID(ctx context.Context, environmentID, subscriberID string) (*core_domain.Subscriber, error) {
	var (
		s           core_domain.Subscriber
		dataRaw     []byte
		channelsRaw []byte
	)
	err := r.db.QueryRow(ctx, findSubscriberQuery, environmentID, subscriberID).Scan(
		&s.ID, &s.SubscriberID, &s.OrganizationID, &s.EnvironmentID,
		&s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.Locale,
		&dataRaw, &channelsRaw, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.DebugContext(ctx, "Subscriber not found", "environment_id", environmentID, "subscriber_id", subscriberID)
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Error querying subscriber", "error", err, "subscriber_id", subscriberID)
		return nil, fmt.Errorf("querying subscriber: %w", err)
	}
	if err := fromJSONB(dataRaw, &s.Data); err != nil {
		return nil, err
	}
	if err := fromJSONB(channelsRaw, &s.Channels); err != nil {
		return nil, err
	}
	return &s, nil
}
