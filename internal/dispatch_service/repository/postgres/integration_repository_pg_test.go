package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

var integrationColumnNames = []string{"id", "identifier", "organization_id", "environment_id", "channel_type", "provider_id", "name", "active", "primary", "priority", "credentials", "conditions", "created_at", "updated_at"}

func TestPgIntegrationRepository_FindActive(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := NewPgIntegrationRepository(mockPool, testLogger())
	now := time.Now().UTC()

	t.Run("ByProvider", func(t *testing.T) {
		rows := mockPool.NewRows(integrationColumnNames).
			AddRow("int-1", "fcm-main", "org-1", "env-1", "push", "fcm", "FCM", true, true, 0,
				[]byte(`{"api_key":"k1"}`), nil, now, now).
			AddRow("int-2", "fcm-acme", "org-1", "env-1", "push", "fcm", "FCM Acme", true, false, 1,
				[]byte(`{"api_key":"k2"}`), []byte(`["tenant.identifier == 'acme'"]`), now, now)
		mockPool.ExpectQuery(regexp.QuoteMeta(findActiveByProviderQuery)).
			WithArgs("org-1", "env-1", "push", "fcm").
			WillReturnRows(rows)

		got, err := repo.FindActive(context.Background(), domain.IntegrationFilter{
			OrganizationID: "org-1",
			EnvironmentID:  "env-1",
			ChannelType:    core_domain.ChannelPush,
			ProviderID:     core_domain.ProviderFCM,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "k1", got[0].Credentials["api_key"])
		assert.False(t, got[0].IsConditional())
		assert.Equal(t, []string{"tenant.identifier == 'acme'"}, got[1].Conditions)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ByIdentifierSkipsOtherProvider", func(t *testing.T) {
		rows := mockPool.NewRows(integrationColumnNames).
			AddRow("int-3", "shared", "org-1", "env-1", "push", "expo", "Expo", true, false, 0, nil, nil, now, now)
		mockPool.ExpectQuery(regexp.QuoteMeta(findActiveByIdentifierQuery)).
			WithArgs("org-1", "env-1", "push", "shared").
			WillReturnRows(rows)

		got, err := repo.FindActive(context.Background(), domain.IntegrationFilter{
			OrganizationID: "org-1",
			EnvironmentID:  "env-1",
			ChannelType:    core_domain.ChannelPush,
			ProviderID:     core_domain.ProviderFCM,
			Identifier:     "shared",
		})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		mockPool.ExpectQuery(regexp.QuoteMeta(findActiveByProviderQuery)).
			WithArgs("org-1", "env-1", "push", "fcm").
			WillReturnError(errors.New("timeout"))

		got, err := repo.FindActive(context.Background(), domain.IntegrationFilter{
			OrganizationID: "org-1",
			EnvironmentID:  "env-1",
			ChannelType:    core_domain.ChannelPush,
			ProviderID:     core_domain.ProviderFCM,
		})
		require.Error(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
