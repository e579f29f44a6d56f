package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationSettings_List(t *testing.T) {
	f := newFixture(t)
	svc := NewConfirmationSettingsService(f.deps(nil))

	clients, err := svc.List(context.Background(), f.sellerActor())
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "Corner Market", clients[0].Name)
	assert.Equal(t, "Harbor Deli", clients[1].Name)

	clients, err = svc.List(context.Background(), f.otherSellerActor())
	require.NoError(t, err)
	assert.Empty(t, clients)

	_, err = svc.List(context.Background(), f.buyer())
	assertCode(t, CodeForbidden, err)
}

func TestConfirmationSettings_Update(t *testing.T) {
	t.Run("switching to automatic enables auto-confirmation", func(t *testing.T) {
		f := newFixture(t)
		svc := NewConfirmationSettingsService(f.deps(nil))

		res, err := svc.Update(context.Background(), f.sellerActor(), UpdateConfirmationSettingsInput{
			ClientID:        f.otherClient.ID,
			Method:          models.ConfirmationAutomatic,
			DeadlineMinutes: intPtr(10),
		})
		require.NoError(t, err)
		assert.Equal(t, models.ConfirmationAutomatic, res.Client.ConfirmationMethod)
		assert.True(t, res.Client.AutoConfirmEnabled)
		assert.Equal(t, 10, res.Client.DeadlineMinutes)
	})

	t.Run("switching to manual keeps the deadline", func(t *testing.T) {
		f := newFixture(t)
		svc := NewConfirmationSettingsService(f.deps(nil))

		res, err := svc.Update(context.Background(), f.sellerActor(), UpdateConfirmationSettingsInput{
			ClientID: f.client.ID,
			Method:   models.ConfirmationManual,
		})
		require.NoError(t, err)
		assert.Equal(t, models.ConfirmationManual, res.Client.ConfirmationMethod)
		assert.False(t, res.Client.AutoConfirmEnabled)
		assert.Equal(t, 30, res.Client.DeadlineMinutes)
		assert.True(t, res.Client.AllowsManualPlacement())
	})

	t.Run("explicit auto-confirm flag wins", func(t *testing.T) {
		f := newFixture(t)
		svc := NewConfirmationSettingsService(f.deps(nil))

		res, err := svc.Update(context.Background(), f.sellerActor(), UpdateConfirmationSettingsInput{
			ClientID:           f.client.ID,
			Method:             models.ConfirmationAutomatic,
			AutoConfirmEnabled: boolPtr(false),
		})
		require.NoError(t, err)
		assert.False(t, res.Client.AutoConfirmEnabled)
	})

	t.Run("replays the same idempotency key", func(t *testing.T) {
		f := newFixture(t)
		svc := NewConfirmationSettingsService(f.deps(nil))
		in := UpdateConfirmationSettingsInput{
			IdempotencyKey: uuid.NewString(),
			ClientID:       f.otherClient.ID,
			Method:         models.ConfirmationAutomatic,
		}

		first, err := svc.Update(context.Background(), f.sellerActor(), in)
		require.NoError(t, err)
		second, err := svc.Update(context.Background(), f.sellerActor(), in)
		require.NoError(t, err)
		assert.False(t, first.Replayed)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.Client.ID, second.Client.ID)
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t)
		svc := NewConfirmationSettingsService(f.deps(nil))
		ctx := context.Background()

		tests := []struct {
			name  string
			actor Actor
			in    UpdateConfirmationSettingsInput
			code  ErrorCode
		}{
			{
				name:  "buyer",
				actor: f.buyer(),
				in:    UpdateConfirmationSettingsInput{ClientID: f.client.ID, Method: models.ConfirmationManual},
				code:  CodeForbidden,
			},
			{
				name:  "other seller",
				actor: f.otherSellerActor(),
				in:    UpdateConfirmationSettingsInput{ClientID: f.client.ID, Method: models.ConfirmationManual},
				code:  CodeForbidden,
			},
			{
				name:  "unknown method",
				actor: f.sellerActor(),
				in:    UpdateConfirmationSettingsInput{ClientID: f.client.ID, Method: "SOMETIMES"},
				code:  CodeValidation,
			},
			{
				name:  "deadline out of range",
				actor: f.sellerActor(),
				in:    UpdateConfirmationSettingsInput{ClientID: f.client.ID, Method: models.ConfirmationAutomatic, DeadlineMinutes: intPtr(61)},
				code:  CodeValidation,
			},
			{
				name:  "unknown client",
				actor: f.sellerActor(),
				in:    UpdateConfirmationSettingsInput{ClientID: uuid.NewString(), Method: models.ConfirmationManual},
				code:  CodeNotFound,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Update(ctx, tt.actor, tt.in)
				assertCode(t, tt.code, err)
			})
		}

		var client models.Client
		require.NoError(t, f.db.First(&client, "id = ?", f.client.ID).Error)
		assert.Equal(t, models.ConfirmationAutomatic, client.ConfirmationMethod)
	})
}

func TestConfirmationSettings_DisablingStopsTheSweep(t *testing.T) {
	f := newFixture(t)
	settings := NewConfirmationSettingsService(f.deps(nil))
	orders := NewOrderService(f.deps(nil))
	order := f.createOrder(t, f.client, models.OrderPending, 2, 0)
	f.clock.Advance(1)

	_, err := settings.Update(context.Background(), f.sellerActor(), UpdateConfirmationSettingsInput{
		ClientID:           f.client.ID,
		Method:             models.ConfirmationAutomatic,
		AutoConfirmEnabled: boolPtr(false),
	})
	require.NoError(t, err)

	result, err := newSweeper(f, orders, nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Confirmed)
	assert.Equal(t, models.OrderPending, f.reloadOrder(t, order.ID).Status)
}
