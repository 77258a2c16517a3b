package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "profiles", Profile{}.TableName())
	assert.Equal(t, "sticker_orders", StickerOrder{}.TableName())
	assert.Equal(t, "sticker_order_items", StickerOrderItem{}.TableName())
	assert.Equal(t, "qr_codes", QRCode{}.TableName())
	assert.Equal(t, "discs", Disc{}.TableName())
	assert.Equal(t, "disc_photos", DiscPhoto{}.TableName())
	assert.Equal(t, "recovery_events", RecoveryEvent{}.TableName())
	assert.Equal(t, "shipping_addresses", ShippingAddress{}.TableName())
}

func TestOrderStatusTransitionTable(t *testing.T) {
	// every permitted edge of the order lifecycle; any other pair is rejected
	allowed := map[string]bool{
		"pending_payment->paid":      true,
		"pending_payment->cancelled": true,
		"paid->processing":           true,
		"paid->printed":              true,
		"processing->printed":        true,
		"printed->shipped":           true,
		"shipped->delivered":         true,
	}

	statuses := []string{"pending_payment", "paid", "processing", "printed", "shipped", "delivered", "cancelled"}
	require.Len(t, AllOrderStatuses, len(statuses))

	for _, from := range statuses {
		for _, to := range statuses {
			edge := from + "->" + to
			want := allowed[edge]

			t.Run(edge, func(t *testing.T) {
				assert.Equal(t, want, OrderStatus(from).CanTransitionTo(OrderStatus(to)))

				err := ValidateTransition(OrderStatus(from), OrderStatus(to))
				if want {
					assert.NoError(t, err)
					return
				}
				var transitionErr *TransitionError
				assert.ErrorAs(t, err, &transitionErr)
				assert.Equal(t, from, transitionErr.From)
				assert.Equal(t, to, transitionErr.To)
			})
		}
	}
}

func TestValidateTransition_SameStatusRejected(t *testing.T) {
	for _, status := range AllOrderStatuses {
		assert.Error(t, ValidateTransition(status, status), string(status))
	}
}

func TestValidateTransition_Message(t *testing.T) {
	err := ValidateTransition(OrderStatusPendingPayment, OrderStatusShipped)
	assert.EqualError(t, err, "Invalid status transition from pending_payment to shipped")
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPaid.IsTerminal())
	assert.False(t, OrderStatus("bogus").IsTerminal())
	assert.False(t, OrderStatus("bogus").IsValid())
}

func TestOrderStatus_PrinterSettable(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderStatusPendingPayment, false},
		{OrderStatusPaid, false},
		{OrderStatusProcessing, true},
		{OrderStatusPrinted, true},
		{OrderStatusShipped, true},
		{OrderStatusDelivered, true},
		{OrderStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsPrinterSettable())
		})
	}
}

func TestOrderStatus_AtLeast(t *testing.T) {
	assert.True(t, OrderStatusShipped.AtLeast(OrderStatusShipped))
	assert.True(t, OrderStatusDelivered.AtLeast(OrderStatusShipped))
	assert.False(t, OrderStatusPrinted.AtLeast(OrderStatusShipped))
	assert.False(t, OrderStatusCancelled.AtLeast(OrderStatusShipped))
	assert.True(t, OrderStatusCancelled.AtLeast(OrderStatusCancelled))
}

func TestRecoveryStatus(t *testing.T) {
	assert.True(t, RecoveryStatusFound.IsActive())
	assert.True(t, RecoveryStatusMeetupProposed.IsActive())
	assert.True(t, RecoveryStatusMeetupConfirmed.IsActive())
	assert.False(t, RecoveryStatusAbandoned.IsActive())
	assert.False(t, RecoveryStatusRecovered.IsActive())

	assert.True(t, RecoveryStatusAbandoned.CanTransitionTo(RecoveryStatusRecovered))
	assert.True(t, RecoveryStatusFound.CanTransitionTo(RecoveryStatusAbandoned))
	assert.False(t, RecoveryStatusRecovered.CanTransitionTo(RecoveryStatusFound))
	assert.False(t, RecoveryStatusAbandoned.CanTransitionTo(RecoveryStatusFound))
}

func TestQRCodeStatus_Resolvable(t *testing.T) {
	assert.False(t, QRCodeStatusGenerated.Resolvable())
	assert.True(t, QRCodeStatusAssigned.Resolvable())
	assert.True(t, QRCodeStatusActive.Resolvable())
	assert.False(t, QRCodeStatusDeactivated.Resolvable())
}

func TestProfile_DisplayName(t *testing.T) {
	username := "discslinger"
	fullName := "Jamie Rivers"
	empty := ""

	tests := []struct {
		name    string
		profile Profile
		want    string
	}{
		{
			name:    "full name preferred and present",
			profile: Profile{Email: "jamie@example.com", Username: &username, FullName: &fullName, DisplayPreference: DisplayPreferenceFullName},
			want:    "Jamie Rivers",
		},
		{
			name:    "full name preferred but missing falls back to username",
			profile: Profile{Email: "jamie@example.com", Username: &username, FullName: &empty, DisplayPreference: DisplayPreferenceFullName},
			want:    "discslinger",
		},
		{
			name:    "username preference",
			profile: Profile{Email: "jamie@example.com", Username: &username, FullName: &fullName, DisplayPreference: DisplayPreferenceUsername},
			want:    "discslinger",
		},
		{
			name:    "email local part as last resort",
			profile: Profile{Email: "jamie@example.com", DisplayPreference: DisplayPreferenceUsername},
			want:    "jamie",
		},
		{
			name:    "nothing usable",
			profile: Profile{},
			want:    "Anonymous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.DisplayName())
		})
	}
}

func TestDisc_Ownership(t *testing.T) {
	owner := "auth0|owner"
	disc := Disc{OwnerID: &owner}
	assert.False(t, disc.IsClaimable())
	assert.True(t, disc.IsOwnedBy("auth0|owner"))
	assert.False(t, disc.IsOwnedBy("auth0|other"))

	abandoned := Disc{}
	assert.True(t, abandoned.IsClaimable())
	assert.False(t, abandoned.IsOwnedBy("auth0|owner"))
}

func TestFlightNumbers_Validate(t *testing.T) {
	tests := []struct {
		name    string
		flight  FlightNumbers
		wantErr string
	}{
		{"driver", FlightNumbers{Speed: 12, Glide: 5, Turn: -1, Fade: 3}, ""},
		{"lower bounds", FlightNumbers{Speed: 1, Glide: 1, Turn: -5, Fade: 0}, ""},
		{"upper bounds", FlightNumbers{Speed: 14, Glide: 7, Turn: 1, Fade: 5}, ""},
		{"speed too high", FlightNumbers{Speed: 20, Glide: 5, Turn: 0, Fade: 1}, "Speed must be between 1 and 14"},
		{"speed zero", FlightNumbers{Speed: 0, Glide: 5, Turn: 0, Fade: 1}, "Speed must be between 1 and 14"},
		{"glide too high", FlightNumbers{Speed: 7, Glide: 8, Turn: 0, Fade: 1}, "Glide must be between 1 and 7"},
		{"turn too low", FlightNumbers{Speed: 7, Glide: 5, Turn: -6, Fade: 1}, "Turn must be between -5 and 1"},
		{"fade negative", FlightNumbers{Speed: 7, Glide: 5, Turn: 0, Fade: -1}, "Fade must be between 0 and 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flight.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
