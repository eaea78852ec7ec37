package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var allStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusConfirms,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func TestCanTransitionTo_AllowedPairs(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPlaced:     {OrderStatusProcessing, OrderStatusCancelled, OrderStatusConfirms},
		OrderStatusConfirms:   {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
	}

	for from, targets := range allowed {
		for _, to := range targets {
			require.True(t, from.CanTransitionTo(to), "%s -> %s must be allowed", from, to)
		}
	}
}

func TestCanTransitionTo_ExhaustiveRejection(t *testing.T) {
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderStatusPlaced:     {OrderStatusProcessing: true, OrderStatusCancelled: true, OrderStatusConfirms: true},
		OrderStatusConfirms:   {OrderStatusProcessing: true, OrderStatusCancelled: true},
		OrderStatusProcessing: {OrderStatusShipped: true, OrderStatusCancelled: true},
		OrderStatusShipped:    {OrderStatusDelivered: true},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if allowed[from][to] {
				continue
			}
			require.False(t, from.CanTransitionTo(to), "%s -> %s must be rejected", from, to)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	require.True(t, OrderStatusDelivered.Terminal())
	require.True(t, OrderStatusCancelled.Terminal())

	for _, s := range []OrderStatus{OrderStatusPlaced, OrderStatusConfirms, OrderStatusProcessing, OrderStatusShipped} {
		require.False(t, s.Terminal(), "%s must not be terminal", s)
	}
}

func TestCancelNeverAllowedAfterShipment(t *testing.T) {
	require.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusCancelled))
	require.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
}

func TestParseOrderStatus(t *testing.T) {
	for _, s := range allStatuses {
		parsed, ok := ParseOrderStatus(string(s))
		require.True(t, ok)
		require.Equal(t, s, parsed)
	}

	_, ok := ParseOrderStatus("REFUNDED")
	require.False(t, ok)

	_, ok = ParseOrderStatus("placed")
	require.False(t, ok, "status values are case sensitive")
}

func TestCalculateTotal(t *testing.T) {
	order := Order{
		Items: []OrderItem{
			{Price: 1000, Quantity: 3},
			{Price: 500, Quantity: 1},
		},
	}
	order.CalculateTotal()

	require.Equal(t, int64(3500), order.TotalSum)
}

func TestCanActorTransition(t *testing.T) {
	order := &Order{ID: 1, UserID: 42, Status: OrderStatusPlaced}

	cases := []struct {
		name         string
		actor        Actor
		sellsInOrder bool
		want         bool
	}{
		{"admin always", Actor{UserID: 1, Role: RoleAdmin}, false, true},
		{"seller with own item", Actor{UserID: 7, Role: RoleSeller}, true, true},
		{"seller without own item", Actor{UserID: 7, Role: RoleSeller}, false, false},
		{"customer never", Actor{UserID: 42, Role: RoleCustomer}, false, false},
		{"order owner still not via general path", Actor{UserID: 42, Role: RoleCustomer}, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CanActorTransition(tc.actor, order, tc.sellsInOrder))
		})
	}
}
