package domain

import "time"

// Notification hooks are fire-and-forget: events land in the outbox within
// the order transaction and are relayed to Kafka by the outbox worker.

type OrderPlacedEvent struct {
	OrderID  int64            `json:"order_id"`
	UserID   int64            `json:"user_id"`
	TotalSum int64            `json:"total_sum"`
	Items    []OrderItemEvent `json:"items"`
	PlacedAt time.Time        `json:"placed_at"`
}

type OrderItemEvent struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int32 `json:"quantity"`
}

type OrderStatusChangedEvent struct {
	OrderID    int64       `json:"order_id"`
	UserID     int64       `json:"user_id"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	ChangedAt  time.Time   `json:"changed_at"`
}
