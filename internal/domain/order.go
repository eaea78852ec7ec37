package domain

import "time"

type OrderStatus string

const (
	OrderStatusPlaced     OrderStatus = "PLACED"
	OrderStatusConfirms   OrderStatus = "CONFIRMS"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPlaced, OrderStatusConfirms, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// transitions is the full forward state machine. DELIVERED and CANCELLED are
// terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:     {OrderStatusProcessing, OrderStatusCancelled, OrderStatusConfirms},
	OrderStatusConfirms:   {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Order is immutable after creation except for Status.
type Order struct {
	ID              int64       `db:"id" json:"id"`
	UserID          int64       `db:"user_id" json:"user_id"`
	Status          OrderStatus `db:"status" json:"status"`
	Items           []OrderItem `db:"items" json:"items"`
	TotalSum        int64       `db:"total_sum" json:"total_sum"`
	ShippingName    string      `db:"shipping_name" json:"shipping_name"`
	ShippingPhone   string      `db:"shipping_phone" json:"shipping_phone"`
	ShippingAddress string      `db:"shipping_address" json:"shipping_address"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem freezes the medicine name and unit price at order-creation time;
// later price or stock changes on the medicine never touch it.
type OrderItem struct {
	ID         int64  `db:"id" json:"id"`
	OrderID    int64  `db:"order_id" json:"order_id"`
	MedicineID int64  `db:"medicine_id" json:"medicine_id"`
	Name       string `db:"name" json:"name"`
	Price      int64  `db:"price" json:"price"`
	Quantity   int32  `db:"quantity" json:"quantity"`
}

func (o *Order) CalculateTotal() {
	var total int64
	for _, item := range o.Items {
		total += item.Price * int64(item.Quantity)
	}
	o.TotalSum = total
}

// CanActorTransition is the single authorization policy for status changes
// through the general transition path. Customers never pass here; they cancel
// through the dedicated self-cancel path only.
func CanActorTransition(actor Actor, order *Order, sellsInOrder bool) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleSeller:
		return sellsInOrder
	default:
		return false
	}
}
