package domain

// Cart is created lazily on the first item add; one per user.
type Cart struct {
	ID     int64 `db:"id" json:"id"`
	UserID int64 `db:"user_id" json:"user_id"`
}

// CartItem.UnitPrice is a display snapshot refreshed on every cart mutation;
// order totals are always computed from the medicine's current price instead.
type CartItem struct {
	CartID     int64 `db:"cart_id" json:"cart_id"`
	MedicineID int64 `db:"medicine_id" json:"medicine_id"`
	Quantity   int32 `db:"quantity" json:"quantity"`
	UnitPrice  int64 `db:"unit_price" json:"unit_price"`
}

// CartLine is a cart item joined with the authoritative medicine fields,
// captured inside the order-creation transaction with the medicine rows
// locked.
type CartLine struct {
	CartID       int64
	MedicineID   int64
	MedicineName string
	Quantity     int32
	Price        int64
	Stock        int32
	IsActive     bool
	SellerID     int64
}

type CartView struct {
	Cart  Cart           `json:"cart"`
	Items []CartItemView `json:"items"`
	Total int64          `json:"total"`
}

type CartItemView struct {
	MedicineID   int64  `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Quantity     int32  `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	Subtotal     int64  `json:"subtotal"`
}

// ShippingDetails accompanies order placement; cash on delivery, so this is
// the only fulfilment input.
type ShippingDetails struct {
	Name    string `json:"shipping_name"`
	Phone   string `json:"shipping_phone"`
	Address string `json:"shipping_address"`
}
