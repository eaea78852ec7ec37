package domain

import "time"

// Medicine prices are stored in the smallest currency unit. Stock is mutated
// only through the repository's atomic increase/decrease operations.
type Medicine struct {
	ID          int64      `db:"id" json:"id"`
	SellerID    int64      `db:"seller_id" json:"seller_id"`
	CategoryID  int64      `db:"category_id" json:"category_id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	Price       int64      `db:"price" json:"price"`
	Stock       int32      `db:"stock" json:"stock"`
	ImageUrl    string     `db:"image_url" json:"image_url"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}

type UpdateMedicineInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Stock       *int32  `json:"stock"`
	ImageUrl    *string `json:"image_url"`
	CategoryID  *int64  `json:"category_id"`
	IsActive    *bool   `json:"is_active"`
}

type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
