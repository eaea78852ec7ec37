package repository

import "errors"

var (
	ErrMedicineNotFound  = errors.New("medicine not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrCategoryExists    = errors.New("category already exists")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrDuplicateReview   = errors.New("medicine already reviewed by this user")
)
