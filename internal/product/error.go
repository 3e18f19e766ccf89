package product

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is not active")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
)
