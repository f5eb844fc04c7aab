package domain

import "fmt"

// Domain errors
var (
	ErrUnknownStatus         = &DomainError{Message: "unknown status"}
	ErrSameStatus            = &DomainError{Message: "source and target status must differ"}
	ErrInvalidQuantity       = &DomainError{Message: "quantity must be a positive integer"}
	ErrInsufficientQuantity  = &DomainError{Message: "insufficient quantity in source status"}
	ErrBucketsInconsistent   = &DomainError{Message: "status buckets do not add up to the total slab count"}
	ErrPriceBelowFloor       = &DomainError{Message: "sale price is below the base price"}
	ErrSellerRequired        = &DomainError{Message: "exactly one of seller user or seller name is required"}
	ErrAmbiguousBuyer        = &DomainError{Message: "buyer must be an existing client, a new client or none"}
	ErrSaleCurrencyMismatch  = &DomainError{Message: "sale price currency differs from the batch currency"}
	ErrSoldRequiresSaleInput = &DomainError{Message: "transfers into VENDIDO require sale details"}
)

// DomainError represents a domain-level error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// InsufficientQuantityError reports the source bucket shortfall.
type InsufficientQuantityError struct {
	Status    Status
	Available int
	Requested int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity in %s: available %d, requested %d", e.Status, e.Available, e.Requested)
}

func (e *InsufficientQuantityError) Is(target error) bool {
	return target == ErrInsufficientQuantity
}

// PriceBelowFloorError carries the floor the sale price failed to meet.
type PriceBelowFloorError struct {
	Floor string
	Price string
}

func (e *PriceBelowFloorError) Error() string {
	return fmt.Sprintf("sale price %s is below the base price %s", e.Price, e.Floor)
}

func (e *PriceBelowFloorError) Is(target error) bool {
	return target == ErrPriceBelowFloor
}
