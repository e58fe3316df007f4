package domain

import "errors"

// ErrInsufficientStock is business-final: the order cannot ever be
// fulfilled with the requested quantities, so it is not retried.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrAlreadyApplied signals that a fulfillment record for the order exists.
// Redelivered duplicates hit this and are acked without touching stock.
var ErrAlreadyApplied = errors.New("order already applied")
