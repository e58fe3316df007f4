package domain

// Product is the slice of the ledger's product row this pipeline touches.
// Stock is the only field it ever mutates.
type Product struct {
	ID         string
	Name       string
	PriceCents int64
	Stock      int
	UserID     string
}
