package domain

// FulfillmentMessage is the immutable payload placed on the queue when an
// order is accepted. It carries everything a worker needs to apply the
// stock decrement idempotently; it is not the order row itself.
type FulfillmentMessage struct {
	OrderID string      `json:"orderId"`
	Items   []OrderItem `json:"items"`
	Attempt int         `json:"deliveryAttempt"`
}
