package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersys/fulfillment/internal/order/domain"
)

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	createErr error
	statusErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]domain.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, o domain.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) error {
	if r.statusErr != nil {
		return r.statusErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return errors.New("order not found")
	}
	o.Status = status
	r.orders[id] = o
	return nil
}

func (r *fakeOrderRepo) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, errors.New("order not found")
	}
	return o, nil
}

func (r *fakeOrderRepo) StaleCreated(_ context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var out []domain.Order
	for _, o := range r.orders {
		if o.Status == domain.StatusCreated && o.CreatedAt.Before(cutoff) {
			out = append(out, o)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []domain.FulfillmentMessage
	publishErr error
}

func (q *fakeQueue) Publish(_ context.Context, msg domain.FulfillmentMessage) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, msg)
	return nil
}

func (q *fakeQueue) messages() []domain.FulfillmentMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.FulfillmentMessage(nil), q.published...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSubmitOrderValidation(t *testing.T) {
	repo := newFakeOrderRepo()
	queue := &fakeQueue{}
	svc := NewService(testLogger(), repo, queue)

	cases := []struct {
		name  string
		items []domain.OrderItem
	}{
		{"empty items", nil},
		{"zero quantity", []domain.OrderItem{{ProductID: "p1", Quantity: 0}}},
		{"negative quantity", []domain.OrderItem{{ProductID: "p1", Quantity: -2}}},
		{"missing product id", []domain.OrderItem{{ProductID: "", Quantity: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitOrder(context.Background(), "u1", tc.items, 100)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Empty(t, queue.messages(), "nothing may be enqueued on validation failure")
			assert.Empty(t, repo.orders, "nothing may be persisted on validation failure")
		})
	}
}

func TestSubmitOrderHappyPath(t *testing.T) {
	repo := newFakeOrderRepo()
	queue := &fakeQueue{}
	svc := NewService(testLogger(), repo, queue)

	items := []domain.OrderItem{{ProductID: "p1", Quantity: 2}}
	orderID, err := svc.SubmitOrder(context.Background(), "u1", items, 2000)
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	o, err := repo.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnqueued, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, int64(2000), o.TotalCents)

	msgs := queue.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, orderID, msgs[0].OrderID)
	assert.Equal(t, items, msgs[0].Items)
	assert.Equal(t, 0, msgs[0].Attempt)
}

func TestSubmitOrderStoreFailureAborts(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.createErr = errors.New("connection refused")
	queue := &fakeQueue{}
	svc := NewService(testLogger(), repo, queue)

	_, err := svc.SubmitOrder(context.Background(), "u1", []domain.OrderItem{{ProductID: "p1", Quantity: 1}}, 100)
	require.Error(t, err)
	assert.Empty(t, queue.messages(), "ledger failure must abort before enqueue")
}

func TestSubmitOrderPublishFailureStillSucceeds(t *testing.T) {
	repo := newFakeOrderRepo()
	queue := &fakeQueue{publishErr: errors.New("broker unreachable")}
	svc := NewService(testLogger(), repo, queue)

	orderID, err := svc.SubmitOrder(context.Background(), "u1", []domain.OrderItem{{ProductID: "p1", Quantity: 1}}, 100)
	require.NoError(t, err, "ledger write is the source of truth")
	require.NotEmpty(t, orderID)

	o, err := repo.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, o.Status, "order stays created for the sweep to pick up")
}
