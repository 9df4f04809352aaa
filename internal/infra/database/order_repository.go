package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/ramadhanas/kaskelas/internal/adapters/db"
	"github.com/ramadhanas/kaskelas/internal/domain"
)

const ordersTable = "orders"

type OrderRepository struct {
	db *db.Client
}

func NewOrderRepository(db *db.Client) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a pending payment order. Paid/cancelled transitions are
// written by the payment reconciliation side, never here.
func (r *OrderRepository) Create(ctx context.Context, order domain.PaymentOrder) error {
	ds := goqu.Insert(ordersTable).Rows(goqu.Record{
		"order_id":    order.OrderID,
		"student_id":  order.StudentID,
		"category_id": order.CategoryID,
		"amount":      order.Amount,
		"payment_url": order.PaymentURL,
		"due_date":    order.DueDate,
		"status":      order.Status,
		"created_at":  order.CreatedAt,
	})

	if err := r.db.Insert(ctx, ds); err != nil {
		return fmt.Errorf("error inserting order %s: %w", order.OrderID, err)
	}
	return nil
}

// Get loads one order by its identifier.
func (r *OrderRepository) Get(ctx context.Context, orderID string) (domain.PaymentOrder, error) {
	ds := goqu.From(ordersTable).Where(goqu.C("order_id").Eq(orderID))

	var order domain.PaymentOrder
	if err := r.db.QueryRow(ctx, &order, ds); err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return domain.PaymentOrder{}, domain.ErrOrderNotFound
		}
		return domain.PaymentOrder{}, fmt.Errorf("error loading order %s: %w", orderID, err)
	}
	return order, nil
}
