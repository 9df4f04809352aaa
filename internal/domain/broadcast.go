package domain

import (
	"context"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type BroadcastKind string

const (
	BroadcastKindBilling BroadcastKind = "billing"
	BroadcastKindMessage BroadcastKind = "message"
)

type TemplateKind string

const (
	TemplateDefault TemplateKind = "default"
	TemplateCustom  TemplateKind = "custom"
)

// Recipient is a snapshot of a student row taken at batch start. It does not
// change for the duration of a broadcast run.
type Recipient struct {
	StudentID    int64  `db:"id"`
	Name         string `db:"name"`
	GuardianName string `db:"guardian_name"`
	Phone        string `db:"phone"`
}

type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// PaymentOrder is created once per recipient per billing run. Status
// transitions past pending belong to the payment reconciliation side and are
// never written by this service.
type PaymentOrder struct {
	OrderID    string      `db:"order_id"`
	StudentID  int64       `db:"student_id"`
	CategoryID int64       `db:"category_id"`
	Amount     int64       `db:"amount"`
	PaymentURL string      `db:"payment_url"`
	DueDate    time.Time   `db:"due_date"`
	Status     OrderStatus `db:"status"`
	CreatedAt  time.Time   `db:"created_at"`
}

// GatewayOutcome is the structured reply of the messaging gateway. A transport
// error is reported separately by the adapter; both count as a failed attempt.
type GatewayOutcome struct {
	Success bool
	Message string
}

type DeliveryResult struct {
	Recipient  Recipient
	OrderID    string
	PaymentURL string
	Success    bool
	Message    string
	Attempts   int
}

type BroadcastResult struct {
	ID        string
	Kind      BroadcastKind
	Total     int
	Sent      int
	Failed    int
	Results   []DeliveryResult
	CreatedAt time.Time
}

// BillingParams are the form parameters of a billing run, kept on the stored
// record so a retry pass can re-render messages.
type BillingParams struct {
	CategoryID int64
	Amount     int64
	DueDate    time.Time
	Template   TemplateKind
	CustomBody string
}

// BroadcastRecord is the stored shape of a completed run: the result plus the
// inputs needed by the retry-failed re-entry path.
type BroadcastRecord struct {
	BroadcastResult
	Billing      *BillingParams
	CategoryName string
	Body         string
}

// Tally recomputes the sent/failed counters from the per-recipient results.
func (r *BroadcastResult) Tally() {
	r.Total = len(r.Results)
	r.Sent = 0
	r.Failed = 0
	for _, res := range r.Results {
		if res.Success {
			r.Sent++
		} else {
			r.Failed++
		}
	}
}

type AuditEntry struct {
	BroadcastID string
	StudentID   int64
	Phone       string
	Success     bool
	Message     string
	Attempts    int
	SentAt      time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order PaymentOrder) error
	Get(ctx context.Context, orderID string) (PaymentOrder, error)
}

type StudentRepository interface {
	ListByIDs(ctx context.Context, ids []int64) ([]Recipient, error)
}

type CategoryRepository interface {
	Get(ctx context.Context, id int64) (Category, error)
}

// AuditLog appends delivery outcomes. Append failures are tolerated by
// callers; the audit trail is best-effort.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

type BroadcastStore interface {
	Save(ctx context.Context, record *BroadcastRecord) error
	Get(ctx context.Context, id string) (*BroadcastRecord, error)
}
