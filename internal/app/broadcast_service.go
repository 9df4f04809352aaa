package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ramadhanas/kaskelas/internal/domain"
	"github.com/ramadhanas/kaskelas/internal/message"
	"github.com/ramadhanas/kaskelas/internal/order"
)

// BillingRequest is one billing broadcast run as submitted by the caller.
type BillingRequest struct {
	StudentIDs []int64
	CategoryID int64
	Amount     int64
	DueDate    time.Time
	Template   domain.TemplateKind
	CustomBody string
}

func (r BillingRequest) Validate(now time.Time) error {
	if len(r.StudentIDs) == 0 {
		return domain.NewValidationError("student_ids", "at least one student is required")
	}
	if r.CategoryID <= 0 {
		return domain.NewValidationError("category_id", "must be positive")
	}
	if r.Amount <= 0 {
		return domain.NewValidationError("amount", "must be positive")
	}
	if !r.DueDate.After(now) {
		return domain.NewValidationError("due_date", "must be in the future")
	}
	switch r.Template {
	case domain.TemplateDefault:
	case domain.TemplateCustom:
		if r.CustomBody == "" {
			return domain.NewValidationError("custom_body", "required for the custom template")
		}
	default:
		return domain.NewValidationError("template", "must be default or custom")
	}
	return nil
}

// MessageRequest is one free-form broadcast run.
type MessageRequest struct {
	StudentIDs []int64
	Body       string
}

func (r MessageRequest) Validate() error {
	if len(r.StudentIDs) == 0 {
		return domain.NewValidationError("student_ids", "at least one student is required")
	}
	if r.Body == "" {
		return domain.NewValidationError("body", "must not be empty")
	}
	return nil
}

// BroadcastService runs broadcast batches sequentially, one recipient at a
// time, pacing sends to respect the gateway's rate limits. No failure is
// fatal to the batch; the service always moves on to the next recipient.
type BroadcastService struct {
	students   domain.StudentRepository
	categories domain.CategoryRepository
	orders     domain.OrderRepository
	audit      domain.AuditLog
	store      domain.BroadcastStore
	dispatcher *Dispatcher
	orderGen   *order.Generator
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewBroadcastService(
	students domain.StudentRepository,
	categories domain.CategoryRepository,
	orders domain.OrderRepository,
	audit domain.AuditLog,
	store domain.BroadcastStore,
	dispatcher *Dispatcher,
	orderGen *order.Generator,
	messageDelay time.Duration,
	logger *slog.Logger,
) *BroadcastService {
	if messageDelay <= 0 {
		messageDelay = 2 * time.Second
	}
	return &BroadcastService{
		students:   students,
		categories: categories,
		orders:     orders,
		audit:      audit,
		store:      store,
		dispatcher: dispatcher,
		orderGen:   orderGen,
		limiter:    rate.NewLimiter(rate.Every(messageDelay), 1),
		logger:     logger.With(slog.String("component", "broadcast_service")),
	}
}

// SendBilling persists one payment order per recipient, renders the billing
// notice and dispatches it. A recipient whose order could not be saved never
// receives a link for an order that does not exist.
func (s *BroadcastService) SendBilling(ctx context.Context, req BillingRequest) (*domain.BroadcastRecord, error) {
	if err := req.Validate(time.Now()); err != nil {
		return nil, err
	}

	recipients, err := s.students.ListByIDs(ctx, req.StudentIDs)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil, domain.ErrNoRecipients
	}

	category, err := s.categories.Get(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}

	params := domain.BillingParams{
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		DueDate:    req.DueDate,
		Template:   req.Template,
		CustomBody: req.CustomBody,
	}
	record := &domain.BroadcastRecord{
		BroadcastResult: domain.BroadcastResult{
			ID:        uuid.NewString(),
			Kind:      domain.BroadcastKindBilling,
			CreatedAt: time.Now(),
		},
		Billing:      &params,
		CategoryName: category.Name,
	}

	s.logger.Info("billing broadcast started",
		"broadcast_id", record.ID,
		"category", category.Name,
		"total", len(recipients))

	for i, recipient := range recipients {
		if err := s.pace(ctx, i == 0); err != nil {
			return nil, err
		}
		record.Results = append(record.Results, s.billOne(ctx, record, recipient))
	}

	return s.finish(ctx, record)
}

func (s *BroadcastService) billOne(ctx context.Context, record *domain.BroadcastRecord, recipient domain.Recipient) domain.DeliveryResult {
	params := record.Billing

	orderID := s.orderGen.NewOrderID()
	paymentURL := s.orderGen.PaymentURL(params.Amount, orderID)

	err := s.orders.Create(ctx, domain.PaymentOrder{
		OrderID:    orderID,
		StudentID:  recipient.StudentID,
		CategoryID: params.CategoryID,
		Amount:     params.Amount,
		PaymentURL: paymentURL,
		DueDate:    params.DueDate,
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		// Persistence failures are terminal for the recipient; nothing is
		// sent for an order that was never saved.
		s.logger.Error("order persistence failed",
			"broadcast_id", record.ID,
			"student_id", recipient.StudentID,
			"error", err)
		result := domain.DeliveryResult{
			Recipient: recipient,
			Success:   false,
			Message:   fmt.Sprintf("order persistence failed: %v", err),
		}
		s.appendAudit(ctx, record.ID, result)
		return result
	}

	body := s.renderBilling(record, recipient, orderID, paymentURL)
	dispatched := s.dispatcher.Dispatch(ctx, recipient.Phone, body)

	result := domain.DeliveryResult{
		Recipient:  recipient,
		OrderID:    orderID,
		PaymentURL: paymentURL,
		Success:    dispatched.Success,
		Message:    dispatched.Message,
		Attempts:   dispatched.Attempts,
	}
	s.appendAudit(ctx, record.ID, result)
	return result
}

// SendMessage runs a free-form broadcast; it is the billing flow without the
// order persistence step.
func (s *BroadcastService) SendMessage(ctx context.Context, req MessageRequest) (*domain.BroadcastRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	recipients, err := s.students.ListByIDs(ctx, req.StudentIDs)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil, domain.ErrNoRecipients
	}

	record := &domain.BroadcastRecord{
		BroadcastResult: domain.BroadcastResult{
			ID:        uuid.NewString(),
			Kind:      domain.BroadcastKindMessage,
			CreatedAt: time.Now(),
		},
		Body: req.Body,
	}

	s.logger.Info("message broadcast started", "broadcast_id", record.ID, "total", len(recipients))

	for i, recipient := range recipients {
		if err := s.pace(ctx, i == 0); err != nil {
			return nil, err
		}

		body := message.RenderBroadcast(req.Body, recipient)
		dispatched := s.dispatcher.Dispatch(ctx, recipient.Phone, body)

		result := domain.DeliveryResult{
			Recipient: recipient,
			Success:   dispatched.Success,
			Message:   dispatched.Message,
			Attempts:  dispatched.Attempts,
		}
		s.appendAudit(ctx, record.ID, result)
		record.Results = append(record.Results, result)
	}

	return s.finish(ctx, record)
}

// RetryFailed re-dispatches only the failed entries of a stored run, in
// place. Attempt counts accumulate across passes; entries that already
// succeeded are never touched or resent.
func (s *BroadcastService) RetryFailed(ctx context.Context, broadcastID string) (*domain.BroadcastRecord, error) {
	record, err := s.store.Get(ctx, broadcastID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("retrying failed deliveries", "broadcast_id", record.ID, "failed", record.Failed)

	first := true
	for i := range record.Results {
		entry := &record.Results[i]
		if entry.Success {
			continue
		}
		if err := s.pace(ctx, first); err != nil {
			return nil, err
		}
		first = false

		// A billing entry without an order id failed at the persistence
		// step on an earlier pass. The order has to exist before any notice
		// goes out, so run the full billing step again instead of resending
		// a notice with a blank link.
		if record.Kind == domain.BroadcastKindBilling && entry.OrderID == "" {
			redone := s.billOne(ctx, record, entry.Recipient)
			entry.OrderID = redone.OrderID
			entry.PaymentURL = redone.PaymentURL
			entry.Success = redone.Success
			entry.Message = redone.Message
			entry.Attempts += redone.Attempts
			continue
		}

		var body string
		if record.Kind == domain.BroadcastKindBilling {
			body = s.renderBilling(record, entry.Recipient, entry.OrderID, entry.PaymentURL)
		} else {
			body = message.RenderBroadcast(record.Body, entry.Recipient)
		}

		dispatched := s.dispatcher.Dispatch(ctx, entry.Recipient.Phone, body)
		entry.Success = dispatched.Success
		entry.Message = dispatched.Message
		entry.Attempts += dispatched.Attempts

		s.appendAudit(ctx, record.ID, *entry)
	}

	return s.finish(ctx, record)
}

func (s *BroadcastService) Get(ctx context.Context, broadcastID string) (*domain.BroadcastRecord, error) {
	return s.store.Get(ctx, broadcastID)
}

// GetOrder looks up one payment order by its identifier.
func (s *BroadcastService) GetOrder(ctx context.Context, orderID string) (domain.PaymentOrder, error) {
	return s.orders.Get(ctx, orderID)
}

func (s *BroadcastService) renderBilling(record *domain.BroadcastRecord, recipient domain.Recipient, orderID, paymentURL string) string {
	params := record.Billing
	return message.RenderBilling(params.Template, params.CustomBody, message.BillingFields{
		Name:    recipient.Name,
		Period:  record.CategoryName,
		Amount:  params.Amount,
		DueDate: params.DueDate,
		Link:    paymentURL,
		OrderID: orderID,
	})
}

// pace enforces the inter-message delay, measured from the completion of
// the previous send. The first recipient of a run starts immediately; for
// the rest, a token accrued while a slow retried dispatch was in flight is
// drained first so the next send never follows it back to back.
// Cancellation is honored here, between recipients, never during an
// in-flight gateway call.
func (s *BroadcastService) pace(ctx context.Context, first bool) error {
	if first {
		return ctx.Err()
	}
	s.limiter.Allow()
	return s.limiter.Wait(ctx)
}

func (s *BroadcastService) finish(ctx context.Context, record *domain.BroadcastRecord) (*domain.BroadcastRecord, error) {
	record.Tally()

	if err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save broadcast record: %w", err)
	}

	s.logger.Info("broadcast finished",
		"broadcast_id", record.ID,
		"total", record.Total,
		"sent", record.Sent,
		"failed", record.Failed)

	return record, nil
}

func (s *BroadcastService) appendAudit(ctx context.Context, broadcastID string, result domain.DeliveryResult) {
	entry := domain.AuditEntry{
		BroadcastID: broadcastID,
		StudentID:   result.Recipient.StudentID,
		Phone:       result.Recipient.Phone,
		Success:     result.Success,
		Message:     result.Message,
		Attempts:    result.Attempts,
		SentAt:      time.Now(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", "broadcast_id", broadcastID, "error", err)
	}
}
