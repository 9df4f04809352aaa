package rest

import (
	"time"

	"github.com/ramadhanas/kaskelas/internal/domain"
)

type DeliveryResultResponse struct {
	StudentID    int64  `json:"studentId"`
	Name         string `json:"name"`
	GuardianName string `json:"guardianName,omitempty"`
	Phone        string `json:"phone"`
	OrderID      string `json:"orderId,omitempty"`
	PaymentURL   string `json:"paymentUrl,omitempty"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Attempts     int    `json:"attempts"`
}

type BroadcastResponse struct {
	ID        string                   `json:"id"`
	Kind      string                   `json:"kind"`
	Total     int                      `json:"total"`
	Sent      int                      `json:"sent"`
	Failed    int                      `json:"failed"`
	Results   []DeliveryResultResponse `json:"results"`
	CreatedAt string                   `json:"createdAt"`
}

type OrderResponse struct {
	OrderID    string `json:"orderId"`
	StudentID  int64  `json:"studentId"`
	CategoryID int64  `json:"categoryId"`
	Amount     int64  `json:"amount"`
	PaymentURL string `json:"paymentUrl"`
	DueDate    string `json:"dueDate"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
}

func ToOrderResponse(order domain.PaymentOrder) OrderResponse {
	return OrderResponse{
		OrderID:    order.OrderID,
		StudentID:  order.StudentID,
		CategoryID: order.CategoryID,
		Amount:     order.Amount,
		PaymentURL: order.PaymentURL,
		DueDate:    order.DueDate.Format(time.RFC3339),
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt.Format(time.RFC3339),
	}
}

func ToBroadcastResponse(record *domain.BroadcastRecord) BroadcastResponse {
	results := make([]DeliveryResultResponse, len(record.Results))
	for i, res := range record.Results {
		results[i] = DeliveryResultResponse{
			StudentID:    res.Recipient.StudentID,
			Name:         res.Recipient.Name,
			GuardianName: res.Recipient.GuardianName,
			Phone:        res.Recipient.Phone,
			OrderID:      res.OrderID,
			PaymentURL:   res.PaymentURL,
			Success:      res.Success,
			Message:      res.Message,
			Attempts:     res.Attempts,
		}
	}

	return BroadcastResponse{
		ID:        record.ID,
		Kind:      string(record.Kind),
		Total:     record.Total,
		Sent:      record.Sent,
		Failed:    record.Failed,
		Results:   results,
		CreatedAt: record.CreatedAt.Format(time.RFC3339),
	}
}
