//go:build unit

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramadhanas/kaskelas/api/rest"
	"github.com/ramadhanas/kaskelas/internal/app"
	"github.com/ramadhanas/kaskelas/internal/domain"
	"github.com/ramadhanas/kaskelas/internal/infra/handlers"
	"github.com/ramadhanas/kaskelas/internal/order"
)

type fakeStudents struct{}

func (fakeStudents) ListByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error) {
	return []domain.Recipient{
		{StudentID: 1, Name: "Ahmad", GuardianName: "Bu Rina", Phone: "6281111111111"},
		{StudentID: 2, Name: "Budi", GuardianName: "Pak Slamet", Phone: "6282222222222"},
	}, nil
}

type fakeCategories struct{}

func (fakeCategories) Get(ctx context.Context, id int64) (domain.Category, error) {
	return domain.Category{ID: id, Name: "Kas Januari"}, nil
}

type fakeOrders struct {
	created []domain.PaymentOrder
}

func (f *fakeOrders) Create(ctx context.Context, o domain.PaymentOrder) error {
	f.created = append(f.created, o)
	return nil
}

func (f *fakeOrders) Get(ctx context.Context, orderID string) (domain.PaymentOrder, error) {
	for _, o := range f.created {
		if o.OrderID == orderID {
			return o, nil
		}
	}
	return domain.PaymentOrder{}, domain.ErrOrderNotFound
}

type fakeAudit struct{}

func (fakeAudit) Append(ctx context.Context, e domain.AuditEntry) error { return nil }

type memStore struct {
	records map[string]*domain.BroadcastRecord
}

func (s *memStore) Save(ctx context.Context, r *domain.BroadcastRecord) error {
	s.records[r.ID] = r
	return nil
}

func (s *memStore) Get(ctx context.Context, id string) (*domain.BroadcastRecord, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, domain.ErrBroadcastNotFound
	}
	return r, nil
}

type okGateway struct{}

func (okGateway) Send(ctx context.Context, destination, body string) (domain.GatewayOutcome, error) {
	return domain.GatewayOutcome{Success: true, Message: "queued"}, nil
}

func newTestMux(t *testing.T) (*http.ServeMux, *memStore, *fakeOrders) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := &memStore{records: make(map[string]*domain.BroadcastRecord)}
	orders := &fakeOrders{}

	dispatcher := app.NewDispatcher(okGateway{}, app.BackoffPolicy{MaxAttempts: 3, Base: time.Millisecond}, logger)
	service := app.NewBroadcastService(
		fakeStudents{}, fakeCategories{}, orders, fakeAudit{}, store,
		dispatcher,
		order.NewGenerator("https://pay.example.id", "kas-7a"),
		time.Millisecond,
		logger,
	)

	mux := http.NewServeMux()
	handlers.RegisterHealthHandler(mux)
	handlers.RegisterBroadcastHandler(mux, service, logger)
	handlers.RegisterOrderHandler(mux, service, logger)
	return mux, store, orders
}

func TestBroadcastHandler_SendBilling(t *testing.T) {
	mux, _, _ := newTestMux(t)

	t.Run("given a valid billing request, the full result is returned", func(t *testing.T) {
		body := `{"studentIds":[1,2],"categoryId":7,"amount":50000,"dueDate":"2030-01-05","template":"default"}`
		req := httptest.NewRequest(http.MethodPost, "/broadcasts/billing", strings.NewReader(body))
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp rest.BroadcastResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "billing", resp.Kind)
		assert.Equal(t, 2, resp.Total)
		assert.Equal(t, 2, resp.Sent)
		assert.Equal(t, 0, resp.Failed)
		require.Len(t, resp.Results, 2)
		assert.NotEmpty(t, resp.Results[0].OrderID)
		assert.NotEmpty(t, resp.Results[0].PaymentURL)
	})

	t.Run("given a past due date, the request is rejected with 400", func(t *testing.T) {
		body := `{"studentIds":[1],"categoryId":7,"amount":50000,"dueDate":"2020-01-05","template":"default"}`
		req := httptest.NewRequest(http.MethodPost, "/broadcasts/billing", strings.NewReader(body))
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("given a malformed body, the request is rejected with 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/broadcasts/billing", strings.NewReader("{"))
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBroadcastHandler_SendMessage(t *testing.T) {
	mux, _, _ := newTestMux(t)

	body := `{"studentIds":[1,2],"body":"Pengumuman untuk {nama_ortu}"}`
	req := httptest.NewRequest(http.MethodPost, "/broadcasts/message", strings.NewReader(body))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp rest.BroadcastResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "message", resp.Kind)
	assert.Equal(t, 2, resp.Sent)
	assert.Empty(t, resp.Results[0].OrderID)
}

func TestBroadcastHandler_GetAndExport(t *testing.T) {
	mux, store, _ := newTestMux(t)

	store.records["b-1"] = &domain.BroadcastRecord{
		BroadcastResult: domain.BroadcastResult{
			ID: "b-1", Kind: domain.BroadcastKindMessage, Total: 1, Sent: 1,
			Results: []domain.DeliveryResult{
				{Recipient: domain.Recipient{StudentID: 1, Name: "Ahmad", Phone: "628111"}, Success: true, Message: "queued", Attempts: 1},
			},
			CreatedAt: time.Now(),
		},
		Body: "halo",
	}

	t.Run("given a stored broadcast, Get returns it", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/broadcasts/b-1", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp rest.BroadcastResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "b-1", resp.ID)
	})

	t.Run("given a stored broadcast, Export returns csv", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/broadcasts/b-1/export", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, rec.Body.String(), "Nama Siswa,No HP Ortu,Status,Percobaan,Pesan")
		assert.Contains(t, rec.Body.String(), "Ahmad")
	})

	t.Run("given an unknown id, 404 is returned", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/broadcasts/missing", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBroadcastHandler_RetryFailed(t *testing.T) {
	mux, store, _ := newTestMux(t)

	store.records["b-2"] = &domain.BroadcastRecord{
		BroadcastResult: domain.BroadcastResult{
			ID: "b-2", Kind: domain.BroadcastKindMessage, Total: 2, Sent: 1, Failed: 1,
			Results: []domain.DeliveryResult{
				{Recipient: domain.Recipient{StudentID: 1, Name: "Ahmad", Phone: "628111"}, Success: true, Message: "queued", Attempts: 1},
				{Recipient: domain.Recipient{StudentID: 2, Name: "Budi", Phone: "628222"}, Success: false, Message: "down", Attempts: 3},
			},
			CreatedAt: time.Now(),
		},
		Body: "halo {nama_siswa}",
	}

	req := httptest.NewRequest(http.MethodPost, "/broadcasts/b-2/retry", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp rest.BroadcastResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Sent)
	assert.Equal(t, 0, resp.Failed)
	assert.Equal(t, 1, resp.Results[0].Attempts, "successful entry is untouched")
	assert.Equal(t, 4, resp.Results[1].Attempts, "previous 3 attempts plus 1 retry")
}

func TestOrderHandler_Get(t *testing.T) {
	mux, _, orders := newTestMux(t)

	due := time.Date(2030, 1, 5, 0, 0, 0, 0, time.UTC)
	orders.created = []domain.PaymentOrder{{
		OrderID:    "KAS-1-AAAA",
		StudentID:  1,
		CategoryID: 7,
		Amount:     50000,
		PaymentURL: "https://pay.example.id/kas-7a/50000?order_id=KAS-1-AAAA",
		DueDate:    due,
		Status:     domain.OrderStatusPending,
		CreatedAt:  due.Add(-72 * time.Hour),
	}}

	t.Run("given a stored order, it is returned", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/KAS-1-AAAA", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp rest.OrderResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "KAS-1-AAAA", resp.OrderID)
		assert.Equal(t, int64(50000), resp.Amount)
		assert.Equal(t, "pending", resp.Status)
		assert.Equal(t, "https://pay.example.id/kas-7a/50000?order_id=KAS-1-AAAA", resp.PaymentURL)
	})

	t.Run("given an unknown order id, 404 is returned", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/missing", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	mux, _, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
