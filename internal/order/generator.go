package order

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idPrefix = "KAS"

// Generator produces order identifiers and payment links for a configured
// merchant. Identifiers are unique with overwhelming probability within a
// process; there is no central allocator, so callers must not assume hard
// uniqueness across concurrent deployments.
type Generator struct {
	paymentBase  string
	merchantSlug string
}

func NewGenerator(paymentBase, merchantSlug string) *Generator {
	return &Generator{
		paymentBase:  strings.TrimRight(paymentBase, "/"),
		merchantSlug: merchantSlug,
	}
}

// NewOrderID combines the current unix-millisecond timestamp with a random
// suffix drawn from a v4 UUID.
func (g *Generator) NewOrderID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", idPrefix, time.Now().UnixMilli(), suffix)
}

// PaymentURL is pure: the same amount and order id always produce the same
// link. A non-positive amount is a contract violation, not a runtime error.
func (g *Generator) PaymentURL(amount int64, orderID string) string {
	if amount <= 0 {
		panic(fmt.Sprintf("order: non-positive amount %d", amount))
	}
	return fmt.Sprintf("%s/%s/%d?order_id=%s", g.paymentBase, g.merchantSlug, amount, url.QueryEscape(orderID))
}
