package export

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/ramadhanas/kaskelas/internal/domain"
)

const (
	statusSent   = "Terkirim"
	statusFailed = "Gagal"
)

var (
	billingHeader = []string{"Nama Siswa", "No HP Ortu", "Order ID", "Link Pembayaran", "Status", "Percobaan", "Pesan"}
	messageHeader = []string{"Nama Siswa", "No HP Ortu", "Status", "Percobaan", "Pesan"}
)

// CSV serializes a broadcast record to comma-separated text: one header row
// plus one row per recipient. Billing runs carry the order and payment link
// columns; free-form runs drop them.
func CSV(record *domain.BroadcastRecord) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	billing := record.Kind == domain.BroadcastKindBilling

	header := messageHeader
	if billing {
		header = billingHeader
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, res := range record.Results {
		row := []string{res.Recipient.Name, res.Recipient.Phone}
		if billing {
			row = append(row, res.OrderID, res.PaymentURL)
		}
		row = append(row, statusLabel(res.Success), strconv.Itoa(res.Attempts), res.Message)

		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return b.String(), nil
}

func statusLabel(success bool) string {
	if success {
		return statusSent
	}
	return statusFailed
}
