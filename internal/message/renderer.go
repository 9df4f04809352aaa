package message

import (
	"strconv"
	"strings"
	"time"

	"github.com/ramadhanas/kaskelas/internal/domain"
)

// Placeholder vocabulary. Substitution is literal and case-sensitive; unknown
// placeholders are left verbatim, and a placeholder repeated in a custom
// template only has its first occurrence substituted.
const (
	PlaceholderName     = "{nama}"
	PlaceholderAmount   = "{nominal}"
	PlaceholderDueDate  = "{jatuh_tempo}"
	PlaceholderLink     = "{link}"
	PlaceholderOrderID  = "{order_id}"
	PlaceholderPeriod   = "{periode}"
	PlaceholderStudent  = "{nama_siswa}"
	PlaceholderGuardian = "{nama_ortu}"
)

const defaultBillingTemplate = `Assalamu'alaikum Wr. Wb.

Yth. Bapak/Ibu wali dari *{nama}*,

Kami informasikan tagihan kas kelas {periode} sebesar *{nominal}* dengan jatuh tempo {jatuh_tempo}.

Pembayaran dapat dilakukan melalui tautan berikut:
{link}

No. tagihan: {order_id}

Terima kasih.`

// BillingFields carries everything the billing templates may reference.
type BillingFields struct {
	Name    string
	Period  string
	Amount  int64
	DueDate time.Time
	Link    string
	OrderID string
}

// RenderBilling fills the fixed billing template, or the caller-supplied
// custom one when kind is TemplateCustom.
func RenderBilling(kind domain.TemplateKind, custom string, f BillingFields) string {
	tpl := defaultBillingTemplate
	if kind == domain.TemplateCustom {
		tpl = custom
	}
	return substitute(tpl, [][2]string{
		{PlaceholderName, f.Name},
		{PlaceholderPeriod, f.Period},
		{PlaceholderAmount, FormatRupiah(f.Amount)},
		{PlaceholderDueDate, FormatDate(f.DueDate)},
		{PlaceholderLink, f.Link},
		{PlaceholderOrderID, f.OrderID},
	})
}

// RenderBroadcast fills a free-form broadcast template with the student and
// guardian names.
func RenderBroadcast(tpl string, r domain.Recipient) string {
	return substitute(tpl, [][2]string{
		{PlaceholderStudent, r.Name},
		{PlaceholderGuardian, r.GuardianName},
	})
}

// substitute replaces at most one occurrence per placeholder key, matching
// the behavior billing recipients already rely on.
func substitute(tpl string, pairs [][2]string) string {
	out := tpl
	for _, p := range pairs {
		out = strings.Replace(out, p[0], p[1], 1)
	}
	return out
}

// FormatRupiah renders whole currency units with dot thousands separators,
// e.g. 1500000 -> "Rp 1.500.000".
func FormatRupiah(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	neg := false
	if strings.HasPrefix(digits, "-") {
		neg = true
		digits = digits[1:]
	}

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	if neg {
		return "Rp -" + b.String()
	}
	return "Rp " + b.String()
}

// FormatDate renders a due date as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
