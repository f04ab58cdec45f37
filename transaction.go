package bankbook

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Kind classifies a ledger entry. Normal entries represent user-initiated
// movements of funds and are subject to the overdraft and rate-limit checks;
// Interest and Fee entries are created by the monthly accrual and bypass both.
type Kind string

const (
	KindTransaction Kind = "Transaction"
	KindInterest    Kind = "Interest"
	KindFee         Kind = "Fee"
)

// Transaction is a single ledger entry. It is immutable after creation and
// owned exclusively by the account that admitted it.
type Transaction struct {
	ID     snowflake.ID    `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Date   civil.Date      `json:"date"`
	Kind   Kind            `json:"kind"`
}

// Before reports whether t precedes o. Entries order by calendar date only;
// same-day entries keep their insertion order.
func (t *Transaction) Before(o *Transaction) bool {
	return t.Date.Before(o.Date)
}

// MonthEnd returns the last calendar day of the month containing t's date.
// Month-end accruals are timestamped with it so they group into the same
// calendar month on later idempotency checks.
func (t *Transaction) MonthEnd() civil.Date {
	// day zero of the following month
	return civil.DateOf(time.Date(t.Date.Year, t.Date.Month+1, 0, 0, 0, 0, 0, time.UTC))
}

// String renders the entry as it appears on statements, e.g. "2024-01-05, $50.00".
func (t *Transaction) String() string {
	return fmt.Sprintf("%s, $%s", t.Date, formatAmount(t.Amount))
}

// formatAmount renders a dollar amount with two decimal places and thousands
// separators, keeping a leading minus sign for negative amounts.
func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + "," + whole[i:]
	}
	out := whole + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
