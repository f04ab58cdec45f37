package bankbook

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

var (
	ErrInternalServer = errors.New("internal server error")

	// ErrOverloaded is returned by the load-shedding middleware when a
	// request cannot acquire an in-flight slot before its deadline.
	ErrOverloaded = errors.New("service overloaded")
)

// ErrOverdraw rejects a normal transaction that would not leave the balance
// strictly positive.
type ErrOverdraw struct{}

func (e ErrOverdraw) Error() string {
	return "this transaction could not be completed due to an insufficient account balance"
}

// ErrSequence rejects a chronological regression: either a new entry dated
// before the account's latest entry, or a second accrual in the same calendar
// month. LastDate is the latest entry's date in both cases.
type ErrSequence struct {
	LastDate        civil.Date `json:"last_date"`
	InterestRelated bool       `json:"interest_related"`
}

func (e ErrSequence) Error() string {
	if e.InterestRelated {
		return fmt.Sprintf("cannot apply interest and fees again in the month of %s", e.LastDate.Month)
	}
	return fmt.Sprintf("new transactions must be from %s onward", e.LastDate)
}

// ErrLimit rejects a normal transaction that would exceed a savings account's
// per-day or per-month cap.
type ErrLimit struct {
	Count  int    `json:"count"`
	Period string `json:"period"`
}

func (e ErrLimit) Error() string {
	return fmt.Sprintf("this transaction could not be completed because this account already has %d transactions in this %s", e.Count, e.Period)
}

// ErrEmptyLedger rejects an accrual on an account with no entries; there is no
// latest transaction to anchor the reference date.
type ErrEmptyLedger struct{}

func (e ErrEmptyLedger) Error() string {
	return "account has no transactions to accrue interest against"
}

type ErrBadRequest struct {
	Fields map[string]string `json:"fields"`
}

func (e ErrBadRequest) Error() string {
	return fmt.Sprintf("missing/invalid params: %v", e.Fields)
}

type ErrNotFound struct {
	AcctNum int64 `json:"acct_num"`
}

func (e ErrNotFound) Error() string {
	return "account not found"
}

// isDomainErr reports whether err is a business-rule rejection rather than an
// infrastructure failure. Rejections are healthy responses and must not count
// against the circuit breaker.
func isDomainErr(err error) bool {
	switch {
	case errors.As(err, &ErrOverdraw{}),
		errors.As(err, &ErrSequence{}),
		errors.As(err, &ErrLimit{}),
		errors.As(err, &ErrEmptyLedger{}),
		errors.As(err, &ErrNotFound{}),
		errors.As(err, &ErrBadRequest{}):
		return true
	}
	return false
}
