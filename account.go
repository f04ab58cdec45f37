package bankbook

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AccountType selects the rule set an account runs under. Only one level of
// specialization exists (the rate-limit check and the fee computation), so the
// variants are a tag plus fixed parameters rather than separate types.
type AccountType string

const (
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
)

var (
	checkingInterestRate     = decimal.RequireFromString("0.0008")
	checkingBalanceThreshold = decimal.NewFromInt(100)
	checkingLowBalanceFee    = decimal.RequireFromString("-5.44")

	savingsInterestRate = decimal.RequireFromString("0.0041")
)

const (
	savingsDailyLimit   = 2
	savingsMonthlyLimit = 5
)

// Account holds a balance and its chronologically ordered ledger entries.
// The balance always equals the sum of all admitted entry amounts, and the
// entry slice stays non-decreasing by date. All mutation goes through
// AddTransaction and ApplyInterestAndFees; accounts are never closed.
type Account struct {
	AcctNum int64
	Type    AccountType

	balance decimal.Decimal
	entries []*Transaction
	node    *snowflake.Node
}

func newAccount(typ AccountType, num int64, node *snowflake.Node) *Account {
	return &Account{AcctNum: num, Type: typ, node: node}
}

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal {
	return a.balance
}

// Transactions returns the account's entries in chronological order. The
// returned slice is a copy; the entries themselves are immutable.
func (a *Account) Transactions() []*Transaction {
	out := make([]*Transaction, len(a.entries))
	copy(out, a.entries)
	return out
}

func (a *Account) interestRate() decimal.Decimal {
	if a.Type == Savings {
		return savingsInterestRate
	}
	return checkingInterestRate
}

// AddTransaction validates and admits one ledger entry. A candidate dated
// before the account's latest entry is rejected outright. Normal entries are
// then subject to the overdraft and variant rate-limit checks; Interest and
// Fee entries bypass both. On success the balance update, the append, and the
// unit-of-work registration all happen; on failure none do.
func (a *Account) AddTransaction(amount decimal.Decimal, date civil.Date, kind Kind, uow UnitOfWork) (*Transaction, error) {
	txn := &Transaction{
		ID:     a.node.Generate(),
		Amount: amount,
		Date:   date,
		Kind:   kind,
	}
	if len(a.entries) > 0 {
		last := a.entries[len(a.entries)-1]
		if txn.Before(last) {
			return nil, ErrSequence{LastDate: last.Date}
		}
	}
	if kind == KindTransaction {
		// Strictly positive: an entry that leaves the balance at
		// exactly zero is rejected.
		if !a.balance.Add(amount).IsPositive() {
			return nil, ErrOverdraw{}
		}
		if err := a.withinLimits(date); err != nil {
			return nil, err
		}
	}

	a.balance = a.balance.Add(amount)
	a.entries = append(a.entries, txn)
	sort.SliceStable(a.entries, func(i, j int) bool {
		return a.entries[i].Before(a.entries[j])
	})
	uow.RegisterTransaction(a.AcctNum, txn)
	return txn, nil
}

// withinLimits applies the variant rate-limit check to a candidate date.
// Checking has no cap. Savings caps normal entries per calendar day, then per
// calendar month; the daily cap is evaluated first.
func (a *Account) withinLimits(date civil.Date) error {
	if a.Type != Savings {
		return nil
	}
	var day, month int
	for _, e := range a.entries {
		if e.Kind != KindTransaction {
			continue
		}
		if e.Date.Year != date.Year || e.Date.Month != date.Month {
			continue
		}
		month++
		if e.Date.Day == date.Day {
			day++
		}
	}
	if day >= savingsDailyLimit {
		return ErrLimit{Count: savingsDailyLimit, Period: "day"}
	}
	if month >= savingsMonthlyLimit {
		return ErrLimit{Count: savingsMonthlyLimit, Period: "month"}
	}
	return nil
}

// ApplyInterestAndFees admits the monthly interest entry and then any variant
// fee, both dated at the month-end of the latest entry so they group into the
// same accrual month. At most one accrual per calendar month is admitted.
func (a *Account) ApplyInterestAndFees(uow UnitOfWork) error {
	if len(a.entries) == 0 {
		return ErrEmptyLedger{}
	}
	last := a.entries[len(a.entries)-1]
	ref := last.MonthEnd()
	if a.accruedIn(ref) {
		return ErrSequence{LastDate: last.Date, InterestRelated: true}
	}
	interest := a.balance.Mul(a.interestRate())
	if _, err := a.AddTransaction(interest, ref, KindInterest, uow); err != nil {
		return err
	}
	return a.addFees(ref, uow)
}

func (a *Account) accruedIn(ref civil.Date) bool {
	for _, e := range a.entries {
		if e.Kind == KindTransaction {
			continue
		}
		if e.Date.Year == ref.Year && e.Date.Month == ref.Month {
			return true
		}
	}
	return false
}

// addFees runs after the interest admission so fees are assessed against the
// post-interest balance. Savings accounts levy no fee.
func (a *Account) addFees(ref civil.Date, uow UnitOfWork) error {
	if a.Type != Checking {
		return nil
	}
	if a.balance.GreaterThanOrEqual(checkingBalanceThreshold) {
		return nil
	}
	_, err := a.AddTransaction(checkingLowBalanceFee, ref, KindFee, uow)
	return err
}

func (a *Account) label() string {
	if a.Type == Savings {
		return "Savings"
	}
	return "Checking"
}

// String renders the account as it appears on summaries,
// e.g. "Checking#000000001,	balance: $44.60".
func (a *Account) String() string {
	return fmt.Sprintf("%s#%09d,\tbalance: $%s", a.label(), a.AcctNum, formatAmount(a.balance))
}
