package bankbook

import (
	"sort"

	"github.com/bwmarrin/snowflake"
)

// Bank owns the collection of accounts. A single Bank represents the whole
// persisted ledger; accounts are only ever appended, in creation order.
type Bank struct {
	node     *snowflake.Node
	accounts []*Account
}

func NewBank() (*Bank, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &Bank{node: node}, nil
}

// AddAccount opens an account of the given type under the next account number
// and registers it with the unit of work. Numbers are assigned densely
// starting at 1; with no close operation the count-based assignment cannot
// reuse a number.
func (b *Bank) AddAccount(typ AccountType, uow UnitOfWork) (*Account, error) {
	switch typ {
	case Checking, Savings:
	default:
		return nil, ErrBadRequest{Fields: map[string]string{"type": "must be checking or savings"}}
	}
	acct := newAccount(typ, int64(len(b.accounts))+1, b.node)
	b.accounts = append(b.accounts, acct)
	uow.RegisterAccount(acct)
	return acct, nil
}

// Account returns the account with the given number, or nil when absent.
func (b *Bank) Account(num int64) *Account {
	for _, a := range b.accounts {
		if a.AcctNum == num {
			return a
		}
	}
	return nil
}

// Accounts returns all accounts in creation order.
func (b *Bank) Accounts() []*Account {
	out := make([]*Account, len(b.accounts))
	copy(out, b.accounts)
	return out
}

// restoreAccount re-attaches a persisted account. Entries must be supplied in
// their original insertion order (ascending entry ID); the stable re-sort then
// reproduces the exact stored ordering, including same-day ties.
func (b *Bank) restoreAccount(typ AccountType, num int64, entries []*Transaction) *Account {
	acct := newAccount(typ, num, b.node)
	for _, e := range entries {
		acct.balance = acct.balance.Add(e.Amount)
	}
	acct.entries = entries
	sort.SliceStable(acct.entries, func(i, j int) bool {
		return acct.entries[i].Before(acct.entries[j])
	})
	b.accounts = append(b.accounts, acct)
	return acct
}
