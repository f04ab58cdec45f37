package bankbook

import (
	"fmt"
	"io"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type OpenAccountReq struct {
	Type AccountType `json:"type"`
}

type TxnReq struct {
	AcctNum int64           `json:"-"`
	Amount  decimal.Decimal `json:"amount"`
	Date    civil.Date      `json:"date"`
}

type AcctReq struct {
	AcctNum int64
}

// TxnResult is the outcome of a successful admission: the created entry and
// the balance after it.
type TxnResult struct {
	Transaction *Transaction    `json:"transaction"`
	Balance     decimal.Decimal `json:"balance"`
}

type AccountSummary struct {
	AcctNum int64           `json:"acct_num"`
	Type    AccountType     `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

// String renders the summary line, e.g. "Checking#000000001,	balance: $44.60".
func (s AccountSummary) String() string {
	label := "Checking"
	if s.Type == Savings {
		label = "Savings"
	}
	return fmt.Sprintf("%s#%09d,\tbalance: $%s", label, s.AcctNum, formatAmount(s.Balance))
}

type Service interface {
	OpenAccount(OpenAccountReq) (*AccountSummary, error)
	RecordTransaction(TxnReq) (*TxnResult, error)
	ApplyInterestAndFees(AcctReq) (*decimal.Decimal, error)
	Balance(AcctReq) (*decimal.Decimal, error)
	Accounts() ([]AccountSummary, error)
	Transactions(AcctReq) ([]*Transaction, error)
	Statement(io.Writer, AcctReq) error
}

// NewService loads the persisted ledger from the repository, or initializes
// and persists a fresh one when nothing has been saved yet.
func NewService(repo Repository, log *zerolog.Logger) (*serviceImpl, error) {
	bank, err := repo.LoadLedger()
	if err != nil {
		return nil, err
	}
	if bank == nil {
		if bank, err = NewBank(); err != nil {
			return nil, err
		}
		log.Debug().Msg("initialized fresh ledger")
	} else {
		log.Debug().Int("accounts", len(bank.Accounts())).Msg("loaded ledger from storage")
	}
	return &serviceImpl{
		bank: bank,
		repo: repo,
		log:  log,
	}, nil
}

type serviceImpl struct {
	bank *Bank
	repo Repository
	log  *zerolog.Logger
}

var _ Service = (*serviceImpl)(nil)

func (s *serviceImpl) OpenAccount(req OpenAccountReq) (*AccountSummary, error) {
	uow, err := s.repo.Begin()
	if err != nil {
		return nil, err
	}
	acct, err := s.bank.AddAccount(req.Type, uow)
	if err != nil {
		s.rollback(uow)
		return nil, err
	}
	if err = uow.Commit(); err != nil {
		return nil, err
	}
	s.log.Debug().
		Int64("acct_num", acct.AcctNum).
		Str("type", string(acct.Type)).
		Msg("created account")
	sum := summarize(acct)
	return &sum, nil
}

func (s *serviceImpl) RecordTransaction(req TxnReq) (*TxnResult, error) {
	acct := s.bank.Account(req.AcctNum)
	if acct == nil {
		return nil, ErrNotFound{AcctNum: req.AcctNum}
	}
	uow, err := s.repo.Begin()
	if err != nil {
		return nil, err
	}
	txn, err := acct.AddTransaction(req.Amount, req.Date, KindTransaction, uow)
	if err != nil {
		s.rollback(uow)
		return nil, err
	}
	if err = uow.Commit(); err != nil {
		return nil, err
	}
	s.log.Debug().
		Int64("acct_num", acct.AcctNum).
		Str("amount", req.Amount.String()).
		Msg("created transaction")
	return &TxnResult{Transaction: txn, Balance: acct.Balance()}, nil
}

func (s *serviceImpl) ApplyInterestAndFees(req AcctReq) (*decimal.Decimal, error) {
	acct := s.bank.Account(req.AcctNum)
	if acct == nil {
		return nil, ErrNotFound{AcctNum: req.AcctNum}
	}
	uow, err := s.repo.Begin()
	if err != nil {
		return nil, err
	}
	if err = acct.ApplyInterestAndFees(uow); err != nil {
		s.rollback(uow)
		return nil, err
	}
	if err = uow.Commit(); err != nil {
		return nil, err
	}
	s.log.Debug().Int64("acct_num", acct.AcctNum).Msg("triggered interest and fees")
	bal := acct.Balance()
	return &bal, nil
}

func (s *serviceImpl) Balance(req AcctReq) (*decimal.Decimal, error) {
	acct := s.bank.Account(req.AcctNum)
	if acct == nil {
		return nil, ErrNotFound{AcctNum: req.AcctNum}
	}
	bal := acct.Balance()
	return &bal, nil
}

func (s *serviceImpl) Accounts() ([]AccountSummary, error) {
	accts := s.bank.Accounts()
	sums := make([]AccountSummary, 0, len(accts))
	for _, a := range accts {
		sums = append(sums, summarize(a))
	}
	return sums, nil
}

func (s *serviceImpl) Transactions(req AcctReq) ([]*Transaction, error) {
	acct := s.bank.Account(req.AcctNum)
	if acct == nil {
		return nil, ErrNotFound{AcctNum: req.AcctNum}
	}
	return acct.Transactions(), nil
}

func (s *serviceImpl) Statement(w io.Writer, req AcctReq) error {
	acct := s.bank.Account(req.AcctNum)
	if acct == nil {
		return ErrNotFound{AcctNum: req.AcctNum}
	}
	return writeStatement(w, acct)
}

func (s *serviceImpl) rollback(uow UnitOfWork) {
	if err := uow.Rollback(); err != nil {
		s.log.Err(err).Msg("unit of work rollback fail")
	}
}

func summarize(a *Account) AccountSummary {
	return AccountSummary{
		AcctNum: a.AcctNum,
		Type:    a.Type,
		Balance: a.Balance(),
	}
}
