package bankbook

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// accountRow and transactionRow are the sqlite representations of the ledger.
// Amounts are stored as exact decimal strings; a REAL column would lose cents.
type accountRow struct {
	AcctNum int64  `gorm:"primaryKey;column:acct_num"`
	Typ     string `gorm:"column:typ"`
}

func (accountRow) TableName() string { return "accounts" }

type transactionRow struct {
	ID       int64     `gorm:"primaryKey"`
	AcctNum  int64     `gorm:"index;column:acct_num"`
	Amount   string    `gorm:"column:amount"`
	PostedOn time.Time `gorm:"column:posted_on"`
	Kind     string    `gorm:"column:kind"`
}

func (transactionRow) TableName() string { return "transactions" }

// SqliteEndpoint backs the local single-user deployment with a sqlite file.
type SqliteEndpoint struct {
	db  *gorm.DB
	log *zerolog.Logger
}

var (
	_ Repository = (*SqliteEndpoint)(nil)
)

func NewSqliteEndpoint(path string, log *zerolog.Logger) (*SqliteEndpoint, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, err
	}
	if err = db.AutoMigrate(&accountRow{}, &transactionRow{}); err != nil {
		return nil, err
	}

	endpt := &SqliteEndpoint{
		db:  db,
		log: log,
	}
	return endpt, err
}

func (s *SqliteEndpoint) Begin() (UnitOfWork, error) {
	return &sqliteUnitOfWork{ep: s}, nil
}

// sqliteUnitOfWork buffers registered entities and writes them in one gorm
// transaction at Commit.
type sqliteUnitOfWork struct {
	ep    *SqliteEndpoint
	accts []accountRow
	txns  []transactionRow
}

func (u *sqliteUnitOfWork) RegisterAccount(acct *Account) {
	u.accts = append(u.accts, accountRow{
		AcctNum: acct.AcctNum,
		Typ:     string(acct.Type),
	})
}

func (u *sqliteUnitOfWork) RegisterTransaction(acctNum int64, txn *Transaction) {
	u.txns = append(u.txns, transactionRow{
		ID:       txn.ID.Int64(),
		AcctNum:  acctNum,
		Amount:   txn.Amount.String(),
		PostedOn: txn.Date.In(time.UTC),
		Kind:     string(txn.Kind),
	})
}

func (u *sqliteUnitOfWork) Commit() error {
	if len(u.accts) == 0 && len(u.txns) == 0 {
		return nil
	}
	return u.ep.db.Transaction(func(tx *gorm.DB) error {
		for i := range u.accts {
			if err := tx.Create(&u.accts[i]).Error; err != nil {
				return err
			}
		}
		for i := range u.txns {
			if err := tx.Create(&u.txns[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (u *sqliteUnitOfWork) Rollback() error {
	u.accts = nil
	u.txns = nil
	return nil
}

func (s *SqliteEndpoint) LoadLedger() (*Bank, error) {
	var acctRows []accountRow
	if err := s.db.Order("acct_num").Find(&acctRows).Error; err != nil {
		return nil, err
	}
	if len(acctRows) == 0 {
		return nil, nil
	}

	// ID order is creation order, which keeps same-day ties stable
	var txnRows []transactionRow
	if err := s.db.Order("id").Find(&txnRows).Error; err != nil {
		return nil, err
	}
	byAcct := make(map[int64][]*Transaction, len(acctRows))
	for _, r := range txnRows {
		amt, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, err
		}
		byAcct[r.AcctNum] = append(byAcct[r.AcctNum], &Transaction{
			ID:     snowflake.ID(r.ID),
			Amount: amt,
			Date:   civil.DateOf(r.PostedOn),
			Kind:   Kind(r.Kind),
		})
	}

	bank, err := NewBank()
	if err != nil {
		return nil, err
	}
	for _, r := range acctRows {
		bank.restoreAccount(AccountType(r.Typ), r.AcctNum, byAcct[r.AcctNum])
	}
	return bank, nil
}
