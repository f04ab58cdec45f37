package bankbook

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	pgInsertAcctSQL = `
		INSERT INTO accounts (acct_num, typ)
		VALUES ($1, $2);
	`

	pgInsertTxnSQL = `
		INSERT INTO transactions (id, acct_num, amount, posted_on, kind)
		VALUES ($1, $2, $3, $4, $5);
	`

	pgSelectAcctsSQL = `
		SELECT acct_num, typ
		FROM accounts
		ORDER BY acct_num;
	`

	// entry IDs ascend in creation order; loading in ID order preserves
	// the insertion order same-day entries were admitted in
	pgSelectTxnsSQL = `
		SELECT id, acct_num, amount, posted_on, kind
		FROM transactions
		ORDER BY id;
	`
)

type PostgresEndpoint struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

var (
	_ Repository = (*PostgresEndpoint)(nil)
)

func NewPostgresEndpoint(connStr string, log *zerolog.Logger) (*PostgresEndpoint, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(context.Background()); err != nil {
		return nil, err
	}

	endpt := &PostgresEndpoint{
		pool: pool,
		log:  log,
	}
	return endpt, err
}

func (pg *PostgresEndpoint) Begin() (UnitOfWork, error) {
	return &pgUnitOfWork{pg: pg}, nil
}

type pendingTxn struct {
	acctNum int64
	txn     *Transaction
}

// pgUnitOfWork buffers registered entities and writes them in one database
// transaction at Commit.
type pgUnitOfWork struct {
	pg    *PostgresEndpoint
	accts []*Account
	txns  []pendingTxn
}

func (u *pgUnitOfWork) RegisterAccount(acct *Account) {
	u.accts = append(u.accts, acct)
}

func (u *pgUnitOfWork) RegisterTransaction(acctNum int64, txn *Transaction) {
	u.txns = append(u.txns, pendingTxn{acctNum: acctNum, txn: txn})
}

func (u *pgUnitOfWork) Commit() error {
	if len(u.accts) == 0 && len(u.txns) == 0 {
		return nil
	}
	ctx := context.Background()
	conn, err := u.pg.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, a := range u.accts {
		batch.Queue(pgInsertAcctSQL, a.AcctNum, string(a.Type))
	}
	for _, p := range u.txns {
		batch.Queue(pgInsertTxnSQL,
			p.txn.ID.Int64(),
			p.acctNum,
			p.txn.Amount,
			p.txn.Date.In(time.UTC),
			string(p.txn.Kind),
		)
	}
	n := batch.Len()
	btres := tx.SendBatch(ctx, batch)
	for i := 0; i < n; i++ {
		if _, err = btres.Exec(); err != nil {
			btres.Close()
			if rerr := tx.Rollback(ctx); rerr != nil {
				u.pg.log.Err(rerr).Msg("unit of work rollback fail")
			}
			return err
		}
	}
	if err = btres.Close(); err != nil {
		if rerr := tx.Rollback(ctx); rerr != nil {
			u.pg.log.Err(rerr).Msg("unit of work rollback fail")
		}
		return err
	}

	return tx.Commit(ctx)
}

func (u *pgUnitOfWork) Rollback() error {
	u.accts = nil
	u.txns = nil
	return nil
}

func (pg *PostgresEndpoint) LoadLedger() (*Bank, error) {
	ctx := context.Background()
	conn, err := pg.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	type acctRec struct {
		num int64
		typ string
	}
	var acctRecs []acctRec
	rows, err := conn.Query(ctx, pgSelectAcctsSQL)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var rec acctRec
		if err = rows.Scan(&rec.num, &rec.typ); err != nil {
			rows.Close()
			return nil, err
		}
		acctRecs = append(acctRecs, rec)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(acctRecs) == 0 {
		return nil, nil
	}

	byAcct := make(map[int64][]*Transaction, len(acctRecs))
	rows, err = conn.Query(ctx, pgSelectTxnsSQL)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			id       int64
			acctNum  int64
			amount   decimal.Decimal
			postedOn time.Time
			kind     string
		)
		if err = rows.Scan(&id, &acctNum, &amount, &postedOn, &kind); err != nil {
			rows.Close()
			return nil, err
		}
		byAcct[acctNum] = append(byAcct[acctNum], &Transaction{
			ID:     snowflake.ID(id),
			Amount: amount,
			Date:   civil.DateOf(postedOn),
			Kind:   Kind(kind),
		})
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	bank, err := NewBank()
	if err != nil {
		return nil, err
	}
	for _, rec := range acctRecs {
		bank.restoreAccount(AccountType(rec.typ), rec.num, byAcct[rec.num])
	}
	return bank, nil
}
