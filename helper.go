package bankbook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
)

// LocalHelper prepares a local Postgres database for development and
// integration testing: it applies the schema in testdata/init_db.sql and
// returns a teardown that drops it again.
type LocalHelper struct {
	Conn *pgx.Conn
}

func NewLocalHelper(connStr string) (*LocalHelper, error) {
	conn, err := pgx.Connect(context.Background(), connStr)
	if err != nil {
		return nil, err
	}
	return &LocalHelper{Conn: conn}, nil
}

func (lh *LocalHelper) InitDB() (func(), error) {
	initSQLpath := filepath.Join("testdata", "init_db.sql")
	bits, err := os.ReadFile(initSQLpath)
	if err != nil {
		return nil, err
	}
	if _, err = lh.Conn.Exec(context.Background(), string(bits)); err != nil {
		return nil, err
	}
	return lh.teardownDB(), err
}

func (lh *LocalHelper) teardownDB() func() {
	return func() {
		defer lh.Conn.Close(context.Background())

		tearSQLpath := filepath.Join("testdata", "teardown_db.sql")
		bits, err := os.ReadFile(tearSQLpath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "DB cleanup read teardown sql: %s", err.Error())
			return
		}
		if _, err = lh.Conn.Exec(context.Background(), string(bits)); err != nil {
			fmt.Fprintf(os.Stderr, "DB cleanup exec teardown sql: %s", err.Error())
			return
		}
	}
}
