package bankbook

// UnitOfWork collects the entities created by one ledger operation and writes
// them to durable storage atomically at Commit. Implementations buffer
// registered entities, so Register calls cannot fail and Rollback only
// discards the buffer.
type UnitOfWork interface {
	RegisterAccount(acct *Account)
	RegisterTransaction(acctNum int64, txn *Transaction)
	Commit() error
	Rollback() error
}

// Repository is the persistence boundary of the ledger core.
type Repository interface {
	Begin() (UnitOfWork, error)
	// LoadLedger retrieves the single persisted ledger, or nil when none
	// has been saved yet.
	LoadLedger() (*Bank, error)
}
