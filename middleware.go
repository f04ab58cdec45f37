package bankbook

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
)

type Middleware func(Service) Service

//
// Serialization middleware
//

// serialMiddleware funnels every operation through one mutex. The ledger core
// assumes a single logical actor: its check-then-mutate admission sequence is
// not safe under concurrent callers, so server deployments serialize at this
// boundary instead of locking inside the core.
type serialMiddleware struct {
	mu   sync.Mutex
	next Service
}

var (
	_ Service = (*serialMiddleware)(nil)
)

func NewSerialMiddleware() Middleware {
	return func(next Service) Service {
		return &serialMiddleware{next: next}
	}
}

func (s *serialMiddleware) OpenAccount(req OpenAccountReq) (*AccountSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.OpenAccount(req)
}

func (s *serialMiddleware) RecordTransaction(req TxnReq) (*TxnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.RecordTransaction(req)
}

func (s *serialMiddleware) ApplyInterestAndFees(req AcctReq) (*decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.ApplyInterestAndFees(req)
}

func (s *serialMiddleware) Balance(req AcctReq) (*decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Balance(req)
}

func (s *serialMiddleware) Accounts() ([]AccountSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Accounts()
}

func (s *serialMiddleware) Transactions(req AcctReq) ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Transactions(req)
}

func (s *serialMiddleware) Statement(w io.Writer, req AcctReq) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Statement(w, req)
}

//
// Rate limiting middlewares
//

// limitMiddleware bounds the number of in-flight requests per operation with
// weighted semaphores, shedding load with ErrOverloaded when a slot cannot be
// acquired within the timeout.
type limitMiddleware struct {
	next    Service
	limits  *ServiceLimits
	timeout time.Duration
}

var (
	_ Service = (*limitMiddleware)(nil)
)

type ServiceLimits struct {
	OpenAccount          *semaphore.Weighted
	RecordTransaction    *semaphore.Weighted
	ApplyInterestAndFees *semaphore.Weighted
	Balance              *semaphore.Weighted
	Accounts             *semaphore.Weighted
	Transactions         *semaphore.Weighted
	Statement            *semaphore.Weighted
}

// NewServiceLimits allows n in-flight requests per operation.
func NewServiceLimits(n int64) *ServiceLimits {
	return &ServiceLimits{
		OpenAccount:          semaphore.NewWeighted(n),
		RecordTransaction:    semaphore.NewWeighted(n),
		ApplyInterestAndFees: semaphore.NewWeighted(n),
		Balance:              semaphore.NewWeighted(n),
		Accounts:             semaphore.NewWeighted(n),
		Transactions:         semaphore.NewWeighted(n),
		Statement:            semaphore.NewWeighted(n),
	}
}

func NewLimitMiddleware(limits *ServiceLimits, timeout time.Duration) Middleware {
	return func(next Service) Service {
		return &limitMiddleware{
			next:    next,
			limits:  limits,
			timeout: timeout,
		}
	}
}

func (l *limitMiddleware) acquire(sem *semaphore.Weighted) (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, ErrOverloaded
	}
	return func() { sem.Release(1) }, nil
}

func (l *limitMiddleware) OpenAccount(req OpenAccountReq) (*AccountSummary, error) {
	release, err := l.acquire(l.limits.OpenAccount)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.OpenAccount(req)
}

func (l *limitMiddleware) RecordTransaction(req TxnReq) (*TxnResult, error) {
	release, err := l.acquire(l.limits.RecordTransaction)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.RecordTransaction(req)
}

func (l *limitMiddleware) ApplyInterestAndFees(req AcctReq) (*decimal.Decimal, error) {
	release, err := l.acquire(l.limits.ApplyInterestAndFees)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.ApplyInterestAndFees(req)
}

func (l *limitMiddleware) Balance(req AcctReq) (*decimal.Decimal, error) {
	release, err := l.acquire(l.limits.Balance)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Balance(req)
}

func (l *limitMiddleware) Accounts() ([]AccountSummary, error) {
	release, err := l.acquire(l.limits.Accounts)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Accounts()
}

func (l *limitMiddleware) Transactions(req AcctReq) ([]*Transaction, error) {
	release, err := l.acquire(l.limits.Transactions)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Transactions(req)
}

func (l *limitMiddleware) Statement(w io.Writer, req AcctReq) error {
	release, err := l.acquire(l.limits.Statement)
	if err != nil {
		return err
	}
	defer release()
	return l.next.Statement(w, req)
}

type ServiceBreaker struct {
	OpenAccount          *gobreaker.TwoStepCircuitBreaker[*AccountSummary]
	RecordTransaction    *gobreaker.TwoStepCircuitBreaker[*TxnResult]
	ApplyInterestAndFees *gobreaker.TwoStepCircuitBreaker[*decimal.Decimal]
	Balance              *gobreaker.TwoStepCircuitBreaker[*decimal.Decimal]
	Accounts             *gobreaker.TwoStepCircuitBreaker[[]AccountSummary]
	Transactions         *gobreaker.TwoStepCircuitBreaker[[]*Transaction]
	Statement            *gobreaker.TwoStepCircuitBreaker[interface{}]
}

// NewServiceBreaker builds one breaker per operation from shared settings.
// The settings' Name is suffixed with the operation name.
func NewServiceBreaker(st gobreaker.Settings) *ServiceBreaker {
	named := func(op string) gobreaker.Settings {
		s := st
		s.Name = st.Name + "." + op
		return s
	}
	return &ServiceBreaker{
		OpenAccount:          gobreaker.NewTwoStepCircuitBreaker[*AccountSummary](named("OpenAccount")),
		RecordTransaction:    gobreaker.NewTwoStepCircuitBreaker[*TxnResult](named("RecordTransaction")),
		ApplyInterestAndFees: gobreaker.NewTwoStepCircuitBreaker[*decimal.Decimal](named("ApplyInterestAndFees")),
		Balance:              gobreaker.NewTwoStepCircuitBreaker[*decimal.Decimal](named("Balance")),
		Accounts:             gobreaker.NewTwoStepCircuitBreaker[[]AccountSummary](named("Accounts")),
		Transactions:         gobreaker.NewTwoStepCircuitBreaker[[]*Transaction](named("Transactions")),
		Statement:            gobreaker.NewTwoStepCircuitBreaker[interface{}](named("Statement")),
	}
}

// circuitBreakMiddleware trips per-operation circuit breakers on
// infrastructure failures. Domain rejections (overdraw, sequence, limit, and
// the like) are healthy responses and count as successes.
type circuitBreakMiddleware struct {
	next  Service
	brkrs *ServiceBreaker
}

var (
	_ Service = (*circuitBreakMiddleware)(nil)
)

func NewCircuitBreakMiddleware(brkrs *ServiceBreaker) Middleware {
	return func(next Service) Service {
		return &circuitBreakMiddleware{
			next:  next,
			brkrs: brkrs,
		}
	}
}

func healthy(err error) bool {
	return err == nil || isDomainErr(err)
}

func (c *circuitBreakMiddleware) OpenAccount(req OpenAccountReq) (*AccountSummary, error) {
	done, err := c.brkrs.OpenAccount.Allow()
	if err != nil {
		return nil, err
	}
	sum, err := c.next.OpenAccount(req)
	done(healthy(err))
	return sum, err
}

func (c *circuitBreakMiddleware) RecordTransaction(req TxnReq) (*TxnResult, error) {
	done, err := c.brkrs.RecordTransaction.Allow()
	if err != nil {
		return nil, err
	}
	res, err := c.next.RecordTransaction(req)
	done(healthy(err))
	return res, err
}

func (c *circuitBreakMiddleware) ApplyInterestAndFees(req AcctReq) (*decimal.Decimal, error) {
	done, err := c.brkrs.ApplyInterestAndFees.Allow()
	if err != nil {
		return nil, err
	}
	bal, err := c.next.ApplyInterestAndFees(req)
	done(healthy(err))
	return bal, err
}

func (c *circuitBreakMiddleware) Balance(req AcctReq) (*decimal.Decimal, error) {
	done, err := c.brkrs.Balance.Allow()
	if err != nil {
		return nil, err
	}
	bal, err := c.next.Balance(req)
	done(healthy(err))
	return bal, err
}

func (c *circuitBreakMiddleware) Accounts() ([]AccountSummary, error) {
	done, err := c.brkrs.Accounts.Allow()
	if err != nil {
		return nil, err
	}
	sums, err := c.next.Accounts()
	done(healthy(err))
	return sums, err
}

func (c *circuitBreakMiddleware) Transactions(req AcctReq) ([]*Transaction, error) {
	done, err := c.brkrs.Transactions.Allow()
	if err != nil {
		return nil, err
	}
	txns, err := c.next.Transactions(req)
	done(healthy(err))
	return txns, err
}

func (c *circuitBreakMiddleware) Statement(w io.Writer, req AcctReq) error {
	done, err := c.brkrs.Statement.Allow()
	if err != nil {
		return err
	}
	err = c.next.Statement(w, req)
	done(healthy(err))
	return err
}
