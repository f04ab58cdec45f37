package bankbook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/semaphore"

	"github.com/arhyth/bankbook"
	"github.com/arhyth/bankbook/mocks"
)

func TestSerialMiddleware(t *testing.T) {
	as := assert.New(t)
	reqrd := require.New(t)
	ctrl := gomock.NewController(t)
	next := mocks.NewMockService(ctrl)

	bal := dec("44.60")
	next.EXPECT().
		Balance(bankbook.AcctReq{AcctNum: 1}).
		Return(&bal, nil)

	svc := bankbook.NewSerialMiddleware()(next)
	got, err := svc.Balance(bankbook.AcctReq{AcctNum: 1})
	reqrd.Nil(err)
	as.True(got.Equal(bal))
}

func TestLimitMiddleware(t *testing.T) {
	t.Run("sheds load when no slot frees up before the deadline", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		next := mocks.NewMockService(ctrl)

		sem := semaphore.NewWeighted(1)
		reqrd.Nil(sem.Acquire(context.Background(), 1))
		limits := &bankbook.ServiceLimits{Balance: sem}
		svc := bankbook.NewLimitMiddleware(limits, 10*time.Millisecond)(next)

		got, err := svc.Balance(bankbook.AcctReq{AcctNum: 1})
		as.Nil(got)
		as.ErrorIs(err, bankbook.ErrOverloaded)

		// slot released, request passes through again
		sem.Release(1)
		bal := dec("50.00")
		next.EXPECT().
			Balance(bankbook.AcctReq{AcctNum: 1}).
			Return(&bal, nil)
		got, err = svc.Balance(bankbook.AcctReq{AcctNum: 1})
		reqrd.Nil(err)
		as.True(got.Equal(bal))
	})

	t.Run("limits operations independently", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		next := mocks.NewMockService(ctrl)

		limits := bankbook.NewServiceLimits(1)
		reqrd.Nil(limits.Balance.Acquire(context.Background(), 1))
		svc := bankbook.NewLimitMiddleware(limits, 10*time.Millisecond)(next)

		next.EXPECT().Accounts().Return([]bankbook.AccountSummary{}, nil)
		_, err := svc.Accounts()
		as.Nil(err)
	})
}

func TestCircuitBreakMiddleware(t *testing.T) {
	settings := gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	}

	t.Run("domain rejections do not trip the breaker", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		next := mocks.NewMockService(ctrl)

		next.EXPECT().
			RecordTransaction(gomock.Any()).
			Return(nil, bankbook.ErrOverdraw{}).
			Times(5)

		svc := bankbook.NewCircuitBreakMiddleware(bankbook.NewServiceBreaker(settings))(next)
		for i := 0; i < 5; i++ {
			_, err := svc.RecordTransaction(bankbook.TxnReq{AcctNum: 1, Amount: dec("-60")})
			as.ErrorAs(err, &bankbook.ErrOverdraw{})
		}
	})

	t.Run("infrastructure failures open the circuit", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		next := mocks.NewMockService(ctrl)

		next.EXPECT().
			RecordTransaction(gomock.Any()).
			Return(nil, errors.New("connection reset"))

		svc := bankbook.NewCircuitBreakMiddleware(bankbook.NewServiceBreaker(settings))(next)
		_, err := svc.RecordTransaction(bankbook.TxnReq{AcctNum: 1, Amount: dec("50")})
		as.NotNil(err)

		_, err = svc.RecordTransaction(bankbook.TxnReq{AcctNum: 1, Amount: dec("50")})
		as.ErrorIs(err, gobreaker.ErrOpenState)
	})

	t.Run("breakers are scoped per operation", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		next := mocks.NewMockService(ctrl)

		next.EXPECT().
			RecordTransaction(gomock.Any()).
			Return(nil, errors.New("connection reset"))
		bal := dec("50.00")
		next.EXPECT().
			Balance(gomock.Any()).
			Return(&bal, nil)

		svc := bankbook.NewCircuitBreakMiddleware(bankbook.NewServiceBreaker(settings))(next)
		_, err := svc.RecordTransaction(bankbook.TxnReq{AcctNum: 1, Amount: dec("50")})
		as.NotNil(err)

		// a tripped RecordTransaction breaker leaves reads unaffected
		got, err := svc.Balance(bankbook.AcctReq{AcctNum: 1})
		as.Nil(err)
		as.True(got.Equal(bal))
	})
}
