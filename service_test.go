package bankbook_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arhyth/bankbook"
	"github.com/arhyth/bankbook/mocks"
)

func TestNewService(t *testing.T) {
	t.Run("returns an error when the ledger cannot be loaded", func(tt *testing.T) {
		as := assert.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		log := zerolog.Nop()
		repo.EXPECT().
			LoadLedger().
			Return(nil, errors.New("connection refused"))
		_, err := bankbook.NewService(repo, &log)
		as.NotNil(err)
	})

	t.Run("initializes a fresh ledger when nothing is persisted", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		log := zerolog.Nop()
		repo.EXPECT().LoadLedger().Return(nil, nil)
		svc, err := bankbook.NewService(repo, &log)
		reqrd.Nil(err)
		sums, err := svc.Accounts()
		reqrd.Nil(err)
		as.Empty(sums)
	})
}

func TestOpenAccount(t *testing.T) {
	t.Run("persists the new account and returns its summary", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		uow := mocks.NewMockUnitOfWork(ctrl)
		log := zerolog.Nop()

		repo.EXPECT().LoadLedger().Return(nil, nil)
		svc, err := bankbook.NewService(repo, &log)
		reqrd.Nil(err)

		repo.EXPECT().Begin().Return(uow, nil)
		uow.EXPECT().RegisterAccount(gomock.AssignableToTypeOf(&bankbook.Account{}))
		uow.EXPECT().Commit().Return(nil)

		sum, err := svc.OpenAccount(bankbook.OpenAccountReq{Type: bankbook.Checking})
		reqrd.Nil(err)
		as.Equal(int64(1), sum.AcctNum)
		as.Equal(bankbook.Checking, sum.Type)
		as.True(sum.Balance.IsZero())
	})

	t.Run("rolls back on an unknown account type", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		uow := mocks.NewMockUnitOfWork(ctrl)
		log := zerolog.Nop()

		repo.EXPECT().LoadLedger().Return(nil, nil)
		svc, err := bankbook.NewService(repo, &log)
		reqrd.Nil(err)

		repo.EXPECT().Begin().Return(uow, nil)
		uow.EXPECT().Rollback().Return(nil)

		sum, err := svc.OpenAccount(bankbook.OpenAccountReq{Type: bankbook.AccountType("bitcoin")})
		as.Nil(sum)
		as.ErrorAs(err, &bankbook.ErrBadRequest{})
	})
}

func TestRecordTransaction(t *testing.T) {
	t.Run("admits a transaction and returns the new balance", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		uow := mocks.NewMockUnitOfWork(ctrl)
		log := zerolog.Nop()

		repo.EXPECT().LoadLedger().Return(nil, nil)
		svc, err := bankbook.NewService(repo, &log)
		reqrd.Nil(err)

		repo.EXPECT().Begin().Return(uow, nil).Times(2)
		uow.EXPECT().RegisterAccount(gomock.Any())
		uow.EXPECT().RegisterTransaction(int64(1), gomock.AssignableToTypeOf(&bankbook.Transaction{}))
		uow.EXPECT().Commit().Return(nil).Times(2)

		_, err = svc.OpenAccount(bankbook.OpenAccountReq{Type: bankbook.Checking})
		reqrd.Nil(err)

		res, err := svc.RecordTransaction(bankbook.TxnReq{
			AcctNum: 1,
			Amount:  dec("50.00"),
			Date:    date(2024, time.January, 5),
		})
		reqrd.Nil(err)
		as.True(res.Balance.Equal(dec("50.00")))
		as.Equal(bankbook.KindTransaction, res.Transaction.Kind)
	})

	t.Run("returns ErrNotFound for a missing account", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		log := zerolog.Nop()

		repo.EXPECT().LoadLedger().Return(nil, nil)
		svc, err := bankbook.NewService(repo, &log)
		reqrd.Nil(err)

		res, err := svc.RecordTransaction(bankbook.TxnReq{
			AcctNum: 7,
			Amount:  dec("50.00"),
			Date:    date(2024, time.January, 5),
		})
		as.Nil(res)
		as.ErrorAs(err, &bankbook.ErrNotFound{})
	})

	t.Run("rolls back a rejected admission and leaves the balance unchanged", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		uow := mocks.NewMockUnitOfWork(ctrl)
		log := zerolog.Nop()

		repo.EXPECT().LoadLedger().Return(nil, nil)
		svc, err := bankbook.NewService(repo, &log)
		reqrd.Nil(err)

		repo.EXPECT().Begin().Return(uow, nil).Times(3)
		uow.EXPECT().RegisterAccount(gomock.Any())
		uow.EXPECT().RegisterTransaction(gomock.Any(), gomock.Any())
		uow.EXPECT().Commit().Return(nil).Times(2)
		uow.EXPECT().Rollback().Return(nil)

		_, err = svc.OpenAccount(bankbook.OpenAccountReq{Type: bankbook.Checking})
		reqrd.Nil(err)
		_, err = svc.RecordTransaction(bankbook.TxnReq{
			AcctNum: 1,
			Amount:  dec("50.00"),
			Date:    date(2024, time.January, 5),
		})
		reqrd.Nil(err)

		res, err := svc.RecordTransaction(bankbook.TxnReq{
			AcctNum: 1,
			Amount:  dec("-60.00"),
			Date:    date(2024, time.January, 6),
		})
		as.Nil(res)
		as.ErrorAs(err, &bankbook.ErrOverdraw{})

		bal, err := svc.Balance(bankbook.AcctReq{AcctNum: 1})
		reqrd.Nil(err)
		as.True(bal.Equal(dec("50.00")))
	})
}

func TestApplyInterestAndFeesService(t *testing.T) {
	t.Run("accrues and returns the post-accrual balance", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		uow := mocks.NewMockUnitOfWork(ctrl)
		log := zerolog.Nop()

		repo.EXPECT().LoadLedger().Return(nil, nil)
		svc, err := bankbook.NewService(repo, &log)
		reqrd.Nil(err)

		repo.EXPECT().Begin().Return(uow, nil).Times(3)
		uow.EXPECT().RegisterAccount(gomock.Any())
		// normal transaction, interest, and low balance fee
		uow.EXPECT().RegisterTransaction(gomock.Any(), gomock.Any()).Times(3)
		uow.EXPECT().Commit().Return(nil).Times(3)

		_, err = svc.OpenAccount(bankbook.OpenAccountReq{Type: bankbook.Checking})
		reqrd.Nil(err)
		_, err = svc.RecordTransaction(bankbook.TxnReq{
			AcctNum: 1,
			Amount:  dec("50.00"),
			Date:    date(2024, time.February, 15),
		})
		reqrd.Nil(err)

		bal, err := svc.ApplyInterestAndFees(bankbook.AcctReq{AcctNum: 1})
		reqrd.Nil(err)
		as.True(bal.Equal(dec("44.60")), "balance %s", bal)
	})
}

func TestStatement(t *testing.T) {
	t.Run("writes a PDF statement", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		uow := mocks.NewMockUnitOfWork(ctrl)
		log := zerolog.Nop()

		repo.EXPECT().LoadLedger().Return(nil, nil)
		svc, err := bankbook.NewService(repo, &log)
		reqrd.Nil(err)

		repo.EXPECT().Begin().Return(uow, nil).Times(2)
		uow.EXPECT().RegisterAccount(gomock.Any())
		uow.EXPECT().RegisterTransaction(gomock.Any(), gomock.Any())
		uow.EXPECT().Commit().Return(nil).Times(2)

		_, err = svc.OpenAccount(bankbook.OpenAccountReq{Type: bankbook.Savings})
		reqrd.Nil(err)
		_, err = svc.RecordTransaction(bankbook.TxnReq{
			AcctNum: 1,
			Amount:  dec("100.00"),
			Date:    date(2024, time.January, 5),
		})
		reqrd.Nil(err)

		var buf bytes.Buffer
		reqrd.Nil(svc.Statement(&buf, bankbook.AcctReq{AcctNum: 1}))
		as.True(bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "statement should be a PDF document")
	})

	t.Run("returns ErrNotFound for a missing account", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		ctrl := gomock.NewController(tt)
		repo := mocks.NewMockRepository(ctrl)
		log := zerolog.Nop()

		repo.EXPECT().LoadLedger().Return(nil, nil)
		svc, err := bankbook.NewService(repo, &log)
		reqrd.Nil(err)

		var buf bytes.Buffer
		err = svc.Statement(&buf, bankbook.AcctReq{AcctNum: 3})
		as.ErrorAs(err, &bankbook.ErrNotFound{})
	})
}
