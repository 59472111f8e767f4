package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

// Common test errors
var (
	errFakeLookup   = errors.New("fake lookup error")
	errFakeExecutor = errors.New("fake executor error")
	errFakeLedger   = errors.New("fake ledger error")
)

// fakeDirectory implements UserDirectory for testing
type fakeDirectory struct {
	LookupFunc func(ctx context.Context, userID string) (model.User, error)
	CallCount  int
	LastUserID string
	Users      map[string]model.User
}

func newFakeDirectory(users ...model.User) *fakeDirectory {
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.UserID] = u
	}
	return &fakeDirectory{Users: byID}
}

func (f *fakeDirectory) Lookup(ctx context.Context, userID string) (model.User, error) {
	f.CallCount++
	f.LastUserID = userID

	if f.LookupFunc != nil {
		return f.LookupFunc(ctx, userID)
	}

	u, ok := f.Users[userID]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

// fakeExecutor implements PaymentExecutor for testing
type fakeExecutor struct {
	ExecuteFunc func(ctx context.Context, user model.User, amount decimal.Decimal) (model.PaymentReceipt, error)
	CallCount   int
	LastUser    model.User
	LastAmount  decimal.Decimal
}

func (f *fakeExecutor) Execute(ctx context.Context, user model.User, amount decimal.Decimal) (model.PaymentReceipt, error) {
	f.CallCount++
	f.LastUser = user
	f.LastAmount = amount

	if f.ExecuteFunc != nil {
		return f.ExecuteFunc(ctx, user, amount)
	}

	return model.PaymentReceipt{
		Message:       MsgSuccess,
		TransactionID: uuid.New().String(),
		Amount:        amount.String(),
	}, nil
}

// fakeLedger implements TransactionLedger for testing
type fakeLedger struct {
	AppendFunc func(ctx context.Context, txn model.Transaction) error
	CallCount  int
	Appended   []model.Transaction
}

func (f *fakeLedger) Append(ctx context.Context, txn model.Transaction) error {
	f.CallCount++

	if f.AppendFunc != nil {
		if err := f.AppendFunc(ctx, txn); err != nil {
			return err
		}
	}

	f.Appended = append(f.Appended, txn)
	return nil
}
