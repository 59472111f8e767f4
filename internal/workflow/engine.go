package workflow

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

// Caller-visible outcome messages. Failure is deliberately opaque: the
// internal cause never reaches the caller and is only logged.
const (
	MsgSuccess = "Payment registered successfully"
	MsgFailure = "Something was wrong"
)

// Stage failure causes; they reach the logs, never the caller.
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrExecutorFailure    = errors.New("payment executor failed")
	ErrPersistenceFailure = errors.New("transaction write failed")
)

// UserDirectory looks up a user profile by id. Absence is reported as
// model.ErrUserNotFound.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (model.User, error)
}

// PaymentExecutor charges the validated user. It is treated as
// non-idempotent: the engine calls it at most once per run and never retries.
type PaymentExecutor interface {
	Execute(ctx context.Context, user model.User, amount decimal.Decimal) (model.PaymentReceipt, error)
}

// TransactionLedger durably records a committed payment. A nil return means
// the write was acknowledged as committed, not merely accepted.
type TransactionLedger interface {
	Append(ctx context.Context, txn model.Transaction) error
}

type state int

const (
	stateValidateUser state = iota
	stateExecutePayment
	statePersistTransaction
	stateSucceeded
	stateFailed
)

// run carries the context accumulated across states of a single invocation.
type run struct {
	request model.PaymentRequest
	user    model.User
	receipt model.PaymentReceipt
	cause   error
}

// Engine runs the validate -> execute -> persist -> branch state machine for
// one payment request. It holds no state between invocations; any number of
// Execute calls may run concurrently.
type Engine struct {
	directory   UserDirectory
	executor    PaymentExecutor
	ledger      TransactionLedger
	callTimeout time.Duration
}

func NewEngine(dir UserDirectory, exec PaymentExecutor, led TransactionLedger, callTimeout time.Duration) *Engine {
	return &Engine{
		directory:   dir,
		executor:    exec,
		ledger:      led,
		callTimeout: callTimeout,
	}
}

// Execute drives the request through the state machine and returns the
// terminal result. The only externally observable side effect is the single
// ledger write on the success path.
func (e *Engine) Execute(ctx context.Context, req model.PaymentRequest) model.WorkflowResult {
	r := &run{request: req}

	s := stateValidateUser
	for {
		switch s {
		case stateValidateUser:
			s = e.validateUser(ctx, r)
		case stateExecutePayment:
			s = e.executePayment(ctx, r)
		case statePersistTransaction:
			s = e.persistTransaction(ctx, r)
		case stateSucceeded:
			return model.WorkflowResult{
				Succeeded:     true,
				Message:       MsgSuccess,
				TransactionID: r.receipt.TransactionID,
			}
		case stateFailed:
			// The cause stays in the logs; the caller only ever sees the
			// uniform failure message.
			log.Printf("[Workflow] Request for user %s failed: %v", req.UserID, r.cause)
			return model.WorkflowResult{Message: MsgFailure}
		}
	}
}

// validateUser is the hard gate: no executor call ever happens without a
// present user.
func (e *Engine) validateUser(ctx context.Context, r *run) state {
	if !r.request.Amount.IsPositive() {
		r.cause = ErrInvalidAmount
		return stateFailed
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	user, err := e.directory.Lookup(callCtx, r.request.UserID)
	if err != nil {
		r.cause = err
		return stateFailed
	}

	r.user = user
	return stateExecutePayment
}

func (e *Engine) executePayment(ctx context.Context, r *run) state {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	receipt, err := e.executor.Execute(callCtx, r.user, r.request.Amount)
	if err != nil {
		r.cause = errors.Join(ErrExecutorFailure, err)
		return stateFailed
	}

	r.receipt = receipt
	return statePersistTransaction
}

func (e *Engine) persistTransaction(ctx context.Context, r *run) state {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	txn := model.Transaction{
		TransactionID: r.receipt.TransactionID,
		UserID:        r.user.UserID,
		Amount:        r.receipt.Amount,
	}
	if err := e.ledger.Append(callCtx, txn); err != nil {
		r.cause = errors.Join(ErrPersistenceFailure, err)
		// The payment was already executed externally; this line is the only
		// trace left for manual reconciliation.
		log.Printf("[Workflow] RECONCILE: payment %s for user %s executed but not recorded: %v",
			txn.TransactionID, txn.UserID, err)
		return stateFailed
	}

	return stateSucceeded
}
