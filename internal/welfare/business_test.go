package welfare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
)

func addLoanProduct(store *fakeStore) int64 {
	id := store.id()
	store.products[id] = LoanProduct{
		ID:           id,
		Name:         "Micro Business",
		MinAmount:    ledger.FromTaka(5000),
		MaxAmount:    ledger.FromTaka(50000),
		InterestRate: 12,
		TenureMonths: 12,
		IsActive:     true,
	}
	return id
}

func TestApplyForLoanChecksLimits(t *testing.T) {
	svc, store, _ := newServices(t)
	ctx := context.Background()
	productID := addLoanProduct(store)

	_, err := svc.Business.ApplyForLoan(ctx, user("borrower"), LoanApplicationInput{
		LoanProductID:   productID,
		RequestedAmount: ledger.FromTaka(60000),
		Purpose:         "Tailoring shop",
	})
	requireKind(t, err, apperr.ErrValidation, "")

	app, err := svc.Business.ApplyForLoan(ctx, user("borrower"), LoanApplicationInput{
		LoanProductID:   productID,
		RequestedAmount: ledger.FromTaka(20000),
		Purpose:         "Tailoring shop",
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, app.Status)
}

func TestLoanLifecycle(t *testing.T) {
	svc, store, _ := newServices(t)
	ctx := context.Background()
	productID := addLoanProduct(store)
	borrower := user("borrower")
	officer := manager("officer", auth.PermLoanManagement)

	app, err := svc.Business.ApplyForLoan(ctx, borrower, LoanApplicationInput{
		LoanProductID:   productID,
		RequestedAmount: ledger.FromTaka(12000),
		Purpose:         "Poultry",
	})
	require.NoError(t, err)

	_, err = svc.Business.ReviewLoanApplication(ctx, borrower, app.ID, Review{Status: lifecycle.StatusApproved})
	requireKind(t, err, apperr.ErrForbidden, "")

	_, err = svc.Business.Disburse(ctx, officer, app.ID)
	require.Error(t, err, "pending applications cannot be disbursed")

	_, err = svc.Business.ReviewLoanApplication(ctx, officer, app.ID, Review{Status: lifecycle.StatusApproved, Notes: "ok"})
	require.NoError(t, err)

	loan, err := svc.Business.Disburse(ctx, officer, app.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, loan.Status)
	assert.Equal(t, today(), loan.DisbursementDate)
	assert.Equal(t, today().AddMonths(12), loan.MaturityDate)
	assert.Equal(t, loan.Repayable(), loan.Outstanding)
	assert.Equal(t, lifecycle.StatusDisbursed, store.loanApps[app.ID].Status)

	_, err = svc.Business.RecordPayment(ctx, borrower, loan.ID, LoanPayment{AmountPaid: loan.Repayable() + 1})
	requireKind(t, err, apperr.ErrValidation, "")

	after, err := svc.Business.RecordPayment(ctx, borrower, loan.ID, LoanPayment{AmountPaid: loan.MonthlyEMI})
	require.NoError(t, err)
	assert.Equal(t, 1, after.Count)
	assert.Equal(t, loan.MonthlyEMI, after.TotalPaid)
	assert.Equal(t, lifecycle.StatusActive, after.Status)

	closed, err := svc.Business.RecordPayment(ctx, officer, loan.ID, LoanPayment{AmountPaid: after.Outstanding})
	require.NoError(t, err)
	assert.True(t, closed.Outstanding.IsZero())
	assert.Equal(t, lifecycle.StatusClosed, closed.Status)

	_, err = svc.Business.RecordPayment(ctx, borrower, loan.ID, LoanPayment{AmountPaid: 1})
	requireKind(t, err, apperr.ErrConflict, "Loan is closed")
}

func TestRejectedLoanStaysRejected(t *testing.T) {
	svc, store, _ := newServices(t)
	ctx := context.Background()
	productID := addLoanProduct(store)
	officer := manager("officer", auth.PermLoanManagement)

	app, err := svc.Business.ApplyForLoan(ctx, user("borrower"), LoanApplicationInput{
		LoanProductID:   productID,
		RequestedAmount: ledger.FromTaka(6000),
		Purpose:         "Seeds",
	})
	require.NoError(t, err)
	_, err = svc.Business.ReviewLoanApplication(ctx, officer, app.ID, Review{Status: lifecycle.StatusRejected})
	require.NoError(t, err)
	_, err = svc.Business.ReviewLoanApplication(ctx, officer, app.ID, Review{Status: lifecycle.StatusApproved})
	require.Error(t, err)
}

func TestPaymentByStrangerForbidden(t *testing.T) {
	svc, store, _ := newServices(t)
	id := store.id()
	store.loans[id] = Loan{ID: id, BorrowerID: "borrower", MonthlyEMI: 100, TenureMonths: 2, Status: lifecycle.StatusActive}
	_, err := svc.Business.RecordPayment(context.Background(), user("stranger"), id, LoanPayment{AmountPaid: 50})
	requireKind(t, err, apperr.ErrForbidden, "Access denied")
}
