package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseMoney(t *testing.T) {
	cases := map[string]Money{
		"500":     50000,
		"500.5":   50050,
		"500.05":  50005,
		"0.99":    99,
		".5":      50,
		"-12.30":  -1230,
		"1000000": 100000000,
	}
	for in, want := range cases {
		got, err := ParseMoney(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMoney("1.234")
	assert.ErrorIs(t, err, ErrTooPrecise)
	for _, in := range []string{"abc", "1.-5", "1.+5", "--5", "+5", "1e3", "184467440737095517", "92233720368547758"} {
		_, err = ParseMoney(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
	top, err := ParseMoney("92233720368547757")
	require.NoError(t, err)
	assert.True(t, top.IsPositive())
}

func TestMoneyJSON(t *testing.T) {
	var payload struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 1250.5}`), &payload))
	assert.Equal(t, Money(125050), payload.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "300"}`), &payload))
	assert.Equal(t, FromTaka(300), payload.Amount)

	assert.Error(t, json.Unmarshal([]byte(`{"amount": 184467440737095517}`), &payload))

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 300.00}`, string(out))
	assert.Equal(t, "-0.05", Money(-5).String())
}

func TestLoanTotalPaidLaw(t *testing.T) {
	repayable := FromTaka(12000)
	var payments []Money
	var running Money
	for _, p := range []Money{FromTaka(1000), FromTaka(2500), 1, FromTaka(999)} {
		payments = append(payments, p)
		running += p
		s := SummarizeLoan(repayable, payments)
		assert.Equal(t, running, s.TotalPaid)
		assert.Equal(t, len(payments), s.Count)
		assert.Equal(t, repayable-running, s.Outstanding)
	}
	over := SummarizeLoan(FromTaka(10), []Money{FromTaka(20)})
	assert.Equal(t, Money(0), over.Outstanding)
}

func TestEMI(t *testing.T) {
	// 12% yearly over 12 months on 50,000 taka.
	emi := EMI(FromTaka(50000), 12, 12)
	assert.InDelta(t, 444244, int64(emi), 1)
	assert.Equal(t, FromTaka(1000), EMI(FromTaka(12000), 0, 12))
	assert.Equal(t, Money(0), EMI(FromTaka(100), 10, 0))
	assert.Equal(t, emi*12, Repayable(emi, 12))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 50.0, Progress(FromTaka(500), FromTaka(1000)))
	assert.Equal(t, 100.0, Progress(FromTaka(1500), FromTaka(1000)))
	assert.Equal(t, 0.0, Progress(FromTaka(500), 0))
}

func TestApprovedTotalExcludesPending(t *testing.T) {
	total := ApprovedTotal([]Expense{
		{Amount: FromTaka(100), Approved: true},
		{Amount: FromTaka(900), Approved: false},
		{Amount: FromTaka(50), Approved: true},
	})
	assert.Equal(t, FromTaka(150), total)
}

func TestAssessmentScore(t *testing.T) {
	pct := Percentage(ptr(45), ptr(60))
	require.NotNil(t, pct)
	assert.Equal(t, 75.0, *pct)
	assert.Nil(t, Percentage(nil, ptr(60)))
	assert.Nil(t, Percentage(ptr(1), ptr(0)))

	passed := Passed(ptr(40), ptr(40))
	require.NotNil(t, passed)
	assert.True(t, *passed)
	assert.False(t, *Passed(ptr(39), ptr(40)))
	assert.Nil(t, Passed(ptr(39), nil))
}

func TestProfitMargin(t *testing.T) {
	m := ProfitMargin(FromTaka(1000), FromTaka(600))
	require.NotNil(t, m)
	assert.Equal(t, 40.0, *m)
	assert.Nil(t, ProfitMargin(0, FromTaka(10)))
}

func TestReconcile(t *testing.T) {
	d := Reconcile(FromTaka(700), []Money{FromTaka(500), FromTaka(200)})
	assert.True(t, d.Consistent())
	d = Reconcile(FromTaka(900), []Money{FromTaka(500)})
	assert.Equal(t, FromTaka(400), d.Difference)
	assert.False(t, d.Consistent())
}
