package ledger

import "math"

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// LoanSummary is computed from a loan's payment records on every read.
type LoanSummary struct {
	TotalPaid   Money `json:"total_paid"`
	Count       int   `json:"payment_count"`
	Outstanding Money `json:"outstanding_balance"`
}

// SummarizeLoan derives the totals from the repayable amount and payments.
// Outstanding never drops below zero.
func SummarizeLoan(repayable Money, payments []Money) LoanSummary {
	paid := Sum(payments...)
	outstanding := repayable - paid
	if outstanding < 0 {
		outstanding = 0
	}
	return LoanSummary{TotalPaid: paid, Count: len(payments), Outstanding: outstanding}
}

// EMI is the fixed monthly instalment of an amortised loan, rounded to the
// nearest poisha. A zero rate splits the principal evenly.
func EMI(principal Money, annualRatePercent float64, months int) Money {
	if months <= 0 || principal <= 0 {
		return 0
	}
	r := annualRatePercent / 12 / 100
	p := float64(principal)
	if r == 0 {
		return Money(math.Round(p / float64(months)))
	}
	f := math.Pow(1+r, float64(months))
	return Money(math.Round(p * r * f / (f - 1)))
}

// Repayable is the total owed over the life of the loan.
func Repayable(emi Money, months int) Money {
	return emi * Money(months)
}

// Progress is raised/target as a percentage capped at 100. Zero without a
// target.
func Progress(raised, target Money) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(float64(raised)/float64(target)*100, 100)
}

// Expense is the part of a project expense relevant to totals.
type Expense struct {
	Amount   Money
	Approved bool
}

// ApprovedTotal sums approved expenses only.
func ApprovedTotal(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		if e.Approved {
			total += e.Amount
		}
	}
	return total
}

// Percentage is obtained/total*100, nil when either is missing or total is 0.
func Percentage(obtained, total *int) *float64 {
	if obtained == nil || total == nil || *total == 0 {
		return nil
	}
	v := float64(*obtained) / float64(*total) * 100
	return &v
}

// Passed is obtained >= passing, nil when either is missing.
func Passed(obtained, passing *int) *bool {
	if obtained == nil || passing == nil {
		return nil
	}
	v := *obtained >= *passing
	return &v
}

// ProfitMargin is (revenue-cost)/revenue*100, nil without positive revenue.
func ProfitMargin(revenue, cost Money) *float64 {
	if revenue <= 0 {
		return nil
	}
	v := float64(revenue-cost) / float64(revenue) * 100
	return &v
}

// Drift compares an accumulator with the sum of its child records.
type Drift struct {
	Recorded   Money `json:"recorded"`
	Computed   Money `json:"computed"`
	Difference Money `json:"difference"`
}

// Consistent reports a zero difference.
func (d Drift) Consistent() bool { return d.Difference == 0 }

// Reconcile builds a Drift from the stored total and the child amounts.
func Reconcile(recorded Money, children []Money) Drift {
	computed := Sum(children...)
	return Drift{Recorded: recorded, Computed: computed, Difference: recorded - computed}
}
