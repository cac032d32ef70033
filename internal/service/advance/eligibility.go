package advance

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/advance"
	"github.com/shopspring/decimal"
)

// MaxAdvanceRatio is the share of monthly salary an employee may draw in advance.
var MaxAdvanceRatio = decimal.RequireFromString("0.25")

// MaxAdvanceLimit returns the largest advance allowed for monthlySalary.
func MaxAdvanceLimit(monthlySalary decimal.Decimal) decimal.Decimal {
	if monthlySalary.IsNegative() {
		return decimal.Zero
	}
	return monthlySalary.Mul(MaxAdvanceRatio).Round(2)
}

// AvailableCredit is the limit minus what the employee already owes, floored at zero.
func AvailableCredit(monthlySalary, outstanding decimal.Decimal) decimal.Decimal {
	available := MaxAdvanceLimit(monthlySalary).Sub(outstanding)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// CheckEligibility verifies amount against the employee's available credit.
func CheckEligibility(amount, monthlySalary, outstanding decimal.Decimal) error {
	if !amount.IsPositive() {
		return advance.ErrInvalidAmount
	}
	available := AvailableCredit(monthlySalary, outstanding)
	if amount.GreaterThan(available) {
		return fmt.Errorf("%w: requested %s, available %s", advance.ErrExceedsEligibility, amount.StringFixed(2), available.StringFixed(2))
	}
	return nil
}
