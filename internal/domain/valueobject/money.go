package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

const DefaultCurrency = "USDC"

// MoneyEpsilon - наименьшая денежная единица, допуск при сверке сумм со шлюзом.
var MoneyEpsilon = decimal.New(1, -2)

// BudgetCeilingFactor - во сколько раз предложенный бюджет может превышать бюджет заказа.
var BudgetCeilingFactor = decimal.RequireFromString("1.2")

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, apperror.Validation("сумма не может быть отрицательной")
	}
	if !amount.Equal(amount.Round(2)) {
		return Money{}, apperror.Validation("сумма не может содержать больше двух знаков после запятой")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// RequirePositive проверяет, что сумма строго больше нуля.
func RequirePositive(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.Validation(fmt.Sprintf("%s должна быть положительной", field))
	}
	return nil
}

// AmountsMatch сравнивает суммы с точностью до наименьшей денежной единицы.
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(MoneyEpsilon)
}

// WithinBudgetCeiling проверяет, что предложение не превышает budget × 1.2.
func WithinBudgetCeiling(proposed, budget decimal.Decimal) bool {
	return proposed.LessThanOrEqual(budget.Mul(BudgetCeilingFactor))
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}
