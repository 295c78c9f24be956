package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decimalProbe struct {
	Amount   decimal.Decimal  `validate:"decimal_gt0"`
	Quantity decimal.Decimal  `validate:"decimal_gte0"`
	Paid     *decimal.Decimal `validate:"omitempty,decimal_gte0"`
}

func TestRegisterValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidators(v))

	ok := decimalProbe{Amount: decimal.NewFromInt(1), Quantity: decimal.Zero}
	assert.NoError(t, v.Struct(ok))

	zeroAmount := decimalProbe{Amount: decimal.Zero}
	assert.Error(t, v.Struct(zeroAmount))

	negQty := decimalProbe{Amount: decimal.NewFromInt(1), Quantity: decimal.NewFromInt(-1)}
	assert.Error(t, v.Struct(negQty))

	neg := decimal.NewFromInt(-5)
	negPaid := decimalProbe{Amount: decimal.NewFromInt(1), Paid: &neg}
	assert.Error(t, v.Struct(negPaid))
}
