package dto

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListParams defines the shared query parameters for cursor-paginated listings.
type ListParams struct {
	Limit     int     `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// LineItemRequest is a line item as supplied by a caller. Line totals are always recomputed.
type LineItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Reference   string          `json:"reference"`
	Quantity    decimal.Decimal `json:"quantity" binding:"decimal_gte0"`
	UnitPrice   decimal.Decimal `json:"unitPrice" binding:"decimal_gte0"`
}

// RegisterValidators adds the decimal validators used by the request DTOs to v.
// decimal.Decimal values are validated through their string form.
func RegisterValidators(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("decimal_gt0", decimalGreaterThanZero); err != nil {
		return err
	}
	return v.RegisterValidation("decimal_gte0", decimalNotNegative)
}

func decimalGreaterThanZero(fl validator.FieldLevel) bool {
	d, ok := decimalField(fl)
	return ok && d.IsPositive()
}

func decimalNotNegative(fl validator.FieldLevel) bool {
	d, ok := decimalField(fl)
	return ok && !d.IsNegative()
}

func decimalField(fl validator.FieldLevel) (decimal.Decimal, bool) {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		d, err := decimal.NewFromString(field.String())
		return d, err == nil
	case reflect.Struct:
		d, ok := field.Interface().(decimal.Decimal)
		return d, ok
	}
	return decimal.Decimal{}, false
}
