package decimalx

import "github.com/shopspring/decimal"

func MustFromString(s string) decimal.Decimal {
	f, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// FromStringOrZero 交易所接口的数值字段可能为空串, 按 0 处理
func FromStringOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	f, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return f
}

// NullFromString 区分字段缺失和值为 0
func NullFromString(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	f, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: f, Valid: true}
}
