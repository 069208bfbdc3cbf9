package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const moneyScale = 2

var moneyCleaner = strings.NewReplacer(
	",", "",
	"%", "",
	"$", "",
	"₹", "",
	"€", "",
	"£", "",
	" ", "",
	"\u00a0", "",
)

// ParseDecimal is the strict form of ToDecimal: missing input yields zero,
// anything else that does not parse is an error.
func ParseDecimal(value any) (decimal.Decimal, error) {
	zero := decimal.Zero.RoundBank(moneyScale)
	if IsMissing(value) {
		return zero, nil
	}

	switch v := value.(type) {
	case decimal.Decimal:
		return v.RoundBank(moneyScale), nil
	case float64:
		if math.IsInf(v, 0) {
			return zero, fmt.Errorf("value %v is not a finite number", v)
		}
		return decimal.NewFromFloat(v).RoundBank(moneyScale), nil
	case float32:
		return ParseDecimal(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)).RoundBank(moneyScale), nil
	case int64:
		return decimal.NewFromInt(v).RoundBank(moneyScale), nil
	}

	raw := strings.TrimSpace(stringify(value))
	cleaned := moneyCleaner.Replace(raw)
	if cleaned == "" {
		return zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return zero, fmt.Errorf("unable to parse %q as a decimal", raw)
	}
	return d.RoundBank(moneyScale), nil
}

// MoneyLimit is the smallest magnitude a NUMERIC(12,2) column rejects.
var MoneyLimit = decimal.New(1, 10)

// FitsMoney reports whether d can be stored as NUMERIC(12,2).
func FitsMoney(d decimal.Decimal) bool {
	return d.Abs().LessThan(MoneyLimit)
}

// ToDecimal converts a monetary cell into a 2-place decimal, returning 0.00
// when the input is missing or unparseable.
func ToDecimal(value any) decimal.Decimal {
	d, err := ParseDecimal(value)
	if err != nil {
		return decimal.Zero.RoundBank(moneyScale)
	}
	return d
}

// ParseFloat is used for rate columns such as percentages.
func ParseFloat(value any) (float64, error) {
	if IsMissing(value) {
		return 0, nil
	}
	switch v := value.(type) {
	case float64:
		if math.IsInf(v, 0) {
			return 0, fmt.Errorf("value %v is not a finite number", v)
		}
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case decimal.Decimal:
		return v.InexactFloat64(), nil
	}

	raw := strings.TrimSpace(stringify(value))
	cleaned := strings.TrimSpace(strings.NewReplacer(",", "", "%", "").Replace(raw))
	if cleaned == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("unable to parse %q as a number", raw)
	}
	return f, nil
}

// ToFloat is ParseFloat with a zero fallback.
func ToFloat(value any) float64 {
	f, err := ParseFloat(value)
	if err != nil {
		return 0
	}
	return f
}

// ToInteger strips thousands separators and a trailing ".0", parses the
// rest as a float and truncates it. Failures yield 0.
func ToInteger(value any) int64 {
	if IsMissing(value) {
		return 0
	}
	switch v := value.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return truncate(v)
	case float32:
		return truncate(float64(v))
	}

	cleaned := strings.ReplaceAll(strings.TrimSpace(stringify(value)), ",", "")
	cleaned = strings.TrimSuffix(cleaned, ".0")
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return truncate(f)
}

func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}
