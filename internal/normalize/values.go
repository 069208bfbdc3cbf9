// Package normalize converts loosely typed spreadsheet cells into canonical
// Go values. Every conversion has a fallback; nothing here returns a panic
// or touches I/O.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var missingTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
}

var emptyTextTokens = map[string]struct{}{
	"nan":  {},
	"null": {},
	"none": {},
}

// IsMissing reports whether a raw cell carries no usable value.
func IsMissing(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		_, ok := missingTokens[strings.ToLower(strings.TrimSpace(v))]
		return ok
	case *string:
		return v == nil || IsMissing(*v)
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	}
	return false
}

// ToText trims the value and blanks out placeholder tokens.
func ToText(value any) string {
	if IsMissing(value) {
		return ""
	}
	text := strings.TrimSpace(stringify(value))
	if _, ok := emptyTextTokens[strings.ToLower(text)]; ok {
		return ""
	}
	return text
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case decimal.Decimal:
		return v.String()
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
