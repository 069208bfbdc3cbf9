package normalize

import "strings"

var invalidNames = map[string]struct{}{
	"":     {},
	"-":    {},
	"0":    {},
	"nan":  {},
	"none": {},
	"null": {},
}

const punctuationOnly = "- _.,#@!$%^&*()"

// IsValidName rejects blanks, placeholder tokens and names made purely of
// punctuation.
func IsValidName(value any) bool {
	if IsMissing(value) {
		return false
	}
	name := strings.TrimSpace(stringify(value))
	if _, ok := invalidNames[strings.ToLower(name)]; ok {
		return false
	}
	for _, r := range name {
		if !strings.ContainsRune(punctuationOnly, r) {
			return true
		}
	}
	return false
}
