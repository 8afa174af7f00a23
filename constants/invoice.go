package constants

import "strings"

// UnknownInvoice is the sentinel carried while no real invoice number has
// been seen yet in the current document ("sin número").
const UnknownInvoice = "S/N"

// PlaceholderTokens are values the model emits when a page has no usable
// invoice number. Matching is case-insensitive substring, not exact: the
// model phrases these freely ("NULL", "Continuacion...", "pendiente de
// asignar").
var PlaceholderTokens = []string{"none", "null", "continuacion", "pendiente"}

// CopyTokens mark a page as a duplicate/copy document. Same substring rule.
var CopyTokens = []string{"copia", "copy"}

// IsPlaceholderInvoice reports whether a trimmed invoice number should be
// treated as unresolved: empty, too short, or containing a placeholder token.
func IsPlaceholderInvoice(number string) bool {
	n := strings.TrimSpace(number)
	if len(n) < 3 {
		return true
	}
	low := strings.ToLower(n)
	for _, tok := range PlaceholderTokens {
		if strings.Contains(low, tok) {
			return true
		}
	}
	return false
}

// IsCopyDocument reports whether a document-kind label marks the page as a
// copy to be discarded.
func IsCopyDocument(kind string) bool {
	low := strings.ToLower(kind)
	for _, tok := range CopyTokens {
		if strings.Contains(low, tok) {
			return true
		}
	}
	return false
}
