package domain

import "strings"

// Kind is the closed-set semantic category assigned to a file.
type Kind string

// Available kinds.
const (
	KindDocument Kind = "document"
	KindReceipt  Kind = "receipt"
	KindForm     Kind = "form"
	KindUnknown  Kind = "unknown"
)

// kindAliases is the single mapping table from inbound tokens to canonical
// kinds. Keys are lower-cased and trimmed before lookup.
var kindAliases = map[string]Kind{
	"document":      KindDocument,
	"documents":     KindDocument,
	"doc":           KindDocument,
	"docs":          KindDocument,
	"assignment":    KindDocument,
	"assignments":   KindDocument,
	"receipt":       KindReceipt,
	"receipts":      KindReceipt,
	"invoice":       KindReceipt,
	"invoices":      KindReceipt,
	"form":          KindForm,
	"forms":         KindForm,
	"unknown":       KindUnknown,
	"other":         KindUnknown,
	"others":        KindUnknown,
	"uncategorized": KindUnknown,
}

// AllKinds returns every canonical kind in rule-priority order.
func AllKinds() []Kind {
	return []Kind{KindDocument, KindReceipt, KindForm, KindUnknown}
}

// IsValid returns true if the kind is canonical.
func (k Kind) IsValid() bool {
	switch k {
	case KindDocument, KindReceipt, KindForm, KindUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// Description returns a human-readable label.
func (k Kind) Description() string {
	switch k {
	case KindDocument:
		return "Documents"
	case KindReceipt:
		return "Receipts"
	case KindForm:
		return "Forms"
	case KindUnknown:
		return "Uncategorized"
	default:
		return unknownDescription
	}
}

// ParseKind normalizes a caller token into a canonical Kind.
// Case, surrounding whitespace and plurals are ignored.
func ParseKind(token string) (Kind, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return "", false
	}
	if k, ok := kindAliases[t]; ok {
		return k, true
	}
	if strings.HasSuffix(t, "s") {
		if k, ok := kindAliases[strings.TrimSuffix(t, "s")]; ok {
			return k, true
		}
	}
	return "", false
}

// ParseKindFilter normalizes a kind token used in a list or query filter.
// An empty token or "all" means no kind restriction and returns nil.
func ParseKindFilter(token string) (*Kind, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" || t == "all" || t == "*" {
		return nil, nil
	}
	k, ok := ParseKind(t)
	if !ok {
		return nil, &FilterValidationError{Field: "kind", Value: token, Reason: "unknown kind"}
	}
	return &k, nil
}
