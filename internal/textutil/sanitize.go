package textutil

import "strings"

// fallbackToken names a corpus whose requested name has no usable characters.
const fallbackToken = "corpus"

// SanitizeToken converts a corpus name to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "corpus" for input with nothing left.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallbackToken
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return fallbackToken
	}
	return out
}
