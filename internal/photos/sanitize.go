package photos

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxBaseLen caps the base name, extension excluded.
const maxBaseLen = 100

// SanitizeFilename rewrites an arbitrary client-supplied filename into a
// form safe to embed in a storage key. The function is idempotent: a
// sanitized name passes through unchanged.
func SanitizeFilename(name string) string {
	s := norm.NFC.String(name)

	// Flatten traversal sequences and separators before splitting off the
	// extension so "../../etc/passwd" cannot keep its directory parts.
	s = strings.ReplaceAll(s, "../", "_")
	s = strings.ReplaceAll(s, `..\`, "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, `\`, "_")

	// The extension is carried through verbatim; only the base is rewritten.
	base, ext := splitExtension(s)
	base = strings.TrimSpace(base)
	base = strings.Trim(base, ".")
	base = replaceSpecials(base)

	if base == "" {
		base = "file"
	}
	if runes := []rune(base); len(runes) > maxBaseLen {
		base = string(runes[:maxBaseLen])
	}
	return base + ext
}

// splitExtension splits at the last dot. A dot at index 0 marks a hidden
// file, not an extension.
func splitExtension(s string) (base, ext string) {
	idx := strings.LastIndex(s, ".")
	if idx <= 0 {
		return s, ""
	}
	return s[:idx], s[idx:]
}

func replaceSpecials(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
