package flexvalue

import (
	"strings"

	"golang.org/x/text/language"
)

// IsLocaleCode reports whether s is a canonical locale code: two
// lowercase letters optionally followed by a dash and a two-letter
// uppercase country code ("en", "pt-BR").
func IsLocaleCode(s string) bool {
	switch len(s) {
	case 2:
		return isLowerAlpha(s[0]) && isLowerAlpha(s[1])
	case 5:
		return isLowerAlpha(s[0]) && isLowerAlpha(s[1]) && s[2] == '-' &&
			isUpperAlpha(s[3]) && isUpperAlpha(s[4])
	}
	return false
}

func isLowerAlpha(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpperAlpha(c byte) bool { return c >= 'A' && c <= 'Z' }

// CanonicalLocale normalizes a requested locale tag to the canonical
// form used for entry keys ("PT-br" -> "pt-BR"). Tags that do not parse
// as a language are lowercased as-is so lookups still behave
// predictably on unknown input.
func CanonicalLocale(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if IsLocaleCode(s) {
		return s
	}
	if tag, err := language.Parse(s); err == nil {
		if c := tag.String(); IsLocaleCode(c) {
			return c
		}
	}
	return strings.ToLower(s)
}

// Resolve returns the variant of a translatable value for the requested
// locale: the exact entry if present, otherwise the fallback locale's
// entry, otherwise the first entry in insertion order. Single
// (non-localized) values are returned unchanged regardless of the
// requested locale.
func Resolve(v Value, locale, fallback string) Value {
	if !v.IsLocalized() {
		return v
	}
	if e, ok := v.entry(CanonicalLocale(locale)); ok {
		return e
	}
	if e, ok := v.entry(CanonicalLocale(fallback)); ok {
		return e
	}
	return v.locs[0].Value
}
