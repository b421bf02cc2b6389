package flexvalue

import (
	"fmt"
	"maps"
	"slices"
)

// Kind identifies the concrete type stored in a Value.
type Kind string

const (
	KindNull      Kind = "null"
	KindInteger   Kind = "integer"
	KindFloat     Kind = "float"
	KindBoolean   Kind = "boolean"
	KindString    Kind = "string"
	KindArray     Kind = "array"
	KindObject    Kind = "object"
	KindLocalized Kind = "localized"
)

// single reports whether the kind may appear as a localized entry. A
// localized value never nests another localized value.
func (k Kind) single() bool {
	switch k {
	case KindNull, KindInteger, KindFloat, KindBoolean, KindString, KindArray, KindObject:
		return true
	}
	return false
}

// LocaleEntry is one locale variant of a localized value. Entries keep
// their insertion order so fallback to the first entry is deterministic.
type LocaleEntry struct {
	Locale string
	Value  Value
}

// Value is a tagged union over the storable feature value types:
// integer, float, boolean, string, array, object, null, or a
// locale-keyed map of any of those. The zero Value is null.
type Value struct {
	kind  Kind
	num   int64
	fnum  float64
	flag  bool
	str   string
	items []Value
	attrs map[string]Value
	locs  []LocaleEntry
}

// Null returns the null value.
func Null() Value {
	return Value{kind: KindNull}
}

// Int returns an integer value.
func Int(v int64) Value {
	return Value{kind: KindInteger, num: v}
}

// Float returns a float value.
func Float(v float64) Value {
	return Value{kind: KindFloat, fnum: v}
}

// Bool returns a boolean value.
func Bool(v bool) Value {
	return Value{kind: KindBoolean, flag: v}
}

// String returns a string value.
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Array returns an array value over the given items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: slices.Clone(items)}
}

// Object returns an object value over the given attributes.
func Object(attrs map[string]Value) Value {
	return Value{kind: KindObject, attrs: maps.Clone(attrs)}
}

// Localized builds a translatable value from ordered locale entries.
// Every locale must match the locale code pattern and every entry value
// must be a single (non-localized) value.
func Localized(entries ...LocaleEntry) (Value, error) {
	if len(entries) == 0 {
		return Value{}, ErrEmptyLocalized
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]LocaleEntry, 0, len(entries))
	for _, e := range entries {
		if !IsLocaleCode(e.Locale) {
			return Value{}, fmt.Errorf("%w: %q", ErrInvalidLocale, e.Locale)
		}
		if !e.Value.kind.single() {
			return Value{}, ErrNestedLocalized
		}
		if _, dup := seen[e.Locale]; dup {
			return Value{}, fmt.Errorf("%w: %q", ErrDuplicateLocale, e.Locale)
		}
		seen[e.Locale] = struct{}{}
		out = append(out, e)
	}
	return Value{kind: KindLocalized, locs: out}, nil
}

// Kind reports the value's kind. The zero Value reports KindNull.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind() == KindNull }

// IsLocalized reports whether the value is a translatable locale map.
func (v Value) IsLocalized() bool { return v.Kind() == KindLocalized }

// Int returns the integer payload. The second return is false when the
// value is not an integer.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.num, true
}

// Float returns the float payload, or the integer payload widened to
// float64. The second return is false for non-numeric values.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.fnum, true
	case KindInteger:
		return float64(v.num), true
	}
	return 0, false
}

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.flag, true
}

// Str returns the string payload.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Items returns a copy of the array payload.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return slices.Clone(v.items), true
}

// Attrs returns a copy of the object payload.
func (v Value) Attrs() (map[string]Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return maps.Clone(v.attrs), true
}

// Locales returns a copy of the localized entries in insertion order.
func (v Value) Locales() ([]LocaleEntry, bool) {
	if v.kind != KindLocalized {
		return nil, false
	}
	return slices.Clone(v.locs), true
}

// Native converts the value back to plain Go types: nil, int64,
// float64, bool, string, []any, or map[string]any. Localized values
// become a locale-keyed map of native values.
func (v Value) Native() any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindInteger:
		return v.num
	case KindFloat:
		return v.fnum
	case KindBoolean:
		return v.flag
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Native()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.attrs))
		for k, av := range v.attrs {
			out[k] = av.Native()
		}
		return out
	case KindLocalized:
		out := make(map[string]any, len(v.locs))
		for _, e := range v.locs {
			out[e.Locale] = e.Value.Native()
		}
		return out
	}
	return nil
}

// Equal reports deep equality between two values. Localized values
// compare equal regardless of entry order as long as the same locales
// map to equal values.
func (v Value) Equal(other Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindInteger:
		return v.num == other.num
	case KindFloat:
		return v.fnum == other.fnum
	case KindBoolean:
		return v.flag == other.flag
	case KindString:
		return v.str == other.str
	case KindArray:
		return slices.EqualFunc(v.items, other.items, Value.Equal)
	case KindObject:
		return maps.EqualFunc(v.attrs, other.attrs, Value.Equal)
	case KindLocalized:
		if len(v.locs) != len(other.locs) {
			return false
		}
		for _, e := range v.locs {
			oe, ok := other.entry(e.Locale)
			if !ok || !e.Value.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) entry(locale string) (Value, bool) {
	for _, e := range v.locs {
		if e.Locale == locale {
			return e.Value, true
		}
	}
	return Value{}, false
}
