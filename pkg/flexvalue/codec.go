package flexvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Encode converts a native Go value into a tagged Value. Supported
// inputs are nil, booleans, strings, integer and float types, slices,
// and string-keyed maps (recursively), plus Value itself and
// json.Number. A non-empty map whose keys are all locale codes and
// whose values are all single storable values becomes a translatable
// value; a map with purely numeric keys becomes a plain array.
func Encode(v any) (Value, error) {
	return encode(v, true)
}

// MustEncode is like Encode but panics on unsupported input. Intended
// for static plan catalogs defined in code.
func MustEncode(v any) Value {
	val, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return val
}

func encode(v any, allowLocalized bool) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		if t.IsLocalized() && !allowLocalized {
			return Value{}, ErrNestedLocalized
		}
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return encodeUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return encodeUint(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		return encodeNumber(t)
	case []any:
		return encodeSlice(t)
	case map[string]any:
		return encodeMap(t, allowLocalized)
	}
	return encodeReflect(reflect.ValueOf(v), allowLocalized)
}

func encodeUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: uint64 %d overflows int64", ErrUnsupportedType, u)
	}
	return Int(int64(u)), nil
}

func encodeNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, errors.Join(ErrUnsupportedType, err)
	}
	return Float(f), nil
}

func encodeSlice(items []any) (Value, error) {
	out := make([]Value, len(items))
	for i, it := range items {
		v, err := encode(it, false)
		if err != nil {
			return Value{}, err
		}
		out[i] = v
	}
	return Value{kind: KindArray, items: out}, nil
}

func encodeMap(m map[string]any, allowLocalized bool) (Value, error) {
	if len(m) == 0 {
		return Value{kind: KindObject, attrs: map[string]Value{}}, nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	// Purely numeric keys mean a list that lost its shape in a legacy
	// store, never a translatable value.
	if allNumericKeys(keys) {
		slices.SortFunc(keys, func(a, b string) int {
			ai, _ := strconv.Atoi(a)
			bi, _ := strconv.Atoi(b)
			return ai - bi
		})
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = m[k]
		}
		return encodeSlice(items)
	}

	if allowLocalized && allLocaleKeys(keys) {
		entries := make([]LocaleEntry, 0, len(keys))
		translatable := true
		for _, k := range keys {
			ev, err := encode(m[k], false)
			if err != nil || ev.IsLocalized() {
				translatable = false
				break
			}
			entries = append(entries, LocaleEntry{Locale: k, Value: ev})
		}
		if translatable {
			return Value{kind: KindLocalized, locs: entries}, nil
		}
	}

	attrs := make(map[string]Value, len(m))
	for k, av := range m {
		ev, err := encode(av, false)
		if err != nil {
			return Value{}, err
		}
		attrs[k] = ev
	}
	return Value{kind: KindObject, attrs: attrs}, nil
}

func allNumericKeys(keys []string) bool {
	for _, k := range keys {
		if k == "" {
			return false
		}
		for i := 0; i < len(k); i++ {
			if k[i] < '0' || k[i] > '9' {
				return false
			}
		}
	}
	return true
}

func allLocaleKeys(keys []string) bool {
	for _, k := range keys {
		if !IsLocaleCode(k) {
			return false
		}
	}
	return true
}

func encodeReflect(rv reflect.Value, allowLocalized bool) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return encode(rv.Elem().Interface(), allowLocalized)
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encodeUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
		return encodeSlice(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("%w: map key type %s", ErrUnsupportedType, rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return encodeMap(m, allowLocalized)
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
}

type wireSingle struct {
	Type  Kind `json:"type"`
	Value any  `json:"value"`
}

// MarshalJSON renders the wire representation: single values as
// {"type":..., "value":...} and translatable values as a locale-keyed
// object of tagged singles in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.IsLocalized() {
		return json.Marshal(wireSingle{Type: v.Kind(), Value: v.Native()})
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range v.locs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Locale)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		entry, err := e.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(entry)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses the strict wire representation. Use Decode for
// reading legacy stored values with best-effort coercion.
func (v *Value) UnmarshalJSON(data []byte) error {
	keys, raws, err := objectFields(data)
	if err != nil {
		return err
	}

	if tagged, ok := fieldSet(keys, raws); ok {
		parsed, err := decodeTagged(tagged)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	}

	if len(keys) == 0 || !allLocaleKeys(keys) {
		return ErrInvalidWire
	}
	entries := make([]LocaleEntry, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for i, k := range keys {
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateLocale, k)
		}
		seen[k] = struct{}{}
		fields, raw2, err := objectFields(raws[i])
		if err != nil {
			return err
		}
		tagged, ok := fieldSet(fields, raw2)
		if !ok {
			return ErrInvalidWire
		}
		ev, err := decodeTagged(tagged)
		if err != nil {
			return err
		}
		entries = append(entries, LocaleEntry{Locale: k, Value: ev})
	}
	*v = Value{kind: KindLocalized, locs: entries}
	return nil
}

// objectFields reads a JSON object's keys and raw values preserving
// document order.
func objectFields(data []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, errors.Join(ErrInvalidWire, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, ErrInvalidWire
	}
	var (
		keys []string
		raws []json.RawMessage
	)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, errors.Join(ErrInvalidWire, err)
		}
		key, ok := kt.(string)
		if !ok {
			return nil, nil, ErrInvalidWire
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, errors.Join(ErrInvalidWire, err)
		}
		keys = append(keys, key)
		raws = append(raws, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, errors.Join(ErrInvalidWire, err)
	}
	if dec.More() {
		return nil, nil, ErrInvalidWire
	}
	return keys, raws, nil
}

type taggedRaw struct {
	kind Kind
	raw  json.RawMessage
}

// fieldSet recognizes the {"type":..., "value":...} shape. Extra keys
// disqualify the object so locale maps are never misread.
func fieldSet(keys []string, raws []json.RawMessage) (taggedRaw, bool) {
	var (
		out      taggedRaw
		hasType  bool
		hasValue bool
	)
	for i, k := range keys {
		switch k {
		case "type":
			var kind Kind
			if err := json.Unmarshal(raws[i], &kind); err != nil || !kind.single() {
				return taggedRaw{}, false
			}
			out.kind = kind
			hasType = true
		case "value":
			out.raw = raws[i]
			hasValue = true
		default:
			return taggedRaw{}, false
		}
	}
	if !hasType {
		return taggedRaw{}, false
	}
	if !hasValue {
		out.raw = json.RawMessage("null")
	}
	return out, true
}

func decodeTagged(t taggedRaw) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(t.raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return Value{}, errors.Join(ErrInvalidWire, err)
	}

	switch t.kind {
	case KindNull:
		if payload != nil {
			return Value{}, ErrInvalidWire
		}
		return Null(), nil
	case KindInteger:
		n, ok := payload.(json.Number)
		if !ok {
			return Value{}, ErrInvalidWire
		}
		i, err := n.Int64()
		if err != nil {
			return Value{}, errors.Join(ErrInvalidWire, err)
		}
		return Int(i), nil
	case KindFloat:
		n, ok := payload.(json.Number)
		if !ok {
			return Value{}, ErrInvalidWire
		}
		f, err := n.Float64()
		if err != nil {
			return Value{}, errors.Join(ErrInvalidWire, err)
		}
		return Float(f), nil
	case KindBoolean:
		b, ok := payload.(bool)
		if !ok {
			return Value{}, ErrInvalidWire
		}
		return Bool(b), nil
	case KindString:
		s, ok := payload.(string)
		if !ok {
			return Value{}, ErrInvalidWire
		}
		return String(s), nil
	case KindArray:
		items, ok := payload.([]any)
		if !ok {
			return Value{}, ErrInvalidWire
		}
		return encodeSlice(items)
	case KindObject:
		attrs, ok := payload.(map[string]any)
		if !ok {
			return Value{}, ErrInvalidWire
		}
		return encodeMap(attrs, false)
	}
	return Value{}, ErrInvalidWire
}

// Decode reads a stored value: the strict wire format when recognized,
// otherwise best-effort legacy coercion of whatever was persisted
// before the tagged format existed.
func Decode(raw []byte) (Value, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Null(), nil
	}

	var v Value
	if err := v.UnmarshalJSON(raw); err == nil {
		return v, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err == nil && !dec.More() {
		if s, ok := payload.(string); ok {
			return DecodeString(s), nil
		}
		return Encode(payload)
	}

	return DecodeString(string(raw)), nil
}

// DecodeString applies the legacy coercion ladder to a plain stored
// string: null words become null, boolean words become booleans,
// numeric strings become numbers, JSON payloads are parsed, anything
// else stays a string.
func DecodeString(s string) Value {
	trimmed := strings.TrimSpace(s)
	switch {
	case trimmed == "":
		return Null()
	case equalsAnyFold(trimmed, "null", "nil"):
		return Null()
	case equalsAnyFold(trimmed, "true", "1", "yes", "on"):
		return Bool(true)
	case equalsAnyFold(trimmed, "false", "0", "no", "off"):
		return Bool(false)
	}

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Float(f)
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		var payload any
		if err := dec.Decode(&payload); err == nil && !dec.More() {
			if v, err := Encode(payload); err == nil {
				return v
			}
		}
	}

	return String(s)
}

func equalsAnyFold(s string, candidates ...string) bool {
	for _, c := range candidates {
		if strings.EqualFold(s, c) {
			return true
		}
	}
	return false
}
