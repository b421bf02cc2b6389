// Package flexvalue provides a tagged, lossless representation for plan
// feature values that may be an integer, float, boolean, string, array,
// object, null, or a per-locale map of any of those.
//
// Feature limits rarely stay one type: a quota starts as an integer,
// grows a "null means unlimited" convention, then marketing wants the
// description localized. The tagged wire format keeps all of that in a
// single column without schema changes and decodes back to the original
// native type.
//
// Encoding:
//
//	v, err := flexvalue.Encode(1000)              // {"type":"integer","value":1000}
//	v, err = flexvalue.Encode(map[string]any{
//	    "en": 1000,
//	    "ar": 2000,
//	})                                            // translatable value
//	wire, err := json.Marshal(v)
//
// A map is treated as translatable only when every key is a locale code
// ("en", "pt-BR") and every value is a single storable type. Mixed keys
// produce a plain object; purely numeric keys produce a plain array.
// When encoding from a Go map the entries are ordered lexicographically;
// values decoded from the wire keep the document's key order.
//
// Decoding accepts both the tagged wire format and legacy plain values
// with best-effort coercion:
//
//	v, err := flexvalue.Decode(stored)
//	flexvalue.DecodeString("true")  // boolean true
//	flexvalue.DecodeString("2.5")   // float 2.5
//	flexvalue.DecodeString("null")  // null
//
// Locale resolution follows exact match, then the fallback locale, then
// the first stored entry:
//
//	limit := flexvalue.Resolve(v, "ar", "en")
package flexvalue
