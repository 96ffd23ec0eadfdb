package trace

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the values allowed in canonical JSON.
// There is no float variant: layout coordinates are recorded as strings.
type Value interface {
	traceValue()
}

type (
	String string
	Int    int64
	Bool   bool
	Array  []Value
	Object map[string]Value
)

func (String) traceValue() {}
func (Int) traceValue()    {}
func (Bool) traceValue()   {}
func (Array) traceValue()  {}
func (Object) traceValue() {}

// Strings converts a string slice to an Array. A nil slice becomes an
// empty array, never null.
func Strings(ss []string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// SortedKeys returns the keys ordered by UTF-16 code units, as RFC 8785
// requires. This differs from byte order for characters outside the BMP.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}
