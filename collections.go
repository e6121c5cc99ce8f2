package dynattr

import (
	"encoding/hex"
	"errors"
	"reflect"
	"slices"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StringSet declares a string-set attribute. Set values are Go slices carrying
// set semantics: cleaning removes duplicates preserving first occurrence, and
// serialization emits elements in sorted order so equal sets produce identical
// wire forms.
func StringSet(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, stringSetConverter{}, opts...)
}

// IntegerSet declares a number-set attribute holding int64 elements.
func IntegerSet(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, intSetConverter{}, opts...)
}

// FloatSet declares a number-set attribute holding float64 elements.
func FloatSet(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, floatSetConverter{}, opts...)
}

// BinarySet declares a binary-set attribute holding byte slice elements.
func BinarySet(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, binarySetConverter{}, opts...)
}

// List declares a heterogeneously stored but uniformly typed list attribute.
// Every element cleans and serializes through elem, which is owned by the list
// and must not be bound to a schema itself. Element failures aggregate into a
// ValidationError keyed by decimal index.
func List(field string, elem *Attribute, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, listConverter{elem: elem}, opts...)
}

// Nested declares a map attribute embedding records of another schema. The
// nested schema describes shape only; its table name never reaches the wire.
func Nested(field string, schema *Schema, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, nestedConverter{schema: schema}, opts...)
}

// dedupe removes duplicate elements preserving first occurrence.
func dedupe[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dedupeBytes(in [][]byte) [][]byte {
	seen := make(map[string]struct{}, len(in))
	out := make([][]byte, 0, len(in))
	for _, v := range in {
		key := hex.EncodeToString(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// cleanSetElements coerces loosely typed elements through a scalar converter.
// Sets hold values only, so a nil element is a coercion failure.
func cleanSetElements[T any](conv Converter, in []any) ([]T, error) {
	out := make([]T, 0, len(in))
	for _, raw := range in {
		if raw == nil {
			return nil, &ValidationError{Messages: []string{"Not a set"}}
		}
		v, err := conv.CleanValue(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v.(T))
	}
	return out, nil
}

type stringSetConverter struct{}

func (stringSetConverter) Kind() AttributeKind { return KindStringSet }

func (stringSetConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return dedupe(v), nil
	case []any:
		elems, err := cleanSetElements[string](stringConverter{}, v)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Not a set"}}
		}
		return dedupe(elems), nil
	}
	return nil, &ValidationError{Messages: []string{"Not a set"}}
}

func (c stringSetConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(v.([]string))
	slices.Sort(out)
	return &types.AttributeValueMemberSS{Value: out}, nil
}

func (stringSetConverter) Unwire(av types.AttributeValue) (any, error) {
	ss, ok := av.(*types.AttributeValueMemberSS)
	if !ok {
		return nil, &MalformedWireError{Want: KindStringSet, Got: wireTag(av)}
	}
	return ss.Value, nil
}

type intSetConverter struct{}

func (intSetConverter) Kind() AttributeKind { return KindNumberSet }

func (intSetConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return []int64{}, nil
	case []int64:
		return dedupe(v), nil
	case []int:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return dedupe(out), nil
	case []string:
		elems, err := cleanSetElements[int64](intConverter{}, anySlice(v))
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Not a set"}}
		}
		return dedupe(elems), nil
	case []any:
		elems, err := cleanSetElements[int64](intConverter{}, v)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Not a set"}}
		}
		return dedupe(elems), nil
	}
	return nil, &ValidationError{Messages: []string{"Not a set"}}
}

func (c intSetConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	set := slices.Clone(v.([]int64))
	slices.Sort(set)
	out := make([]string, len(set))
	for i, n := range set {
		out[i] = strconv.FormatInt(n, 10)
	}
	return &types.AttributeValueMemberNS{Value: out}, nil
}

func (intSetConverter) Unwire(av types.AttributeValue) (any, error) {
	ns, ok := av.(*types.AttributeValueMemberNS)
	if !ok {
		return nil, &MalformedWireError{Want: KindNumberSet, Got: wireTag(av)}
	}
	return ns.Value, nil
}

type floatSetConverter struct{}

func (floatSetConverter) Kind() AttributeKind { return KindNumberSet }

func (floatSetConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return []float64{}, nil
	case []float64:
		return dedupe(v), nil
	case []string:
		elems, err := cleanSetElements[float64](floatConverter{}, anySlice(v))
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Not a set"}}
		}
		return dedupe(elems), nil
	case []any:
		elems, err := cleanSetElements[float64](floatConverter{}, v)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Not a set"}}
		}
		return dedupe(elems), nil
	}
	return nil, &ValidationError{Messages: []string{"Not a set"}}
}

func (c floatSetConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	set := slices.Clone(v.([]float64))
	slices.Sort(set)
	out := make([]string, len(set))
	for i, f := range set {
		out[i] = formatFloat(f)
	}
	return &types.AttributeValueMemberNS{Value: out}, nil
}

func (floatSetConverter) Unwire(av types.AttributeValue) (any, error) {
	ns, ok := av.(*types.AttributeValueMemberNS)
	if !ok {
		return nil, &MalformedWireError{Want: KindNumberSet, Got: wireTag(av)}
	}
	return ns.Value, nil
}

type binarySetConverter struct{}

func (binarySetConverter) Kind() AttributeKind { return KindBinarySet }

func (binarySetConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return [][]byte{}, nil
	case [][]byte:
		return dedupeBytes(v), nil
	case []string:
		out := make([][]byte, 0, len(v))
		for _, s := range v {
			b, err := hex.DecodeString(s)
			if err != nil {
				return nil, &ValidationError{Messages: []string{"Not a set"}}
			}
			out = append(out, b)
		}
		return dedupeBytes(out), nil
	case []any:
		out := make([][]byte, 0, len(v))
		for _, raw := range v {
			if raw == nil {
				return nil, &ValidationError{Messages: []string{"Not a set"}}
			}
			b, err := binaryConverter{}.CleanValue(raw)
			if err != nil {
				return nil, &ValidationError{Messages: []string{"Not a set"}}
			}
			out = append(out, b.([]byte))
		}
		return dedupeBytes(out), nil
	}
	return nil, &ValidationError{Messages: []string{"Not a set"}}
}

func (c binarySetConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	encoded := make([]string, 0, len(v.([][]byte)))
	for _, b := range v.([][]byte) {
		encoded = append(encoded, hex.EncodeToString(b))
	}
	slices.Sort(encoded)
	out := make([][]byte, len(encoded))
	for i, s := range encoded {
		out[i] = []byte(s)
	}
	return &types.AttributeValueMemberBS{Value: out}, nil
}

func (binarySetConverter) Unwire(av types.AttributeValue) (any, error) {
	bs, ok := av.(*types.AttributeValueMemberBS)
	if !ok {
		return nil, &MalformedWireError{Want: KindBinarySet, Got: wireTag(av)}
	}
	out := make([]string, len(bs.Value))
	for i, b := range bs.Value {
		out[i] = string(b)
	}
	return out, nil
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

type listConverter struct {
	elem *Attribute
}

func (listConverter) Kind() AttributeKind { return KindList }

func (c listConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return c.cleanElements(v)
	case []byte:
		// a byte slice is a scalar binary payload, not a list
		return nil, &ValidationError{Messages: []string{"Not a list"}}
	}
	// Any other slice type coerces element by element, so callers can pass
	// the natural []string or []int64 instead of []any.
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice {
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return c.cleanElements(elems)
	}
	return nil, &ValidationError{Messages: []string{"Not a list"}}
}

func (c listConverter) cleanElements(v []any) (any, error) {
	out := make([]any, len(v))
	fields := make(map[string]*ValidationError)
	for i, item := range v {
		cleaned, err := c.elem.Clean(item)
		if err != nil {
			fields[strconv.Itoa(i)] = asValidationError(err)
			continue
		}
		out[i] = cleaned
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return out, nil
}

func (c listConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	elems := v.([]any)
	out := make([]types.AttributeValue, len(elems))
	for i, item := range elems {
		av, err := c.elem.ToWire(item)
		if err != nil {
			return nil, err
		}
		out[i] = av
	}
	return &types.AttributeValueMemberL{Value: out}, nil
}

func (c listConverter) Unwire(av types.AttributeValue) (any, error) {
	l, ok := av.(*types.AttributeValueMemberL)
	if !ok {
		return nil, &MalformedWireError{Want: KindList, Got: wireTag(av)}
	}
	out := make([]any, len(l.Value))
	for i, elem := range l.Value {
		value, err := c.elem.FromWire(elem)
		if err != nil {
			// report the list position, not the element's own binding name
			var malformed *MalformedWireError
			if errors.As(err, &malformed) {
				malformed.Attribute = ""
				malformed.Index = i
				malformed.Indexed = true
			}
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}

type nestedConverter struct {
	schema *Schema
}

func (nestedConverter) Kind() AttributeKind { return KindMap }

func (c nestedConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case *Record:
		if v == nil {
			return nil, nil
		}
		if v.schema != c.schema {
			return nil, &ValidationError{Messages: []string{"Invalid record"}}
		}
		return v, nil
	}
	return nil, &ValidationError{Messages: []string{"Invalid record"}}
}

func (c nestedConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}
	item, err := c.schema.MarshalItem(v.(*Record))
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberM{Value: item}, nil
}

func (c nestedConverter) Unwire(av types.AttributeValue) (any, error) {
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, &MalformedWireError{Want: KindMap, Got: wireTag(av)}
	}
	return c.schema.UnmarshalItem(m.Value)
}
