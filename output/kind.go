package output

import (
	"reflect"
)

// Kind is the decoding strategy for a return type.
type Kind int

const (
	// KindUnsupported marks types no strategy can produce.
	KindUnsupported Kind = iota
	// KindRaw returns the model text as-is.
	KindRaw
	// KindObject decodes a schema-validated JSON object.
	KindObject
	// KindMapping decodes a JSON object wrapped under the "output" key.
	KindMapping
	// KindSequence decodes one element per completion.
	KindSequence
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindObject:
		return "object"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "unsupported"
	}
}

// Structured reports whether the kind needs format instructions.
func (k Kind) Structured() bool {
	return k == KindObject || k == KindMapping
}

// Select returns the strategy for t. A nil type is unconstrained (raw).
// Interfaces with methods are unsupported since text cannot satisfy them.
func Select(t reflect.Type) Kind {
	if t == nil {
		return KindRaw
	}

	switch t.Kind() {
	case reflect.String:
		return KindRaw
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return KindRaw
		}
	case reflect.Struct:
		return KindObject
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			return KindObject
		}
	case reflect.Map:
		if t.Key().Kind() == reflect.String {
			return KindMapping
		}
	case reflect.Slice:
		if elem := Select(t.Elem()); elem != KindSequence && elem != KindUnsupported {
			return KindSequence
		}
	}
	return KindUnsupported
}
