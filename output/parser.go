package output

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/hupe1980/slick/internal/util"
)

// mappingKey wraps mapping outputs.
const mappingKey = "output"

// Parser decodes model text into T.
type Parser[T any] struct {
	typ  reflect.Type
	kind Kind
	elem *decoder // element decoder for sequences, value decoder otherwise
}

// NewParser builds the parser for T.
func NewParser[T any]() (*Parser[T], error) {
	return newParser[T](reflect.TypeOf((*T)(nil)).Elem())
}

func newParser[T any](t reflect.Type) (*Parser[T], error) {
	kind := Select(t)
	target := t
	switch kind {
	case KindUnsupported:
		return nil, errors.Wrapf(ErrUnsupportedType, "%s", t)
	case KindSequence:
		target = t.Elem()
	}

	d, err := newDecoder(target)
	if err != nil {
		return nil, err
	}
	return &Parser[T]{typ: t, kind: kind, elem: d}, nil
}

// Kind returns the selected strategy.
func (p *Parser[T]) Kind() Kind { return p.kind }

// ElemKind returns the strategy of each completion: the element strategy for
// sequences and the kind itself otherwise.
func (p *Parser[T]) ElemKind() Kind { return p.elem.kind }

// FormatInstructions returns the text appended to the prompt, or "" when
// the output is unstructured.
func (p *Parser[T]) FormatInstructions() string { return p.elem.instructions }

// Parse decodes a single completion. For sequences the result holds exactly
// one element.
func (p *Parser[T]) Parse(raw string) (T, error) {
	if p.kind == KindSequence {
		return p.ParseAll([]string{raw})
	}

	var zero T
	v, err := p.elem.decode(raw)
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// ParseAll decodes each completion independently into one element of the
// sequence, preserving order. It is only valid for sequences.
func (p *Parser[T]) ParseAll(raws []string) (T, error) {
	var zero T
	if p.kind != KindSequence {
		return zero, errors.Newf("ParseAll requires a sequence type, got %s", p.typ)
	}

	out := reflect.MakeSlice(p.typ, 0, len(raws))
	for i, raw := range raws {
		v, err := p.elem.decode(raw)
		if err != nil {
			return zero, errors.Wrapf(err, "completion %d", i)
		}
		out = reflect.Append(out, v)
	}
	return out.Interface().(T), nil
}

// decoder decodes one completion into a value of typ.
type decoder struct {
	typ          reflect.Type
	kind         Kind
	schema       map[string]any
	instructions string
}

func newDecoder(t reflect.Type) (*decoder, error) {
	d := &decoder{typ: t, kind: Select(t)}

	switch d.kind {
	case KindObject:
		schema, err := util.CreateSchema(t)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create schema for %s", t)
		}
		d.schema = schema
		d.instructions, err = objectInstructions(schema)
		if err != nil {
			return nil, err
		}
	case KindMapping:
		d.instructions = mappingInstructions
	case KindRaw:
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "%s", t)
	}
	return d, nil
}

func (d *decoder) decode(raw string) (reflect.Value, error) {
	switch d.kind {
	case KindObject:
		return d.decodeObject(raw)
	case KindMapping:
		return d.decodeMapping(raw)
	default:
		return d.decodeRaw(raw), nil
	}
}

func (d *decoder) decodeRaw(raw string) reflect.Value {
	if d.typ == nil {
		return reflect.ValueOf(raw)
	}
	v := reflect.New(d.typ).Elem()
	v.Set(reflect.ValueOf(raw).Convert(stringLike(d.typ)))
	return v
}

// stringLike returns t for named string types and string for interfaces.
func stringLike(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.String {
		return t
	}
	return reflect.TypeOf("")
}

func (d *decoder) decodeObject(raw string) (reflect.Value, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return reflect.Value{}, &SchemaError{Kind: d.kind, Raw: raw, Err: err}
	}

	var generic any
	if err := json.Unmarshal([]byte(obj.Raw), &generic); err != nil {
		return reflect.Value{}, &SchemaError{Kind: d.kind, Raw: raw, Err: err}
	}
	if err := util.Validate(generic, d.schema); err != nil {
		return reflect.Value{}, &SchemaError{Kind: d.kind, Raw: raw, Err: err}
	}

	return d.unmarshal(raw, obj.Raw)
}

func (d *decoder) decodeMapping(raw string) (reflect.Value, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return reflect.Value{}, &SchemaError{Kind: d.kind, Raw: raw, Err: err}
	}

	inner := obj.Get(mappingKey)
	if !inner.Exists() {
		return reflect.Value{}, &SchemaError{Kind: d.kind, Raw: raw, Err: errors.Newf("missing %q key", mappingKey)}
	}
	if !inner.IsObject() {
		return reflect.Value{}, &SchemaError{Kind: d.kind, Raw: raw, Err: errors.Newf("%q is not a JSON object", mappingKey)}
	}

	return d.unmarshal(raw, inner.Raw)
}

func (d *decoder) unmarshal(raw, payload string) (reflect.Value, error) {
	ptr := reflect.New(d.typ)
	if err := json.Unmarshal([]byte(payload), ptr.Interface()); err != nil {
		return reflect.Value{}, &SchemaError{Kind: d.kind, Raw: raw, Err: err}
	}
	return ptr.Elem(), nil
}

const objectPreamble = `The output should be formatted as a JSON instance that conforms to the JSON schema below.

As an example, for the schema {"properties": {"foo": {"title": "Foo", "description": "a list of strings", "type": "array", "items": {"type": "string"}}}, "required": ["foo"]}
the object {"foo": ["bar", "baz"]} is a well-formatted instance of the schema. The object {"properties": {"foo": ["bar", "baz"]}} is not well-formatted.

Here is the output schema:
`

const mappingInstructions = "The output should be a markdown code snippet formatted in the following schema, including the leading and trailing \"```json\" and \"```\":\n\n" +
	"```json\n{\n\t\"" + mappingKey + "\": object  // Valid JSON object\n}\n```"

func objectInstructions(schema map[string]any) (string, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode schema")
	}
	var sb strings.Builder
	sb.WriteString(objectPreamble)
	sb.WriteString("```\n")
	sb.Write(b)
	sb.WriteString("\n```")
	return sb.String(), nil
}
