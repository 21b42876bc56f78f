package prompt

import (
	"reflect"
	"regexp"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidSignature marks malformed function metadata.
	ErrInvalidSignature = errors.New("invalid prompt function signature")
	// ErrUnknownArgument is returned when a call names an undeclared parameter.
	ErrUnknownArgument = errors.New("unknown argument")
	// ErrArgumentType is returned when a value does not fit the declared type.
	ErrArgumentType = errors.New("argument type mismatch")
	// ErrTooManyArguments is returned when more positional values than
	// parameters are supplied.
	ErrTooManyArguments = errors.New("too many arguments")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Param is one declared parameter. A nil Type accepts any value.
type Param struct {
	Name string
	Type reflect.Type
}

// Args are the call-time arguments keyed by parameter name.
type Args map[string]any

// Signature is the metadata of a prompt function, captured once at construction.
type Signature struct {
	Name   string
	Doc    string
	Params []Param
	Return reflect.Type
}

// Validate checks parameter names are unique template identifiers.
func (s Signature) Validate() error {
	seen := make(map[string]struct{}, len(s.Params))
	for _, p := range s.Params {
		if !identRe.MatchString(p.Name) {
			return errors.Wrapf(ErrInvalidSignature, "parameter name %q is not an identifier", p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return errors.Wrapf(ErrInvalidSignature, "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// Clone returns a copy that shares no mutable state with s.
func (s Signature) Clone() Signature {
	s.Params = append([]Param(nil), s.Params...)
	return s
}

// Bind checks args against the declared parameters. Partial binding is
// allowed; undeclared names and mistyped values are rejected.
func (s Signature) Bind(args Args) (Args, error) {
	bound := make(Args, len(args))
	for name, v := range args {
		p, ok := s.param(name)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownArgument, "%q", name)
		}
		if err := checkType(p, v); err != nil {
			return nil, err
		}
		bound[name] = v
	}
	return bound, nil
}

// BindPositional binds values to parameters in declaration order.
func (s Signature) BindPositional(values ...any) (Args, error) {
	if len(values) > len(s.Params) {
		return nil, errors.Wrapf(ErrTooManyArguments, "got %d values for %d parameters", len(values), len(s.Params))
	}
	args := make(Args, len(values))
	for i, v := range values {
		args[s.Params[i].Name] = v
	}
	return s.Bind(args)
}

func (s Signature) param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func checkType(p Param, v any) error {
	if p.Type == nil {
		return nil
	}
	if v == nil {
		switch p.Type.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return nil
		}
		return errors.Wrapf(ErrArgumentType, "%s: nil is not a %s", p.Name, p.Type)
	}
	if t := reflect.TypeOf(v); !t.AssignableTo(p.Type) {
		return errors.Wrapf(ErrArgumentType, "%s: %s is not assignable to %s", p.Name, t, p.Type)
	}
	return nil
}
