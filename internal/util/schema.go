package util

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

const defsPrefix = "#/$defs/"

// ValidationError represents schema validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Path of the value that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema creates a JSON schema from a Go type using reflection. Field
// names follow json tags; fields without omitempty are required. Descriptions
// come from the `jsonschema_description` tag. Pointer fields and fields
// tagged `jsonschema:"nullable"` accept null.
//
// Nested types are expanded inline. Self-referencing types keep a "$ref"
// into a top level "$defs" table holding only the recursive definitions.
// The result is a plain decoded map so it can be validated against and
// re-marshaled deterministically.
func CreateSchema(t reflect.Type) (schema map[string]any, err error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	// The reflector panics on types JSON cannot represent (chan, func).
	defer func() {
		if r := recover(); r != nil {
			schema, err = nil, fmt.Errorf("cannot derive schema for %s: %v", t, r)
		}
	}()

	r := &jsonschema.Reflector{
		Anonymous:                 true,
		AllowAdditionalProperties: true,
	}

	raw, err := json.Marshal(r.ReflectFromType(t))
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	defs, _ := doc["$defs"].(map[string]any)
	root := doc
	if ref, ok := doc["$ref"].(string); ok {
		def, ok := defs[strings.TrimPrefix(ref, defsPrefix)].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unresolvable root reference %s", ref)
		}
		root = def
	}

	markNullable(t, root, defs, map[reflect.Type]bool{})

	recursive := map[string]bool{}
	schema = inline(root, defs, []string{t.Name()}, recursive).(map[string]any)
	delete(schema, "$schema")
	delete(schema, "$id")
	delete(schema, "$defs")

	kept := map[string]any{}
	for {
		pending := make([]string, 0, len(recursive))
		for name := range recursive {
			if _, done := kept[name]; !done {
				pending = append(pending, name)
			}
		}
		if len(pending) == 0 {
			break
		}
		sort.Strings(pending)
		for _, name := range pending {
			kept[name] = inline(defs[name], defs, []string{name}, recursive)
		}
	}
	if len(kept) > 0 {
		schema["$defs"] = kept
	}

	return schema, nil
}

// inline replaces "$ref" nodes by copies of their definitions. References
// to a definition already on the expansion stack are kept and recorded in
// recursive.
func inline(node any, defs map[string]any, stack []string, recursive map[string]bool) any {
	switch n := node.(type) {
	case map[string]any:
		if ref, ok := n["$ref"].(string); ok {
			name := strings.TrimPrefix(ref, defsPrefix)
			for _, s := range stack {
				if s == name {
					recursive[name] = true
					return copyMap(n)
				}
			}
			resolved, ok := inline(defs[name], defs, append(stack[:len(stack):len(stack)], name), recursive).(map[string]any)
			if !ok {
				return copyMap(n)
			}
			for k, v := range n {
				if k != "$ref" {
					resolved[k] = inline(v, defs, stack, recursive)
				}
			}
			return resolved
		}
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = inline(v, defs, stack, recursive)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = inline(v, defs, stack, recursive)
		}
		return out
	default:
		return node
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// markNullable wraps the schema of every pointer field in a oneOf with a
// null branch, walking t alongside its schema node.
func markNullable(t reflect.Type, node map[string]any, defs map[string]any, visited map[reflect.Type]bool) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if node == nil {
		return
	}
	if ref, ok := node["$ref"].(string); ok {
		node, _ = defs[strings.TrimPrefix(ref, defsPrefix)].(map[string]any)
		if node == nil {
			return
		}
	}
	if branches, ok := node["oneOf"].([]any); ok {
		for _, b := range branches {
			bm, _ := b.(map[string]any)
			markNullable(t, bm, defs, visited)
		}
		return
	}

	switch t.Kind() {
	case reflect.Struct:
		if t.Name() != "" {
			if visited[t] {
				return
			}
			visited[t] = true
		}
		props, _ := node["properties"].(map[string]any)
		if props != nil {
			markFields(t, props, defs, visited)
		}
	case reflect.Slice, reflect.Array:
		items, _ := node["items"].(map[string]any)
		markNullable(t.Elem(), items, defs, visited)
	case reflect.Map:
		extra, _ := node["additionalProperties"].(map[string]any)
		markNullable(t.Elem(), extra, defs, visited)
	}
}

func markFields(t reflect.Type, props map[string]any, defs map[string]any, visited map[reflect.Type]bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Tag.Get("jsonschema") == "-" {
			continue
		}
		tag := strings.Split(f.Tag.Get("json"), ",")
		if tag[0] == "-" && len(tag) == 1 {
			continue
		}

		if f.Anonymous && tag[0] == "" {
			et := f.Type
			if et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				markFields(et, props, defs, visited)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag[0] != "" {
			name = tag[0]
		}
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}

		markNullable(f.Type, prop, defs, visited)
		if _, wrapped := prop["oneOf"]; f.Type.Kind() == reflect.Ptr && !wrapped {
			props[name] = map[string]any{"oneOf": []any{prop, map[string]any{"type": "null"}}}
		}
	}
}

// Validate checks a decoded JSON value against a (minimal) JSON schema.
// Supported keywords: type, properties, required, items, oneOf and local
// "$ref" into the root "$defs". null is accepted only where the schema
// allows it or for optional properties. Unknown keywords and extra
// properties are accepted.
func Validate(value any, schema map[string]any) error {
	defs, _ := schema["$defs"].(map[string]any)
	return (&validator{defs: defs}).validate("", value, schema)
}

type validator struct {
	defs map[string]any
}

func (v *validator) validate(path string, value any, schema map[string]any) error {
	if ref, ok := schema["$ref"].(string); ok {
		def, ok := v.defs[strings.TrimPrefix(ref, defsPrefix)].(map[string]any)
		if !ok {
			return &ValidationError{Field: path, Message: fmt.Sprintf("unresolvable reference %s", ref)}
		}
		schema = def
	}

	if branches, ok := schema["oneOf"].([]any); ok && len(branches) > 0 {
		var first error
		for _, b := range branches {
			bs, _ := b.(map[string]any)
			err := v.validate(path, value, bs)
			if err == nil {
				return nil
			}
			if first == nil {
				first = err
			}
		}
		return first
	}

	types := schemaTypes(schema)
	if !isValidType(value, types) {
		return &ValidationError{
			Field:   path,
			Value:   value,
			Message: fmt.Sprintf("expected type %s, got %s", strings.Join(types, " or "), jsonTypeName(value)),
		}
	}

	switch val := value.(type) {
	case map[string]any:
		return v.validateObject(path, val, schema)
	case []any:
		items, ok := schema["items"].(map[string]any)
		if !ok {
			return nil
		}
		for i, item := range val {
			if err := v.validate(path+"["+strconv.Itoa(i)+"]", item, items); err != nil {
				return err
			}
		}
	}

	return nil
}

func (v *validator) validateObject(path string, obj map[string]any, schema map[string]any) error {
	required := map[string]bool{}
	list, _ := schema["required"].([]any)
	for _, req := range list {
		fieldName, ok := req.(string)
		if !ok {
			continue
		}
		required[fieldName] = true
		if _, exists := obj[fieldName]; !exists {
			return &ValidationError{
				Field:   joinPath(path, fieldName),
				Message: "required field is missing",
			}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for _, fieldName := range sortedKeys(obj) {
		fieldValue := obj[fieldName]
		propSchema, ok := properties[fieldName].(map[string]any)
		if !ok {
			continue // Allow extra fields
		}
		if fieldValue == nil && !required[fieldName] {
			continue // Optional fields may be null
		}
		if err := v.validate(joinPath(path, fieldName), fieldValue, propSchema); err != nil {
			return err
		}
	}

	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

// schemaTypes returns the declared JSON types; empty means any.
func schemaTypes(schema map[string]any) []string {
	switch t := schema["type"].(type) {
	case string:
		return []string{t}
	case []any:
		types := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				types = append(types, s)
			}
		}
		return types
	}
	return nil
}

// isValidType checks if a value is valid according to one of the expected
// JSON schema types. No declared type accepts everything, including null.
func isValidType(value any, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if matchesType(value, t) {
			return true
		}
	}
	return false
}

func matchesType(value any, expectedType string) bool {
	switch expectedType {
	case "null":
		return value == nil
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // JSON unmarshaling often produces float64 for numbers
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return value != nil // Unknown types are assumed valid
	}
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
