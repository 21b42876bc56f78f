package util

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSummary struct {
	Title   string   `json:"title" jsonschema_description:"Short title"`
	Bullets []string `json:"bullets"`
	Score   int      `json:"score,omitempty"`
	Author  *struct {
		Name string `json:"name"`
	} `json:"author,omitempty"`
}

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestCreateSchema(t *testing.T) {
	schema, err := CreateSchema(reflect.TypeOf(&testSummary{}))
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.ElementsMatch(t, []any{"title", "bullets"}, schema["required"])

	props := schema["properties"].(map[string]any)
	title := props["title"].(map[string]any)
	assert.Equal(t, "string", title["type"])
	assert.Equal(t, "Short title", title["description"])

	bullets := props["bullets"].(map[string]any)
	assert.Equal(t, "array", bullets["type"])
}

func TestValidate(t *testing.T) {
	schema, err := CreateSchema(reflect.TypeOf(testSummary{}))
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{name: "valid", payload: `{"title":"T","bullets":["a","b"]}`},
		{name: "extra fields allowed", payload: `{"title":"T","bullets":[],"x":1}`},
		{name: "missing required", payload: `{"bullets":[]}`, field: "title"},
		{name: "wrong type", payload: `{"title":3,"bullets":[]}`, field: "title"},
		{name: "wrong item type", payload: `{"title":"T","bullets":["a",2]}`, field: "bullets[1]"},
		{name: "non integer", payload: `{"title":"T","bullets":[],"score":1.5}`, field: "score"},
		{name: "nested required", payload: `{"title":"T","bullets":[],"author":{}}`, field: "author.name"},
		{name: "not an object", payload: `["title"]`, field: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(decode(t, tt.payload), schema)
			if tt.name == "valid" || tt.name == "extra fields allowed" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "validation error: bad", (&ValidationError{Message: "bad"}).Error())
	assert.Equal(t, "validation error for field 'a.b': bad", (&ValidationError{Field: "a.b", Message: "bad"}).Error())
}

type testNode struct {
	Name     string     `json:"name"`
	Children []testNode `json:"children"`
	Parent   *testNode  `json:"parent,omitempty"`
}

type testOutline struct {
	Title string     `json:"title"`
	Root  testNode   `json:"root"`
	Notes []testNote `json:"notes"`
}

type testNote struct {
	Text string `json:"text"`
}

type testNullable struct {
	Name     string  `json:"name"`
	Nickname *string `json:"nickname"`
	Tag      string  `json:"tag" jsonschema:"nullable"`
}

func TestCreateSchema_Recursive(t *testing.T) {
	schema, err := CreateSchema(reflect.TypeOf(testNode{}))
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$ref")

	props := schema["properties"].(map[string]any)
	children := props["children"].(map[string]any)
	assert.Equal(t, "#/$defs/testNode", children["items"].(map[string]any)["$ref"])

	defs := schema["$defs"].(map[string]any)
	require.Contains(t, defs, "testNode")
	assert.Len(t, defs, 1)

	_, err = json.Marshal(schema)
	require.NoError(t, err)
}

func TestCreateSchema_NonRecursiveNestingIsInlined(t *testing.T) {
	schema, err := CreateSchema(reflect.TypeOf(testOutline{}))
	require.NoError(t, err)

	props := schema["properties"].(map[string]any)
	notes := props["notes"].(map[string]any)
	item := notes["items"].(map[string]any)
	assert.Equal(t, "object", item["type"])
	assert.NotContains(t, item, "$ref")

	// testNode only refers to itself, so only its own definition is kept.
	defs := schema["$defs"].(map[string]any)
	assert.Equal(t, []string{"testNode"}, keys(defs))
	root := props["root"].(map[string]any)
	assert.Equal(t, "object", root["type"])
}

func TestCreateSchema_Unsupported(t *testing.T) {
	_, err := CreateSchema(reflect.TypeOf(struct {
		C chan int `json:"c"`
	}{}))
	assert.Error(t, err)
}

func TestValidate_Recursive(t *testing.T) {
	schema, err := CreateSchema(reflect.TypeOf(testNode{}))
	require.NoError(t, err)

	assert.NoError(t, Validate(decode(t, `{"name":"a","children":[{"name":"b","children":[{"name":"c","children":[]}]}]}`), schema))
	assert.NoError(t, Validate(decode(t, `{"name":"a","children":[],"parent":{"name":"p","children":[]}}`), schema))

	err = Validate(decode(t, `{"name":"a","children":[{"name":"b","children":[{"children":[]}]}]}`), schema)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "children[0].children[0].name", verr.Field)

	err = Validate(decode(t, `{"name":"a","children":[{"name":7,"children":[]}]}`), schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "children[0].name", verr.Field)
}

func TestValidate_Null(t *testing.T) {
	summary, err := CreateSchema(reflect.TypeOf(testSummary{}))
	require.NoError(t, err)
	nullable, err := CreateSchema(reflect.TypeOf(testNullable{}))
	require.NoError(t, err)

	tests := []struct {
		name    string
		schema  map[string]any
		payload string
		field   string
	}{
		{name: "required string", schema: summary, payload: `{"title":null,"bullets":[]}`, field: "title"},
		{name: "required array", schema: summary, payload: `{"title":"T","bullets":null}`, field: "bullets"},
		{name: "array item", schema: summary, payload: `{"title":"T","bullets":["a",null]}`, field: "bullets[1]"},
		{name: "whole payload", schema: summary, payload: `null`, field: ""},
		{name: "optional field", schema: summary, payload: `{"title":"T","bullets":[],"score":null,"author":null}`},
		{name: "pointer field", schema: nullable, payload: `{"name":"n","nickname":null,"tag":"x"}`},
		{name: "nullable tag", schema: nullable, payload: `{"name":"n","nickname":"nn","tag":null}`},
		{name: "plain field", schema: nullable, payload: `{"name":null,"nickname":null,"tag":null}`, field: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(decode(t, tt.payload), tt.schema)
			if tt.field == "" && tt.name != "whole payload" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Contains(t, verr.Message, "got null")
		})
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
