// Package output selects how raw model text becomes the declared Go return
// type of a prompt function and produces the format instructions that are
// appended to the prompt.
//
// The decision is keyed by the type alone:
//
//	string, any       raw text, unmodified
//	struct, *struct   JSON object validated against the type's JSON schema
//	map[string]V      JSON object whose "output" key holds the value
//	[]E               one completion per element, each decoded as E
package output
