// Package step implements prompt functions: typed Go functions whose body is
// a language model call.
//
// A Func is built once from a prompt template, parameter declarations and a
// return type. Calling it resolves the (model, provider) pair, obtains a
// chat client from a ChatFactory, renders the template with the call
// arguments and decodes the completion into the return type:
//
//	summarize, err := step.New[Summary](sl, `
//		Summarize the following text:
//		{{.text}}
//	`, step.WithName("summarize"), step.WithParams("text"))
//
//	s, err := summarize.Call(ctx, prompt.Args{"text": article})
//
// A slice return type together with WithN(n > 1) requests n completions in
// one call and decodes each into an element, in generation order.
package step
