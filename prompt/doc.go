// Package prompt turns function metadata into a renderable prompt template
// and binds call-time arguments to it.
//
// The documentation text of a prompt function is dedented and used verbatim
// as the template body. Placeholders use text/template syntax over parameter
// names ({{.text}}) and may use the helpers default, upper, lower, title and
// join. When structured output is requested, format instructions are
// appended after a blank line with their braces escaped so they are never
// mistaken for placeholders.
package prompt
