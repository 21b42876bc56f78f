package prompt

import (
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"

	"github.com/hupe1980/slick/internal/util"
)

// Template is an immutable, parsed prompt template. It is safe for
// concurrent rendering.
type Template struct {
	text string
	tmpl *template.Template
}

// Build creates the template for a prompt function: the cleaned doc text,
// followed by the escaped format instructions when non-empty.
func Build(doc, instructions string) (Template, error) {
	text := CleanDoc(doc)
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		if text != "" {
			text += "\n\n"
		}
		text += Escape(instructions)
	}

	tmpl, err := util.ParseTemplate("prompt", text)
	if err != nil {
		return Template{}, errors.Wrap(err, "failed to parse prompt template")
	}
	return Template{text: text, tmpl: tmpl}, nil
}

// Text returns the template source.
func (t Template) Text() string { return t.text }

// Render executes the template. Declared parameters missing from args
// render as empty strings; references to undeclared names fail.
func (t Template) Render(params []Param, args Args) (string, error) {
	if t.tmpl == nil {
		return "", errors.New("prompt template not built")
	}

	state := make(map[string]any, len(params)+len(args))
	for _, p := range params {
		state[p.Name] = ""
	}
	for k, v := range args {
		state[k] = v
	}

	out, err := util.ExecuteTemplate(t.tmpl, state)
	if err != nil {
		return "", errors.Wrap(err, "failed to render prompt")
	}
	return out, nil
}

// Escape makes s render literally inside a template.
func Escape(s string) string {
	return strings.ReplaceAll(s, "{{", `{{"{{"}}`)
}

// CleanDoc dedents documentation text: tabs expand to 8 spaces, the first
// line is stripped, the common indentation of the remaining lines is
// removed, and leading and trailing blank lines are dropped.
func CleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")

	margin := -1
	for _, line := range lines[1:] {
		content := strings.TrimLeft(line, " ")
		if content == "" {
			continue
		}
		if indent := len(line) - len(content); margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) < margin {
				lines[i] = ""
				continue
			}
			lines[i] = lines[i][margin:]
		}
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
