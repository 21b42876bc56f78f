package output

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// extractObject finds the JSON object in raw model text. Models often wrap
// JSON in markdown fences or add a sentence around it.
func extractObject(raw string) (gjson.Result, error) {
	text := strings.TrimSpace(raw)

	candidates := []string{text}
	if fenced, ok := fencedBlock(text); ok {
		candidates = append(candidates, fenced)
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}

	for _, c := range candidates {
		if !gjson.Valid(c) {
			continue
		}
		res := gjson.Parse(c)
		if !res.IsObject() {
			return gjson.Result{}, errors.Newf("expected a JSON object, got %s", res.Type)
		}
		return res, nil
	}
	return gjson.Result{}, errors.New("no JSON object found")
}

// fencedBlock returns the body of the first ``` fenced block.
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	body := text[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:] // drop the info string, e.g. "json"
	}
	end := strings.Index(body, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:end]), true
}
