// Package parser extracts frontmatter, title and image embeds from Markdown
// notes.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/inkpad/internal/models"
)

// imageRe matches ![alt](target) and ![alt](<target>); alt may contain
// backslash escapes.
var imageRe = regexp.MustCompile(`!\[((?:\\.|[^\\\]])*)\]\((?:<([^<>\n]+)>|([^)\s]+))\)`)

var unescapeRe = regexp.MustCompile(`\\(.)`)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	// BodyLine is the 1-based line of the file where Body starts.
	BodyLine int
	Title    string
	Embeds   []models.Embed
}

// Parse extracts frontmatter, body, title and image embeds from raw Markdown.
// Embed lines are numbered from the top of the file.
func Parse(data []byte) (*Result, error) {
	fm, body, bodyLine, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	embeds := extractEmbeds(body)
	for i := range embeds {
		embeds[i].Line += bodyLine - 1
	}
	return &Result{
		Frontmatter: fm,
		Body:        body,
		BodyLine:    bodyLine,
		Title:       deriveTitle(fm, body),
		Embeds:      embeds,
	}, nil
}

// Attachments returns the embeds whose URL points into prefix.
func (r *Result) Attachments(prefix string) []models.Embed {
	var out []models.Embed
	for _, e := range r.Embeds {
		if strings.HasPrefix(e.URL, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, int, error) {
	const delim = "---"
	if !bytes.HasPrefix(data, []byte(delim)) {
		return nil, string(data), 1, nil
	}

	rest := data[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), 1, nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	// Drop the remainder of the closing delimiter line.
	if nl := bytes.IndexByte(afterDelim, '\n'); nl >= 0 {
		afterDelim = afterDelim[nl+1:]
	} else {
		afterDelim = nil
	}

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: treat everything as body.
		return nil, string(data), 1, nil
	}

	consumed := len(data) - len(afterDelim)
	bodyLine := bytes.Count(data[:consumed], []byte("\n")) + 1
	return fm, string(afterDelim), bodyLine, nil
}

func extractEmbeds(body string) []models.Embed {
	var out []models.Embed
	for i, line := range strings.Split(body, "\n") {
		for _, m := range imageRe.FindAllStringSubmatch(line, -1) {
			target := m[2]
			if target == "" {
				target = m[3]
			}
			out = append(out, models.Embed{
				Alt:  unescapeRe.ReplaceAllString(m[1], "$1"),
				URL:  target,
				Line: i + 1,
			})
		}
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
