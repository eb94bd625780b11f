package vault

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterDelim separates YAML front-matter from the markdown body.
const frontmatterDelim = "---"

// SplitFrontmatter splits a record's raw content into the YAML block and
// the body. Expected format:
//
//	---
//	<YAML>
//	---
//	<body>
func SplitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(trimmed, frontmatterDelim+"\n") {
		return "", "", fmt.Errorf("file does not start with %s front-matter delimiter", frontmatterDelim)
	}
	rest := trimmed[len(frontmatterDelim)+1:]
	idx := strings.Index(rest, "\n"+frontmatterDelim)
	if idx < 0 {
		return "", "", fmt.Errorf("missing closing %s front-matter delimiter", frontmatterDelim)
	}
	yamlBlock := rest[:idx+1]
	body := rest[idx+1+len(frontmatterDelim):]
	// The blank separator line between delimiter and body is formatting,
	// not content.
	body = strings.TrimLeft(body, "\n")
	return yamlBlock, body, nil
}

// rawRecord mirrors Entity but keeps list fields loosely typed so a scalar
// value is accepted where a list is expected. External editors write both
// forms; the original vault tolerated both.
type rawRecord struct {
	ID         string    `yaml:"id"`
	Title      string    `yaml:"title"`
	Status     string    `yaml:"status"`
	Workstream string    `yaml:"workstream"`
	Parent     string    `yaml:"parent"`
	Milestone  string    `yaml:"milestone"` // legacy alias for parent on stories
	DependsOn  yaml.Node `yaml:"depends_on"`
	BlockedBy  yaml.Node `yaml:"blocked_by"`
	Implements yaml.Node `yaml:"implements"`
	Enables    yaml.Node `yaml:"enables"`
	ImplBy     yaml.Node `yaml:"implemented_by"`
	Supersedes string    `yaml:"supersedes"`
	Archived   bool      `yaml:"archived"`
	Created    string    `yaml:"created"`
	Updated    string    `yaml:"updated"`
	ArchivedAt string    `yaml:"archived_at"`
}

// ParseEntity decodes a full record (front-matter plus body) into an Entity.
func ParseEntity(content string) (*Entity, error) {
	yamlBlock, body, err := SplitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	var raw rawRecord
	if err := yaml.Unmarshal([]byte(yamlBlock), &raw); err != nil {
		return nil, fmt.Errorf("parsing front-matter: %w", err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("front-matter has no id field")
	}
	if _, err := TypeForID(raw.ID); err != nil {
		return nil, err
	}

	e := &Entity{
		ID:         raw.ID,
		Title:      raw.Title,
		Status:     raw.Status,
		Workstream: raw.Workstream,
		Parent:     raw.Parent,
		Supersedes: raw.Supersedes,
		Archived:   raw.Archived,
		Body:       body,
	}
	if e.Parent == "" {
		e.Parent = raw.Milestone
	}
	e.DependsOn = listField(raw.DependsOn)
	e.BlockedBy = listField(raw.BlockedBy)
	e.Implements = listField(raw.Implements)
	e.Enables = listField(raw.Enables)
	e.ImplementedBy = listField(raw.ImplBy)

	e.Created = parseTimestamp(raw.Created)
	e.Updated = parseTimestamp(raw.Updated)
	if t := parseTimestamp(raw.ArchivedAt); !t.IsZero() {
		e.ArchivedAt = &t
	}
	return e, nil
}

// listField accepts a YAML sequence or a bare scalar and normalizes both
// to a string slice. Empty scalars and null nodes yield nil.
func listField(node yaml.Node) []string {
	switch node.Kind {
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if v := strings.TrimSpace(item.Value); v != "" {
				out = append(out, v)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case yaml.ScalarNode:
		v := strings.TrimSpace(node.Value)
		if v == "" || v == "~" || v == "null" {
			return nil
		}
		// Comma-separated scalars show up in hand-edited files.
		if strings.Contains(v, ",") {
			parts := strings.Split(v, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
		return []string{v}
	default:
		return nil
	}
}

// MarshalEntity renders an Entity back to full record text: YAML
// front-matter between --- delimiters, then the body verbatim.
func MarshalEntity(e *Entity) ([]byte, error) {
	fm, err := yaml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling front-matter: %w", err)
	}
	var b strings.Builder
	b.WriteString(frontmatterDelim)
	b.WriteString("\n")
	b.Write(fm)
	b.WriteString(frontmatterDelim)
	b.WriteString("\n")
	if e.Body != "" {
		b.WriteString("\n")
		b.WriteString(e.Body)
		if !strings.HasSuffix(e.Body, "\n") {
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}
