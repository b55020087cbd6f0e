package report

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is an insertion-ordered YAML header for markdown files.
type Frontmatter struct {
	keys   []string
	values map[string]any
}

// NewFrontmatter creates an empty frontmatter.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{values: make(map[string]any)}
}

// Set adds or replaces a field. Replacing keeps the original position.
func (f *Frontmatter) Set(key string, value any) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns a field value.
func (f *Frontmatter) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Render returns the header with "---" delimiters, or "" when empty.
func (f *Frontmatter) Render() (string, error) {
	if len(f.keys) == 0 {
		return "", nil
	}
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range f.keys {
		var v yaml.Node
		if err := v.Encode(f.values[k]); err != nil {
			return "", fmt.Errorf("encoding frontmatter %s: %w", k, err)
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &v)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(out)
	sb.WriteString("---\n\n")
	return sb.String(), nil
}
