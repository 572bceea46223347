package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadResult is the outcome of reading a settings file.
type LoadResult struct {
	Settings Settings
	// Warnings lists every value that was replaced or clamped.
	Warnings []*ValidationError
	// doc is the parsed file, kept so that unknown keys survive a rewrite.
	doc *yaml.Node
}

// Parse decodes settings from YAML bytes on top of the shipped defaults.
// Syntax errors are returned; per-key type errors and range violations are
// recovered and reported as warnings.
func Parse(data []byte) (*LoadResult, error) {
	def := DefaultSettings()
	res := &LoadResult{Settings: def.Clone()}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return res, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
			return res, nil
		}
		return nil, fmt.Errorf("failed to parse settings: top level must be a mapping")
	}
	res.doc = &doc

	if err := doc.Decode(&res.Settings); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
		for _, msg := range typeErr.Errors {
			res.Warnings = append(res.Warnings, &ValidationError{Err: errors.New(msg + ", using default")})
		}
	}

	warnings := normalize(&res.Settings, def)
	for _, w := range warnings {
		w.Line = lineOf(root, w.Path)
	}
	res.Warnings = append(res.Warnings, warnings...)
	return res, nil
}

// lineOf finds the line of a "section.key" path in the document, or 0.
func lineOf(root *yaml.Node, path string) int {
	section, key, ok := cutPath(path)
	if !ok {
		return 0
	}
	sec := mappingValue(root, section)
	if sec == nil {
		return 0
	}
	if val := mappingValue(sec, key); val != nil {
		return val.Line
	}
	return 0
}

func cutPath(path string) (string, string, bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:], true
		}
	}
	return "", "", false
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// render serializes s, merging it into doc so that keys and sections this
// version does not know about are written back unchanged.
func render(s Settings, doc *yaml.Node) ([]byte, error) {
	var fresh yaml.Node
	if err := fresh.Encode(&s); err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}

	out := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{&fresh}}
	if doc != nil && len(doc.Content) > 0 && doc.Content[0].Kind == yaml.MappingNode {
		mergeMapping(doc.Content[0], &fresh)
		out = doc
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}

// mergeMapping overwrites dst's values with src's, recursing into nested
// mappings and appending keys dst lacks. Keys only dst has are left alone.
func mergeMapping(dst, src *yaml.Node) {
	for i := 0; i+1 < len(src.Content); i += 2 {
		key, val := src.Content[i], src.Content[i+1]
		existing := mappingValue(dst, key.Value)
		switch {
		case existing == nil:
			dst.Content = append(dst.Content, key, val)
		case existing.Kind == yaml.MappingNode && val.Kind == yaml.MappingNode:
			mergeMapping(existing, val)
		default:
			head, line, foot := existing.HeadComment, existing.LineComment, existing.FootComment
			*existing = *val
			existing.HeadComment, existing.LineComment, existing.FootComment = head, line, foot
		}
	}
}
