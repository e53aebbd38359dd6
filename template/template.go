// Package template implements the {{...}} data-flow expressions used in node configs.
//
// Grammar:
//
//	"{{" ws? ("state" ".")? nodeId ("." segment)* ws? "}}"
//
// nodeId and segment are bare identifiers made of letters, digits, '_', '$' and '-'.
// There is no index or filter syntax.
package template

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/types"
	"github.com/warriorguo/wfcompiler/utils"
)

const statePrefix = "state"

var (
	tokenPattern      = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_$-]+$`)
)

type SegmentKind string

const (
	SegmentText     SegmentKind = "text"
	SegmentTemplate SegmentKind = "template"
)

// Segment is one piece of a config string. Concatenating Raw of every segment
// gives back the original string byte for byte.
type Segment struct {
	Kind SegmentKind              `json:"kind"`
	Raw  string                   `json:"raw"`
	Ref  *types.TemplateReference `json:"ref,omitempty"`
	// Err is set on template segments whose body does not follow the grammar.
	Err error `json:"-"`
}

// Split splits value into alternating literal and template pieces.
func Split(value string) []Segment {
	segments := make([]Segment, 0)
	last := 0
	for _, loc := range tokenPattern.FindAllStringIndex(value, -1) {
		if loc[0] > last {
			segments = append(segments, Segment{Kind: SegmentText, Raw: value[last:loc[0]]})
		}
		raw := value[loc[0]:loc[1]]
		ref, err := ParseReference(raw)
		segments = append(segments, Segment{Kind: SegmentTemplate, Raw: raw, Ref: ref, Err: err})
		last = loc[1]
	}
	if last < len(value) {
		segments = append(segments, Segment{Kind: SegmentText, Raw: value[last:]})
	}
	return segments
}

// HasTemplate reports whether value carries at least one {{...}} token.
func HasTemplate(value string) bool {
	return tokenPattern.MatchString(value)
}

// ParseReference parses one token, with or without its surrounding braces.
func ParseReference(token string) (*types.TemplateReference, error) {
	body := strings.TrimSpace(token)
	if strings.HasPrefix(body, "{{") && strings.HasSuffix(body, "}}") {
		body = strings.TrimSpace(body[2 : len(body)-2])
	}
	if body == "" {
		return nil, errors.NotValidf("empty template expression %q", token)
	}

	parts := utils.ParsePath(body)
	for _, p := range parts {
		if !identifierPattern.MatchString(p) {
			return nil, errors.NotValidf("template expression %q segment %q", token, p)
		}
	}
	if parts[0] == statePrefix && len(parts) > 1 {
		parts = parts[1:]
	}

	ref := &types.TemplateReference{RefNodeID: parts[0], Accessor: types.AccessorOutput, Path: []string{}}
	rest := parts[1:]
	if len(rest) > 0 {
		switch types.Accessor(rest[0]) {
		case types.AccessorInput:
			ref.Accessor = types.AccessorInput
			rest = rest[1:]
		case types.AccessorOutput:
			rest = rest[1:]
		}
	}
	ref.Path = append(ref.Path, rest...)
	return ref, nil
}

// Format renders ref in its canonical form.
func Format(ref *types.TemplateReference) string {
	parts := append([]string{statePrefix, ref.RefNodeID, string(ref.Accessor)}, ref.Path...)
	return "{{" + strings.Join(parts, ".") + "}}"
}

// RenameNode rewrites every reference to from so it points at to, leaving the
// rest of value untouched.
func RenameNode(value, from, to string) string {
	sb := &strings.Builder{}
	for _, seg := range Split(value) {
		if seg.Kind == SegmentTemplate && seg.Err == nil && seg.Ref.RefNodeID == from {
			renamed := *seg.Ref
			renamed.RefNodeID = to
			sb.WriteString(Format(&renamed))
			continue
		}
		sb.WriteString(seg.Raw)
	}
	return sb.String()
}

// Walk visits every string value of config, nested maps and lists included,
// in sorted key order. field is the dotted path of the value.
func Walk(config types.Data, fn func(field string, value string)) {
	for _, key := range config.Keys() {
		walkValue(utils.NewPath(key), config[key], fn)
	}
}

func walkValue(path utils.Path, value any, fn func(field string, value string)) {
	switch v := value.(type) {
	case string:
		fn(path.String(), v)
	case types.Data:
		for _, key := range v.Keys() {
			walkValue(path.AddString(key), v[key], fn)
		}
	case map[string]any:
		for _, key := range utils.SortedKeys(v) {
			walkValue(path.AddString(key), v[key], fn)
		}
	case []any:
		for i, inner := range v {
			walkValue(path.AddString(strconv.Itoa(i)), inner, fn)
		}
	}
}
