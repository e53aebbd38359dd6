package marker

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/warriorguo/wfcompiler/types"
)

var (
	kindPattern = regexp.MustCompile(`\{"type":"(WF_START|WF_NODE_START|WF_NODE_END|WF_NODE_ERROR|WF_END)"`)

	nodeIDPattern    = fieldPattern("nodeId")
	nodeLabelPattern = fieldPattern("nodeLabel")
	nodeTypePattern  = fieldPattern("nodeType")
)

func fieldPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + name + `"\s*:\s*("(?:[^"\\]|\\.)*")`)
}

// Match returns the kind of the first marker literal on line.
func Match(line string) (Kind, bool) {
	m := kindPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return Kind(m[1]), true
}

// field extracts a static string field following the marker start on line.
func field(line string, p *regexp.Regexp) string {
	loc := kindPattern.FindStringIndex(line)
	if loc == nil {
		return ""
	}
	m := p.FindStringSubmatch(line[loc[0]:])
	if m == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(m[1]), &s); err != nil {
		return ""
	}
	return s
}

// Lines splits text into lines, dropping one trailing newline and any carriage returns.
func Lines(text string) []string {
	if text == "" {
		return []string{}
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Parse recovers per node line spans from emitted program text or from a runtime trace.
//
// A NODE_START pushes, a NODE_END or NODE_ERROR pops the top of the stack whatever
// its node id and closes that span on the current line. Spans are returned in the
// order they close; spans still open at the end are closed on the last line.
// The result is only meaningful when starts and ends are well nested, which the
// emitter guarantees and the parser does not check.
func Parse(text string) []types.ParsedNodeSpan {
	lines := Lines(text)
	spans := make([]types.ParsedNodeSpan, 0)
	stack := make([]types.ParsedNodeSpan, 0)

	for i, line := range lines {
		kind, ok := Match(line)
		if !ok {
			continue
		}
		lineNo := i + 1
		switch kind {
		case KindNodeStart:
			stack = append(stack, types.ParsedNodeSpan{
				NodeID:    field(line, nodeIDPattern),
				NodeLabel: field(line, nodeLabelPattern),
				NodeType:  field(line, nodeTypePattern),
				StartLine: lineNo,
			})
		case KindNodeEnd, KindNodeError:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.EndLine = lineNo
			spans = append(spans, top)
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		top.EndLine = len(lines)
		spans = append(spans, top)
	}
	return spans
}

// SpanAt returns the innermost span covering line, for click-to-navigate.
func SpanAt(spans []types.ParsedNodeSpan, line int) (types.ParsedNodeSpan, bool) {
	var (
		best  types.ParsedNodeSpan
		found bool
	)
	for _, s := range spans {
		if line < s.StartLine || line > s.EndLine {
			continue
		}
		if !found || s.EndLine-s.StartLine < best.EndLine-best.StartLine {
			best, found = s, true
		}
	}
	return best, found
}
