package compiler

import (
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/template"
	"github.com/warriorguo/wfcompiler/types"
	"github.com/warriorguo/wfcompiler/utils"
)

// renderValue renders a config value as a TypeScript expression.
// Objects are written with ": " between key and value, so no config literal
// can be mistaken for a compact marker record.
func renderValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return renderString(val), nil
	case types.Data:
		return renderObject(val)
	case map[string]any:
		return renderObject(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, err := renderValue(item)
			if err != nil {
				return "", errors.Trace(err)
			}
			items = append(items, s)
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	}

	s, err := utils.Literal(v)
	if err != nil {
		return "", errors.Annotatef(err, "render %T", v)
	}
	return s, nil
}

func renderObject(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		s, err := renderValue(m[k])
		if err != nil {
			return "", errors.Annotatef(err, "field %s", k)
		}
		fields = append(fields, utils.Quote(k)+": "+s)
	}
	return "{ " + strings.Join(fields, ", ") + " }", nil
}

// renderString turns templated strings into runtime lookups. A lone template
// keeps the referenced value as is, mixed text is concatenated via __text().
func renderString(s string) string {
	if !template.HasTemplate(s) {
		return utils.Quote(s)
	}

	segments := template.Split(s)
	if len(segments) == 1 && segments[0].Err == nil {
		return refExpr(segments[0].Ref)
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Kind == template.SegmentText || seg.Err != nil {
			parts = append(parts, utils.Quote(seg.Raw))
			continue
		}
		parts = append(parts, "__text("+refExpr(seg.Ref)+")")
	}
	return strings.Join(parts, " + ")
}

func refExpr(ref *types.TemplateReference) string {
	path := make([]string, 0, len(ref.Path))
	for _, p := range ref.Path {
		path = append(path, utils.Quote(p))
	}
	return "__ref(state, payload, " + utils.Quote(ref.RefNodeID) + ", " +
		utils.Quote(string(ref.Accessor)) + ", [" + strings.Join(path, ", ") + "])"
}
