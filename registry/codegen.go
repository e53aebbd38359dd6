package registry

import (
	"github.com/juju/errors"
	"github.com/warriorguo/wfcompiler/types"
	"github.com/warriorguo/wfcompiler/utils"
)

// CodegenStrategy renders the node specific body of a durable step.
// The emitter puts `input` (the resolved config, Record<string, any>) in scope
// and expects the returned lines to declare `const output`.
type CodegenStrategy interface {
	Generate(gc *GenContext) ([]string, error)
}

type CodegenFunc func(gc *GenContext) ([]string, error)

func (f CodegenFunc) Generate(gc *GenContext) ([]string, error) {
	return f(gc)
}

type GenContext struct {
	Node     types.NodeInstance
	Bindings []types.BindingDecl
}

// Env returns the accessor of the first binding of bindingType declared by the node.
func (gc *GenContext) Env(bindingType string) (string, error) {
	for _, b := range gc.Bindings {
		if b.Type == bindingType {
			return "this.env[" + utils.Quote(b.Name) + "]", nil
		}
	}
	return "", errors.NotValidf("node %s has no %s binding configured", gc.Node.ID, bindingType)
}

// Input returns the expression reading key from the resolved config.
func (gc *GenContext) Input(key string) string {
	return "input[" + utils.Quote(key) + "]"
}

// Lines is a convenience strategy for bodies that need no binding.
func Lines(lines ...string) CodegenStrategy {
	return CodegenFunc(func(gc *GenContext) ([]string, error) {
		return lines, nil
	})
}
