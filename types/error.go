package types

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

var (
	_ error = &ValidationError{}
	_ error = ValidationErrors{}
	_ error = &ResolutionError{}
	_ error = &CodegenError{}
	_ error = &InternalError{}
)

// ErrEmptyProgram is returned by reverse compilation when the text holds no node markers.
const ErrEmptyProgram = errors.ConstError("empty program: no workflow node markers found")

// ValidationError is one field-scoped problem in the input graph.
type ValidationError struct {
	Kind    ValidationKind `json:"kind"`
	NodeID  string         `json:"nodeId,omitempty"`
	EdgeID  string         `json:"edgeId,omitempty"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
}

func NewValidationError(kind ValidationKind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) WithNode(nodeID string) *ValidationError {
	e.NodeID = nodeID
	return e
}

func (e *ValidationError) WithEdge(edgeID string) *ValidationError {
	e.EdgeID = edgeID
	return e
}

func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ValidationError) Unwrap() error { return errors.NotValid }

// ValidationErrors carries every independent problem found in one pass.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, 0, len(es))
	for _, e := range es {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("%d validation error(s): %s", len(es), strings.Join(msgs, "; "))
}

func (es ValidationErrors) Unwrap() error { return errors.NotValid }

// Has reports whether a problem of kind was collected.
func (es ValidationErrors) Has(kind ValidationKind) bool {
	for _, e := range es {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func (es ValidationErrors) Kinds() []ValidationKind {
	kinds := make([]ValidationKind, 0, len(es))
	for _, e := range es {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// ResolutionError reports why a template reference could not be resolved.
type ResolutionError struct {
	Kind ResolutionKind
	Ref  TemplateReference
	At   string
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case UnknownNode:
		return fmt.Sprintf("%s: node %q has no sample data", e.Kind, e.Ref.RefNodeID)
	default:
		return fmt.Sprintf("%s: %s.%s has no key %q", e.Kind, e.Ref.RefNodeID, e.Ref.Accessor, e.At)
	}
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{unwrapErr(otherErr)}
}

func unwrapErr(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(wrappedErr); ok {
		return unwrapErr(ue.UnwrapLocal())
	}
	return err
}

type wrappedErr interface {
	UnwrapLocal() error
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	return e.BaseErr.Error()
}

func (e *baseError) UnwrapLocal() error {
	return e.BaseErr
}

// CodegenError aborts a whole compilation, there is no partial program.
type CodegenError struct {
	*baseError
	NodeID   string
	NodeType string
}

func NewCodegenError(nodeID, nodeType string, otherErr error) error {
	return &CodegenError{baseError: newBaseErr(otherErr), NodeID: nodeID, NodeType: nodeType}
}

func NewCodegenErrorf(nodeID, nodeType string, format string, args ...any) error {
	return NewCodegenError(nodeID, nodeType, errors.Errorf(format, args...))
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("codegen failed on node %s (%s): %s", e.NodeID, e.NodeType, e.BaseErr)
}

func (e *CodegenError) Unwrap() error { return errors.NotSupported }

// InternalError marks failures that are neither validation nor not-found class,
// e.g. a node type strategy panicking during lookup or generation.
type InternalError struct {
	*baseError
}

func NewInternalErrorf(format string, args ...any) error {
	return &InternalError{baseError: newBaseErr(errors.Errorf(format, args...))}
}

func IsValidation(err error) bool {
	return errors.Is(err, errors.NotValid)
}

func IsNotFound(err error) bool {
	return errors.Is(err, errors.NotFound)
}

func IsBadRequest(err error) bool {
	return errors.Is(err, errors.BadRequest)
}

func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}
