// Package marker holds the diagnostic record grammar shared by the emitted
// program, its runtime trace, the editor highlighter and the reverse compiler.
//
// Every record is one object literal on its own line whose first key is "type",
// written compact: {"type":"WF_NODE_START",...}. Consumers only ever see text.
package marker

import (
	"github.com/warriorguo/wfcompiler/utils"
)

type Kind string

const (
	KindStart     Kind = "WF_START"
	KindNodeStart Kind = "WF_NODE_START"
	KindNodeEnd   Kind = "WF_NODE_END"
	KindNodeError Kind = "WF_NODE_ERROR"
	KindEnd       Kind = "WF_END"
)

type Record interface {
	Kind() Kind
}

var (
	_ Record = &Start{}
	_ Record = &NodeStart{}
	_ Record = &NodeEnd{}
	_ Record = &NodeError{}
	_ Record = &End{}
)

type Start struct {
	Type       Kind   `json:"type"`
	InstanceID string `json:"instanceId"`
	Timestamp  int64  `json:"timestamp"`
	Payload    any    `json:"payload"`
}

type NodeStart struct {
	Type      Kind   `json:"type"`
	NodeID    string `json:"nodeId"`
	NodeLabel string `json:"nodeLabel"`
	NodeType  string `json:"nodeType"`
	Timestamp int64  `json:"timestamp"`
}

type NodeEnd struct {
	Type      Kind   `json:"type"`
	NodeID    string `json:"nodeId"`
	Timestamp int64  `json:"timestamp"`
	Success   bool   `json:"success"`
}

type NodeError struct {
	Type      Kind   `json:"type"`
	NodeID    string `json:"nodeId"`
	Timestamp int64  `json:"timestamp"`
	Error     string `json:"error"`
}

type End struct {
	Type      Kind  `json:"type"`
	Timestamp int64 `json:"timestamp"`
	Results   any   `json:"results"`
}

func (*Start) Kind() Kind     { return KindStart }
func (*NodeStart) Kind() Kind { return KindNodeStart }
func (*NodeEnd) Kind() Kind   { return KindNodeEnd }
func (*NodeError) Kind() Kind { return KindNodeError }
func (*End) Kind() Kind       { return KindEnd }

// Encode renders r as one trace line, the way the emitted program prints it.
func Encode(r Record) (string, error) {
	switch v := r.(type) {
	case *Start:
		v.Type = KindStart
	case *NodeStart:
		v.Type = KindNodeStart
	case *NodeEnd:
		v.Type = KindNodeEnd
	case *NodeError:
		v.Type = KindNodeError
	case *End:
		v.Type = KindEnd
	}
	return utils.Literal(r)
}

func statement(fields string) string {
	return "console.log(JSON.stringify({" + fields + "}));"
}

// The statements below are the only places marker literals are written into
// emitted program text. Static values are JSON quoted, runtime values are
// plain expressions.

func StartStatement(instanceExpr, payloadExpr string) string {
	return statement(`"type":"` + string(KindStart) + `","instanceId":` + instanceExpr +
		`,"timestamp":Date.now(),"payload":` + payloadExpr)
}

func NodeStartStatement(nodeID, nodeLabel, nodeType string) string {
	return statement(`"type":"` + string(KindNodeStart) + `","nodeId":` + utils.Quote(nodeID) +
		`,"nodeLabel":` + utils.Quote(nodeLabel) + `,"nodeType":` + utils.Quote(nodeType) +
		`,"timestamp":Date.now()`)
}

func NodeEndStatement(nodeID string) string {
	return statement(`"type":"` + string(KindNodeEnd) + `","nodeId":` + utils.Quote(nodeID) +
		`,"timestamp":Date.now(),"success":true`)
}

func NodeErrorStatement(nodeIDExpr, errorExpr string) string {
	return statement(`"type":"` + string(KindNodeError) + `","nodeId":` + nodeIDExpr +
		`,"timestamp":Date.now(),"error":` + errorExpr)
}

func EndStatement(resultsExpr string) string {
	return statement(`"type":"` + string(KindEnd) + `","timestamp":Date.now(),"results":` + resultsExpr)
}
