package marker

type NodeStatus string

const (
	NodeRunning   NodeStatus = "running"
	NodeSucceeded NodeStatus = "succeeded"
	NodeFailed    NodeStatus = "failed"
)

type NodeRun struct {
	NodeID    string     `json:"nodeId"`
	NodeLabel string     `json:"nodeLabel"`
	NodeType  string     `json:"nodeType"`
	StartedAt int64      `json:"startedAt"`
	EndedAt   int64      `json:"endedAt,omitempty"`
	Status    NodeStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
}

// RunSummary is one run folded from its trace records.
type RunSummary struct {
	InstanceID string    `json:"instanceId"`
	StartedAt  int64     `json:"startedAt"`
	EndedAt    int64     `json:"endedAt,omitempty"`
	Finished   bool      `json:"finished"`
	Failed     bool      `json:"failed"`
	Nodes      []NodeRun `json:"nodes"`
	Results    any       `json:"results,omitempty"`
}

// Summarize folds records in trace order. End and error records close the most
// recent running node, mirroring Parse.
func Summarize(records []Record) *RunSummary {
	s := &RunSummary{Nodes: []NodeRun{}}
	running := make([]int, 0)

	closeTop := func(ts int64, status NodeStatus, errMsg string) {
		if len(running) == 0 {
			return
		}
		idx := running[len(running)-1]
		running = running[:len(running)-1]
		s.Nodes[idx].EndedAt = ts
		s.Nodes[idx].Status = status
		s.Nodes[idx].Error = errMsg
	}

	for _, r := range records {
		switch v := r.(type) {
		case *Start:
			s.InstanceID = v.InstanceID
			s.StartedAt = v.Timestamp
		case *NodeStart:
			s.Nodes = append(s.Nodes, NodeRun{
				NodeID:    v.NodeID,
				NodeLabel: v.NodeLabel,
				NodeType:  v.NodeType,
				StartedAt: v.Timestamp,
				Status:    NodeRunning,
			})
			running = append(running, len(s.Nodes)-1)
		case *NodeEnd:
			status := NodeSucceeded
			if !v.Success {
				status = NodeFailed
				s.Failed = true
			}
			closeTop(v.Timestamp, status, "")
		case *NodeError:
			s.Failed = true
			closeTop(v.Timestamp, NodeFailed, v.Error)
		case *End:
			s.Finished = true
			s.EndedAt = v.Timestamp
			s.Results = v.Results
		}
	}
	return s
}
