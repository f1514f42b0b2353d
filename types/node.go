package types

// Position is where the editor placed a node on the canvas. The engine
// carries it around but never looks at it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the editor-authored payload of a node. Config holds the
// handler-specific settings (endpoint, prompt, chat id, ...). OriginalType
// is set when the editor re-skins a node; when present it wins over
// Node.Type for dispatch.
type NodeData struct {
	Label        string `json:"label,omitempty"`
	Icon         string `json:"icon,omitempty"`
	OriginalType string `json:"originalType,omitempty"`
	Config       Data   `json:"config,omitempty"`
}

// Node is one typed unit of work in a workflow graph. Identity is ID,
// dispatch is by type (dotted taxonomy, e.g. "trigger.manual",
// "llm.gemini"). Nodes are read-only during a run.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// EffectiveType is the type string used for handler dispatch.
func (n *Node) EffectiveType() string {
	if n.Data.OriginalType != "" {
		return n.Data.OriginalType
	}
	return n.Type
}

// Connection is a directed edge: To depends on From.
type Connection struct {
	ID   string `json:"id"`
	From string `json:"fromNodeId"`
	To   string `json:"toNodeId"`
}

// Workflow is the unit of execution: an immutable snapshot of nodes and
// connections, read once at run start.
type Workflow struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId,omitempty"`
	Name        string       `json:"name,omitempty"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// ResolvedNode is what a handler actually receives: the node plus the ids
// of the nodes feeding it, in connection input order.
type ResolvedNode struct {
	Node

	Parents []string
}
