package messages

// Kinds of celery script nodes sent to and received from the device.
const (
	KindRPCRequest = "rpc_request"
	KindRPCOk      = "rpc_ok"
	KindRPCError   = "rpc_error"

	KindMoveAbsolute = "move_absolute"
	KindWritePin     = "write_pin"
	KindReadPin      = "read_pin"
	KindExecute      = "execute"
)

// defaultPriority is what the web app uses for interactive RPCs.
const defaultPriority = 600

// CeleryNode is a single celery script node: a kind, its args and an
// optional body of child nodes.
type CeleryNode struct {
	Kind string         `json:"kind"`
	Args map[string]any `json:"args"`
	Body []CeleryNode   `json:"body,omitempty"`
}

// NewRPCRequest wraps body in an rpc_request tagged with label. The device
// answers with an rpc_ok or rpc_error carrying the same label.
func NewRPCRequest(label string, body ...CeleryNode) CeleryNode {
	return CeleryNode{
		Kind: KindRPCRequest,
		Args: map[string]any{"label": label, "priority": defaultPriority},
		Body: body,
	}
}

func coordinate(x, y, z float64) CeleryNode {
	return CeleryNode{Kind: "coordinate", Args: map[string]any{"x": x, "y": y, "z": z}}
}

// MoveAbsolute moves the gantry to (x, y, z) at the given speed percentage.
func MoveAbsolute(x, y, z float64, speed int) CeleryNode {
	return CeleryNode{
		Kind: KindMoveAbsolute,
		Args: map[string]any{
			"location": coordinate(x, y, z),
			"offset":   coordinate(0, 0, 0),
			"speed":    speed,
		},
	}
}

func WritePin(pin, mode, value int) CeleryNode {
	return CeleryNode{
		Kind: KindWritePin,
		Args: map[string]any{"pin_number": pin, "pin_mode": mode, "pin_value": value},
	}
}

func ReadPin(pin, mode int, label string) CeleryNode {
	return CeleryNode{
		Kind: KindReadPin,
		Args: map[string]any{"pin_number": pin, "pin_mode": mode, "label": label},
	}
}

// Execute runs a stored sequence. When toolID is positive it is bound to
// the sequence's "parent" variable, which is how mount/unmount sequences
// receive the tool to handle.
func Execute(sequenceID, toolID int) CeleryNode {
	n := CeleryNode{
		Kind: KindExecute,
		Args: map[string]any{"sequence_id": sequenceID},
	}
	if toolID > 0 {
		n.Body = []CeleryNode{{
			Kind: "parameter_application",
			Args: map[string]any{
				"label": "parent",
				"data_value": CeleryNode{
					Kind: "tool",
					Args: map[string]any{"tool_id": toolID},
				},
			},
		}}
	}
	return n
}
