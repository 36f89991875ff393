package messages

// RPCReply is what the device publishes on from_device once an
// rpc_request has been processed.
type RPCReply struct {
	Kind string `json:"kind"` // rpc_ok | rpc_error
	Args struct {
		Label string `json:"label"`
	} `json:"args"`
	Body []CeleryNode `json:"body,omitempty"`
}

// OK reports whether the request succeeded.
func (r RPCReply) OK() bool { return r.Kind == KindRPCOk }

// Explanation returns the first explanation message of an rpc_error.
func (r RPCReply) Explanation() string {
	for _, n := range r.Body {
		if n.Kind != "explanation" {
			continue
		}
		if msg, ok := n.Args["message"].(string); ok {
			return msg
		}
	}
	return ""
}
