package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the only supported JSON-RPC version.
const Version = "2.0"

// Request - JSON-RPC request packet. Without an ID it is a notification.
type Request struct {
	Protocol string            `json:"jsonrpc"`
	ID       string            `json:"id,omitempty"`
	Method   string            `json:"method"`
	Params   map[string]string `json:"params"`
}

// Notification builds an ID-less request.
func Notification(method string, params map[string]string) *Request {
	return &Request{
		Protocol: Version,
		Method:   method,
		Params:   params,
	}
}

// JSON - convert struct to json
func (r *Request) JSON() (string, error) {
	r.Protocol = Version
	bin, err := json.Marshal(r)
	return string(bin), err
}

// String representation
func (r *Request) String() string {
	return fmt.Sprintf("id=%s method=%s params=%s", r.ID, r.Method, r.Params)
}
