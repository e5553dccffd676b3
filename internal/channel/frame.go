package channel

import "encoding/json"

// FrameType discriminates wire frames.
type FrameType string

// Wire frame types.
const (
	FrameConnect      FrameType = "connect"
	FrameConnectError FrameType = "connect_error"
	FrameEvent        FrameType = "event"
	FrameAck          FrameType = "ack"
	FrameDisconnect   FrameType = "disconnect"
)

// Frame is one JSON message on the wire.
//
//	client -> server  {"type":"connect","auth":{"token":"..."}}
//	server -> client  {"type":"connect","data":{"id":"..."}} or {"type":"connect_error","error":"..."}
//	client -> server  {"type":"event","event":"message","id":7,"data":{...}}
//	server -> client  {"type":"ack","id":7,"data":{...}}
//	server -> client  {"type":"event","event":"notification","data":{...}}
//	server -> client  {"type":"disconnect","reason":"io server disconnect"}
type Frame struct {
	Auth   *Auth           `json:"auth,omitempty"`
	Type   FrameType       `json:"type"`
	Event  string          `json:"event,omitempty"`
	Error  string          `json:"error,omitempty"`
	Reason string          `json:"reason,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	ID     uint64          `json:"id,omitempty"`
}

// Auth is the handshake auth payload.
type Auth struct {
	Token string `json:"token"`
}
