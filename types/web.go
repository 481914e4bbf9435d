package types

// ------------------------
// Web control (request/reply over the bus)
// ------------------------

// KeyRequest asks the loop to dispatch one key event (topic web/key).
// Type is "pressed", "repeated" or "double".
type KeyRequest struct {
	Key      int    `json:"key"`
	Type     string `json:"type"`
	Repeated uint16 `json:"repeated,omitempty"`
}

// RingCommand is the payload of web/ring/<verb>. Arg carries the delta for
// brightness, width and shift; Scene names the scene for "scene".
type RingCommand struct {
	Arg   int    `json:"arg,omitempty"`
	Scene string `json:"scene,omitempty"`
}

// CommandReply answers a KeyRequest or RingCommand.
type CommandReply struct {
	OK       bool   `json:"ok"`
	Consumed bool   `json:"consumed"`
	Error    string `json:"error,omitempty"`
}
