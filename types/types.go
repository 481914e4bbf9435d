package types

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Operating state (retained) ----

// ModeState is published on state/mode.
type ModeState struct {
	Mode    string `json:"mode"`              // "provisioning", "normal", "offline"
	Address string `json:"address,omitempty"` // network address once joined
	TS      int64  `json:"ts_ms"`
}

// Link is the state reported for an optional subsystem.
type Link string

const (
	LinkUp   Link = "up"
	LinkDown Link = "down"
)

// SubsystemStatus is published on state/<subsystem> when setup finishes.
type SubsystemStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"`
}
