package types

import "github.com/groupstage/draw-backend/internal/groups"

type ServerMessage struct {
	Type  string        `json:"type"` // "DrawEvent" | "Error"
	Event *groups.Event `json:"event,omitempty"`
	Error string        `json:"error,omitempty"`
}
