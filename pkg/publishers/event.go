package publishers

import "time"

// Block change actions.
const (
	ActionAppended = "block.appended"
	ActionUpdated  = "block.updated"
	ActionDeleted  = "block.deleted"
)

// Event represents a block change published downstream.
type Event struct {
	Action     string    `json:"action"`
	BlockID    string    `json:"block_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	BlockType  string    `json:"block_type,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event stamped with the current UTC time.
func NewEvent(action, blockID, parentID, blockType string) Event {
	return Event{
		Action:     action,
		BlockID:    blockID,
		ParentID:   parentID,
		BlockType:  blockType,
		OccurredAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to queue messages.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"action":   e.Action,
		"block_id": e.BlockID,
	}
	if e.ParentID != "" {
		attrs["parent_id"] = e.ParentID
	}
	return attrs
}
