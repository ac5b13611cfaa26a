package valueobjects

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NodeID identifies a node within one mind map
type NodeID string

// NewNodeIDFromInt renders a counter value as a node id
func NewNodeIDFromInt(n int) NodeID {
	return NodeID(strconv.Itoa(n))
}

// ParseNodeID trims and checks a caller supplied id
func ParseNodeID(s string) (NodeID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return NodeID(s), true
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return string(id)
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id == ""
}

// Numeric reports the integer value of ids produced by the counter
func (id NodeID) Numeric() (int, bool) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, false
	}
	return n, true
}

// EdgeID identifies an edge within one mind map
type EdgeID string

// DeriveEdgeID builds the deterministic "<source>-<target>" id
func DeriveEdgeID(source, target NodeID) EdgeID {
	return EdgeID(string(source) + "-" + string(target))
}

// NewRandomEdgeID is used when the derived id is already taken
func NewRandomEdgeID() EdgeID {
	return EdgeID(uuid.New().String())
}

// String returns the string representation of the EdgeID
func (id EdgeID) String() string {
	return string(id)
}

// MapID identifies a persisted mind map
type MapID string

// NewMapID creates a new random MapID
func NewMapID() MapID {
	return MapID(uuid.New().String())
}

// String returns the string representation of the MapID
func (id MapID) String() string {
	return string(id)
}
