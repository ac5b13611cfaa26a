package entities

import (
	"encoding/json"

	"mindmap-backend/domain/core/valueobjects"
)

// Node is one labeled concept placed in 3D space
type Node struct {
	id       valueobjects.NodeID
	label    string
	position valueobjects.Position
	size     float64
	color    valueobjects.Color
}

// NewNode builds a node from already validated parts
func NewNode(
	id valueobjects.NodeID,
	label string,
	position valueobjects.Position,
	size float64,
	color valueobjects.Color,
) Node {
	return Node{
		id:       id,
		label:    label,
		position: position,
		size:     size,
		color:    color,
	}
}

// ID returns the node's unique identifier
func (n Node) ID() valueobjects.NodeID {
	return n.id
}

// Label returns the display text
func (n Node) Label() string {
	return n.label
}

// Position returns the node's position
func (n Node) Position() valueobjects.Position {
	return n.position
}

// Size returns the render scale
func (n Node) Size() float64 {
	return n.size
}

// Color returns the node color
func (n Node) Color() valueobjects.Color {
	return n.color
}

// WithID returns a copy carrying id; used when the graph assigns identity
func (n Node) WithID(id valueobjects.NodeID) Node {
	n.id = id
	return n
}

// WithLabel returns a copy with a new label
func (n Node) WithLabel(label string) Node {
	n.label = label
	return n
}

// WithPosition returns a copy moved to position
func (n Node) WithPosition(position valueobjects.Position) Node {
	n.position = position
	return n
}

// WithSize returns a copy with a new size
func (n Node) WithSize(size float64) Node {
	n.size = size
	return n
}

// WithColor returns a copy with a new color
func (n Node) WithColor(color valueobjects.Color) Node {
	n.color = color
	return n
}

// NodeDocument is the flat wire and storage shape of a node
type NodeDocument struct {
	ID    string  `json:"id" dynamodbav:"id"`
	Label string  `json:"label" dynamodbav:"label"`
	X     float64 `json:"x" dynamodbav:"x"`
	Y     float64 `json:"y" dynamodbav:"y"`
	Z     float64 `json:"z" dynamodbav:"z"`
	Size  float64 `json:"size" dynamodbav:"size"`
	Color string  `json:"color" dynamodbav:"color"`
}

// Document converts the node to its flat shape
func (n Node) Document() NodeDocument {
	return NodeDocument{
		ID:    n.id.String(),
		Label: n.label,
		X:     n.position.X(),
		Y:     n.position.Y(),
		Z:     n.position.Z(),
		Size:  n.size,
		Color: n.color.String(),
	}
}

// MarshalJSON implements json.Marshaler
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Document())
}
