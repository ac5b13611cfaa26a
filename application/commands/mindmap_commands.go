// Package commands holds the state-changing requests accepted by the
// command bus.
package commands

import (
	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/utils"
)

// MapRef addresses one map of one owner. An empty owner is a local-only
// map that is never persisted.
type MapRef struct {
	OwnerID string             `json:"-"`
	MapID   valueobjects.MapID `json:"-" validate:"required,max=128"`
}

// CreateMapCommand stores a new map, subject to the owner's plan
type CreateMapCommand struct {
	OwnerID     string `json:"-" validate:"required"`
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description" validate:"max=1000"`
}

// Validate validates the command
func (c CreateMapCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteMapCommand removes a map
type DeleteMapCommand struct {
	MapRef
}

// Validate validates the command
func (c DeleteMapCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SaveMapCommand persists the current state of a map now
type SaveMapCommand struct {
	MapRef
}

// Validate validates the command
func (c SaveMapCommand) Validate() error {
	if c.OwnerID == "" {
		return errors.NewValidationError("local-only maps are not persisted").WithCode(errors.CodeLocalOnly)
	}
	return utils.ValidateStruct(c)
}

// ImportMapCommand replaces a map's graph with an exported document
type ImportMapCommand struct {
	MapRef
	Document aggregates.ExportDocument `json:"document"`
}

// Validate validates the command
func (c ImportMapCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.Document.Nodes == nil {
		return errors.NewValidationError("document has no nodes")
	}
	return nil
}

// AddNodeCommand adds a manual node, optionally linked to ConnectTo
type AddNodeCommand struct {
	MapRef
	Label     string             `json:"label" validate:"max=200"`
	ConnectTo valueobjects.NodeID `json:"connectTo,omitempty"`
}

// Validate validates the command
func (c AddNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// AddNodeResult reports the created node and link
type AddNodeResult struct {
	NodeID valueobjects.NodeID `json:"nodeId"`
	EdgeID valueobjects.EdgeID `json:"edgeId,omitempty"`
}

// UpdateNodeCommand changes some attributes of a node. A position needs all
// three coordinates.
type UpdateNodeCommand struct {
	MapRef
	NodeID valueobjects.NodeID `json:"-" validate:"required"`
	Label  *string             `json:"label,omitempty" validate:"omitempty,max=200"`
	Size   *float64            `json:"size,omitempty" validate:"omitempty,gt=0"`
	Color  *string             `json:"color,omitempty" validate:"omitempty,hexcolor"`
	X      *float64            `json:"x,omitempty" validate:"required_with=Y Z"`
	Y      *float64            `json:"y,omitempty" validate:"required_with=X Z"`
	Z      *float64            `json:"z,omitempty" validate:"required_with=X Y"`
}

// Validate validates the command
func (c UpdateNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.Label == nil && c.Size == nil && c.Color == nil && c.X == nil {
		return errors.NewValidationError("nothing to update")
	}
	return nil
}

// Patch converts the command into a graph patch
func (c UpdateNodeCommand) Patch() (aggregates.NodePatch, error) {
	patch := aggregates.NodePatch{
		Label: c.Label,
		Size:  c.Size,
		Color: c.Color,
	}
	if c.X != nil && c.Y != nil && c.Z != nil {
		p, err := valueobjects.NewPosition3D(*c.X, *c.Y, *c.Z)
		if err != nil {
			return aggregates.NodePatch{}, err
		}
		patch.Position = &p
	}
	return patch, nil
}

// DragNodeCommand moves a node by a delta, clamped to the scene
type DragNodeCommand struct {
	MapRef
	NodeID valueobjects.NodeID `json:"-" validate:"required"`
	DX     float64             `json:"dx"`
	DY     float64             `json:"dy"`
	DZ     float64             `json:"dz"`
}

// Validate validates the command
func (c DragNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteNodeCommand removes a node and its edges
type DeleteNodeCommand struct {
	MapRef
	NodeID valueobjects.NodeID `json:"-" validate:"required"`
}

// Validate validates the command
func (c DeleteNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ExpandNodeCommand asks for related concepts and adds them as children
type ExpandNodeCommand struct {
	MapRef
	NodeID valueobjects.NodeID `json:"-" validate:"required"`
}

// Validate validates the command
func (c ExpandNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ConnectNodesCommand links two nodes
type ConnectNodesCommand struct {
	MapRef
	Source valueobjects.NodeID `json:"source" validate:"required"`
	Target valueobjects.NodeID `json:"target" validate:"required"`
}

// Validate validates the command
func (c ConnectNodesCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	if c.Source == c.Target {
		return errors.NewSelfLoopError(c.Source.String())
	}
	return nil
}

// DeleteEdgeCommand removes one edge
type DeleteEdgeCommand struct {
	MapRef
	EdgeID valueobjects.EdgeID `json:"-" validate:"required"`
}

// Validate validates the command
func (c DeleteEdgeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UndoCommand steps back in a map's history
type UndoCommand struct {
	MapRef
}

// Validate validates the command
func (c UndoCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RedoCommand steps forward in a map's history
type RedoCommand struct {
	MapRef
}

// Validate validates the command
func (c RedoCommand) Validate() error {
	return utils.ValidateStruct(c)
}
