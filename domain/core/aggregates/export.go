package aggregates

import (
	"encoding/json"
	"time"

	"mindmap-backend/domain/core/valueobjects"
	pkgerrors "mindmap-backend/pkg/errors"
)

// ExportDocument is the downloadable JSON form of a map
type ExportDocument struct {
	GraphData
	MapID     valueobjects.MapID `json:"mapId"`
	Timestamp string             `json:"timestamp"`
}

// NewExportDocument stamps data with the map id and time
func NewExportDocument(mapID valueobjects.MapID, data GraphData, at time.Time) ExportDocument {
	return ExportDocument{
		GraphData: data,
		MapID:     mapID,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

// Encode renders the document with two-space indentation
func (d ExportDocument) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// DecodeExportDocument parses an exported document
func DecodeExportDocument(raw []byte) (ExportDocument, error) {
	var doc ExportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ExportDocument{}, pkgerrors.NewValidationError("invalid export document: " + err.Error())
	}
	if doc.Nodes == nil {
		return ExportDocument{}, pkgerrors.NewValidationError("invalid export document: missing nodes")
	}
	return doc, nil
}
