package validators

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"mindmap-backend/domain/config"
	"mindmap-backend/pkg/errors"
)

// NodeValidator validates node-related domain rules
type NodeValidator struct {
	labelMaxLength int
}

// NewNodeValidator creates a validator bound to the domain limits
func NewNodeValidator(cfg *config.DomainConfig) *NodeValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &NodeValidator{labelMaxLength: cfg.MaxLabelLength}
}

// NormalizeLabel trims the label and checks its length
func (v *NodeValidator) NormalizeLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", errors.NewValidationError("label cannot be empty")
	}
	if v.labelMaxLength > 0 && utf8.RuneCountInString(label) > v.labelMaxLength {
		return "", errors.NewValidationError(fmt.Sprintf("label must be at most %d characters", v.labelMaxLength))
	}
	return label, nil
}

// ValidateSize requires a finite, strictly positive size
func (v *NodeValidator) ValidateSize(size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return errors.NewValidationError("size must be a positive number")
	}
	return nil
}
