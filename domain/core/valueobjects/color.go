package valueobjects

import (
	"fmt"
	"math/rand"
	"regexp"

	pkgerrors "mindmap-backend/pkg/errors"
)

var hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Color is an RGB hex color such as "#667eea"
type Color string

// NewColor validates an RGB hex string
func NewColor(s string) (Color, error) {
	if !hexColorPattern.MatchString(s) {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("invalid color %q: expected #RRGGBB", s))
	}
	return Color(s), nil
}

// RandomColor picks a full six digit color
func RandomColor(rng *rand.Rand) Color {
	return Color(fmt.Sprintf("#%06x", rng.Intn(0x1000000)))
}

// String returns the hex form
func (c Color) String() string {
	return string(c)
}
