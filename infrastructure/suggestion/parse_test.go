package suggestion

import (
	"testing"

	pkgerrors "mindmap-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "json array",
			content: `["Neural Networks", "Deep Learning", "Data Science"]`,
			want:    []string{"Neural Networks", "Deep Learning", "Data Science"},
		},
		{
			name:    "fenced json",
			content: "```json\n[\"Supervised Learning\", \"Reinforcement Learning\"]\n```",
			want:    []string{"Supervised Learning", "Reinforcement Learning"},
		},
		{
			name:    "json inside prose",
			content: `Here you go: ["Rust", "Go"] hope it helps`,
			want:    []string{"Rust", "Go"},
		},
		{
			name:    "json array capped at five",
			content: `["a","b","c","d","e","f","g"]`,
			want:    []string{"a", "b", "c", "d", "e"},
		},
		{
			name:    "repeats do not crowd out later concepts",
			content: `["Go", "go", " GO ", "Go", "Rust", "Zig", "C", "Java", "Kotlin"]`,
			want:    []string{"Go", "Rust", "Zig", "C", "Java"},
		},
		{
			name:    "repeated list items",
			content: "- Harmony\n- harmony\n- Rhythm",
			want:    []string{"Harmony", "Rhythm"},
		},
		{
			name:    "comma list",
			content: `Algebra, Geometry, "Calculus"`,
			want:    []string{"Algebra", "Geometry", "Calculus"},
		},
		{
			name:    "dash list",
			content: "- Photosynthesis\n- Cell Division\n- Genetics",
			want:    []string{"Photosynthesis", "Cell Division", "Genetics"},
		},
		{
			name:    "numbered list keeps hyphenated words",
			content: "1. Self-Driving Cars\n2) Robotics",
			want:    []string{"Self-Driving Cars", "Robotics"},
		},
		{
			name:    "broken json falls back to splitting",
			content: `["Music Theory", "Harmony"`,
			want:    []string{"Music Theory", "Harmony"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestions(tt.content)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSuggestionsMalformed(t *testing.T) {
	for _, content := range []string{"", "   ", "[]", `[" ", ""]`, ",\n,"} {
		_, err := ParseSuggestions(content)
		assert.True(t, pkgerrors.IsMalformedResponse(err), "content %q", content)
	}
}
