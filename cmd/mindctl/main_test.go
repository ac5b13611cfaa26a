package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mindmap-backend/infrastructure/config"
	"mindmap-backend/infrastructure/di"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApp runs every command against one in-memory container so state
// survives between invocations
func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("LOG_LEVEL", "error")

	var shared *di.Container
	return &app{
		newContainer: func(ctx context.Context, cfg *config.Config) (*di.Container, error) {
			if shared == nil {
				c, err := di.InitializeContainer(ctx, cfg)
				if err != nil {
					return nil, err
				}
				shared = c
			}
			return shared, nil
		},
	}
}

func run(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := a.command()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return out.String(), err
}

const sampleDocument = `{
  "mapId": "doc-1",
  "timestamp": "2025-01-01T00:00:00Z",
  "nodes": [
    {"id": "1", "label": "Central Idea", "x": 0, "y": 0, "z": 0, "size": 1.5, "color": "#667eea"},
    {"id": "2", "label": "Child", "x": 3, "y": 1, "z": 0, "size": 0.8, "color": "#4ecdc4"}
  ],
  "edges": [{"id": "1-2", "source": "1", "target": "2"}]
}`

func TestClassifyCommand(t *testing.T) {
	a := newTestApp(t)

	out, err := run(t, a, "", "classify", "neural networks")

	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out), "\t")
	require.Len(t, fields, 2)
	assert.NotEmpty(t, fields[0])
}

func TestOwnerRequired(t *testing.T) {
	a := newTestApp(t)

	for _, args := range [][]string{{"list"}, {"export", "m1"}, {"import", "-"}, {"token"}} {
		_, err := run(t, a, sampleDocument, args...)
		assert.ErrorContains(t, err, "--owner is required", strings.Join(args, " "))
	}
}

func TestImportListExport(t *testing.T) {
	// Arrange
	a := newTestApp(t)

	// Act
	out, err := run(t, a, sampleDocument, "import", "-", "--owner", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 nodes and 1 edges into doc-1")

	listed, err := run(t, a, "", "list", "--owner", "alice", "--json")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.json")
	_, err = run(t, a, "", "export", "doc-1", "--owner", "alice", "-o", path)
	require.NoError(t, err)

	// Assert
	var maps []struct {
		MapID     string `json:"mapId"`
		NodeCount int    `json:"nodeCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(listed), &maps))
	require.Len(t, maps, 1)
	assert.Equal(t, "doc-1", maps[0].MapID)
	assert.Equal(t, 2, maps[0].NodeCount)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		MapID string            `json:"mapId"`
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "doc-1", doc.MapID)
	assert.Len(t, doc.Nodes, 2)
	assert.Len(t, doc.Edges, 1)

	table, err := run(t, a, "", "list", "--owner", "alice")
	require.NoError(t, err)
	assert.Contains(t, table, "doc-1")
}

func TestExportMissingMap(t *testing.T) {
	a := newTestApp(t)

	_, err := run(t, a, "", "export", "nope", "--owner", "alice")

	assert.Error(t, err)
}

func TestExpandCommandUsesPlaceholdersWithoutKey(t *testing.T) {
	a := newTestApp(t)

	out, err := run(t, a, sampleDocument, "expand", "-", "--node", "2")

	require.NoError(t, err)
	var doc struct {
		Nodes []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"nodes"`
		Edges []struct {
			Source string `json:"source"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Nodes, 5)
	assert.Equal(t, "Child - Related Concept 1", doc.Nodes[2].Label)
	children := 0
	for _, e := range doc.Edges {
		if e.Source == "2" {
			children++
		}
	}
	assert.Equal(t, 3, children)
}

func TestExpandRejectsInvalidDocument(t *testing.T) {
	a := newTestApp(t)

	_, err := run(t, a, `{"mapId":"x"}`, "expand", "-")

	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	a := newTestApp(t)

	out, err := run(t, a, "", "token", "--owner", "alice", "--roles", "user, admin")

	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}
