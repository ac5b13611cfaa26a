package suggestion

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	apperrors "mindmap-backend/pkg/errors"
)

// MaxSuggestions caps how many concepts one answer may contribute
const MaxSuggestions = 5

var (
	splitPattern      = regexp.MustCompile(`[,\n]|\s-\s`)
	listMarkerPattern = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)
)

// ParseSuggestions turns model output into at most MaxSuggestions labels.
// A JSON array wins, even inside prose or a code fence; otherwise the text
// is split into list items.
func ParseSuggestions(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewMalformedResponseError(serviceName, "empty content")
	}

	if items, ok := parseJSONArray(content); ok {
		if out := clean(items); len(out) > 0 {
			return out, nil
		}
	}

	if out := clean(splitPattern.Split(stripFence(content), -1)); len(out) > 0 {
		return out, nil
	}
	return nil, apperrors.NewMalformedResponseError(serviceName, "no usable suggestions")
}

func parseJSONArray(content string) ([]string, bool) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var values []interface{}
	if err := json.Unmarshal([]byte(content[start:end+1]), &values); err != nil {
		return nil, false
	}

	items := make([]string, 0, len(values))
	for _, v := range values {
		switch val := v.(type) {
		case string:
			items = append(items, val)
		case float64, bool:
			items = append(items, fmt.Sprint(val))
		}
	}
	return items, true
}

func stripFence(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// clean strips list markers and quotes, drops empties and case-insensitive
// repeats, then caps
func clean(items []string) []string {
	out := make([]string, 0, MaxSuggestions)
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s := strings.TrimSpace(item)
		s = listMarkerPattern.ReplaceAllString(s, "")
		s = strings.Trim(s, " \t\"'`[]")
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}
