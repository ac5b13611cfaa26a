// Package classifier assigns coarse topic categories to node labels and uses
// them to narrow the context sent with expansion requests.
package classifier

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Category names
const (
	CategoryTechnology = "technology"
	CategoryBusiness   = "business"
	CategoryEducation  = "education"
	CategoryHealth     = "health"
	CategoryGeneral    = "general"
)

// RelatedConfidence is the confidence both labels must exceed to count as
// related across categories
const RelatedConfidence = 0.7

// Example is one labelled training phrase
type Example struct {
	Phrase   string
	Category string
}

// TrainingSet is the fixed set of phrases the default model learns from
var TrainingSet = []Example{
	{"artificial intelligence", CategoryTechnology},
	{"machine learning", CategoryTechnology},
	{"data science", CategoryTechnology},
	{"programming", CategoryTechnology},
	{"software development", CategoryTechnology},

	{"marketing", CategoryBusiness},
	{"sales", CategoryBusiness},
	{"finance", CategoryBusiness},
	{"management", CategoryBusiness},
	{"strategy", CategoryBusiness},

	{"learning", CategoryEducation},
	{"teaching", CategoryEducation},
	{"research", CategoryEducation},
	{"study", CategoryEducation},
	{"knowledge", CategoryEducation},

	{"wellness", CategoryHealth},
	{"fitness", CategoryHealth},
	{"nutrition", CategoryHealth},
	{"mental health", CategoryHealth},
	{"medicine", CategoryHealth},
}

// Classification is the outcome of Classify
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Options tune the classifier
type Options struct {
	// StrictDedup drops suggestions that contain, or are contained in, the
	// original label or an earlier suggestion
	StrictDedup bool
}

// Classifier is a static bag-of-words model. It is safe for concurrent use.
type Classifier struct {
	categories []string
	vocab      map[string]map[string]bool
	phrases    map[string]string
	opts       Options
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the process-wide classifier trained on TrainingSet
func Default() *Classifier {
	defaultOnce.Do(func() {
		defaultClassifier = New(TrainingSet, Options{})
	})
	return defaultClassifier
}

// New trains a classifier on the given examples
func New(examples []Example, opts Options) *Classifier {
	c := &Classifier{
		vocab:   make(map[string]map[string]bool),
		phrases: make(map[string]string),
		opts:    opts,
	}
	for _, ex := range examples {
		if _, ok := c.vocab[ex.Category]; !ok {
			c.vocab[ex.Category] = make(map[string]bool)
			c.categories = append(c.categories, ex.Category)
		}
		phrase := strings.Join(tokenize(ex.Phrase), " ")
		c.phrases[phrase] = ex.Category
		for _, tok := range tokenize(ex.Phrase) {
			c.vocab[ex.Category][tok] = true
		}
	}
	sort.Strings(c.categories)
	return c
}

// WithOptions returns a copy sharing the trained model
func (c *Classifier) WithOptions(opts Options) *Classifier {
	cp := *c
	cp.opts = opts
	return &cp
}

// Categories lists the known categories
func (c *Classifier) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Classify returns the best category for text. Unknown text is "general"
// with zero confidence.
func (c *Classifier) Classify(text string) Classification {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Classification{Category: CategoryGeneral}
	}
	if cat, ok := c.phrases[strings.Join(tokens, " ")]; ok {
		return Classification{Category: cat, Confidence: 1}
	}

	best, bestScore, total := "", 0.0, 0.0
	for _, cat := range c.categories {
		hits := 0
		for _, tok := range tokens {
			if c.vocab[cat][tok] {
				hits++
			}
		}
		score := float64(hits) / float64(len(tokens))
		total += score
		if score > bestScore {
			best, bestScore = cat, score
		}
	}
	if bestScore == 0 {
		return Classification{Category: CategoryGeneral}
	}

	// scaled by how much of the mass the winner holds
	return Classification{Category: best, Confidence: bestScore * bestScore / total}
}

// Related reports whether two labels belong together
func (c *Classifier) Related(a, b string) bool {
	ca, cb := c.Classify(a), c.Classify(b)
	return ca.Category == cb.Category ||
		(ca.Confidence > RelatedConfidence && cb.Confidence > RelatedConfidence)
}

// FilterContext keeps the existing labels related to nodeLabel, without
// nodeLabel itself
func (c *Classifier) FilterContext(nodeLabel string, existing []string) []string {
	node := c.Classify(nodeLabel)
	out := make([]string, 0, len(existing))
	for _, label := range existing {
		if strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(nodeLabel)) {
			continue
		}
		other := c.Classify(label)
		if node.Category == other.Category ||
			(node.Confidence > RelatedConfidence && other.Confidence > RelatedConfidence) {
			out = append(out, label)
		}
	}
	return out
}

// FilterSuggestions trims suggestions and drops empties and case-insensitive
// repeats of the original or of each other. In strict mode substring
// matches count as repeats too. The first occurrence wins.
func (c *Classifier) FilterSuggestions(original string, suggestions []string) []string {
	orig := strings.ToLower(strings.TrimSpace(original))
	kept := make([]string, 0, len(suggestions))
	seen := make([]string, 0, len(suggestions))

	for _, s := range suggestions {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		lower := strings.ToLower(s)
		if c.similar(lower, orig) {
			continue
		}
		dup := false
		for _, prev := range seen {
			if c.similar(lower, prev) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, lower)
		kept = append(kept, s)
	}
	return kept
}

func (c *Classifier) similar(a, b string) bool {
	if a == b {
		return true
	}
	if !c.opts.StrictDedup || a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
