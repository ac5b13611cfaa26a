package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Graph constraints
	MaxNodesPerMap int
	MaxEdgesPerMap int
	MaxLabelLength int

	// Defaults for new maps
	DefaultMapTitle   string
	CentralNodeLabel  string
	CentralNodeColor  string
	CentralNodeSize   float64
	ManualNodeLabel   string
	ManualNodeSize    float64
	ExpansionNodeSize float64

	// History
	HistoryLimit int

	// Persistence
	AutosaveDebounce time.Duration

	// Expansion
	MaxSuggestions      int
	FallbackSuggestions int

	// Plans
	FreeMapLimit int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// a map is one DynamoDB item, so these stay inside 400 KB
		MaxNodesPerMap: 1000,
		MaxEdgesPerMap: 2000,
		MaxLabelLength: 200,

		DefaultMapTitle:   "Untitled Mind Map",
		CentralNodeLabel:  "Central Idea",
		CentralNodeColor:  "#667eea",
		CentralNodeSize:   1.5,
		ManualNodeLabel:   "New Node",
		ManualNodeSize:    1,
		ExpansionNodeSize: 0.8,

		HistoryLimit: 50,

		AutosaveDebounce: time.Second,

		MaxSuggestions:      5,
		FallbackSuggestions: 3,

		FreeMapLimit: 5,
	}
}

// ProductionDomainConfig leaves headroom for multi-byte labels
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxNodesPerMap = 800
	config.MaxEdgesPerMap = 1600

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	switch {
	case c.MaxNodesPerMap <= 0:
		return fmt.Errorf("max nodes per map must be positive")
	case c.MaxEdgesPerMap <= 0:
		return fmt.Errorf("max edges per map must be positive")
	case c.HistoryLimit < 2:
		return fmt.Errorf("history limit must keep at least 2 states, got %d", c.HistoryLimit)
	case c.AutosaveDebounce < 0:
		return fmt.Errorf("autosave debounce cannot be negative")
	case c.MaxSuggestions <= 0:
		return fmt.Errorf("max suggestions must be positive")
	case c.CentralNodeSize <= 0 || c.ManualNodeSize <= 0 || c.ExpansionNodeSize <= 0:
		return fmt.Errorf("node sizes must be positive")
	}
	return nil
}
