package domain

import "time"

// Settings is the resolved project configuration.
type Settings struct {
	Cache    CacheSettings
	Figures  FigureSettings
	Analyses map[string]AnalysisSettings
}

// CacheSettings configures the cache store.
type CacheSettings struct {
	// Roots is the ordered read search path; writes go to the first existing root.
	Roots           []string
	CreateFirstRoot bool
	MetaCacheSize   int
}

// FigureSettings configures figure descriptors.
type FigureSettings struct {
	Roots      []string
	Extensions []string
	Width      float64
	Height     float64
}

// AnalysisSettings describes one analysis from the config file.
type AnalysisSettings struct {
	Name               string
	Table              string
	Key                string
	Command            []string
	Environment        map[string]string
	Param              map[string]any
	Fields             []string
	Failure            Record
	RetryFailures      bool
	Parallelism        int
	ReferencedTables   []string
	InvalidatingTables []string
	ValidAfter         time.Time
}
