package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.trai.ch/zerr"
)

func init() {
	// Report validation failures with the names used in the file.
	validation.ErrorTag = "yaml"
}

// Tabulafile represents the structure of the tabula.yaml configuration file.
type Tabulafile struct {
	Version  string                 `yaml:"version"`
	Cache    CacheDTO               `yaml:"cache"`
	Figures  FiguresDTO             `yaml:"figures"`
	Analyses map[string]AnalysisDTO `yaml:"analyses"`
}

// CacheDTO configures the cache store.
type CacheDTO struct {
	Roots           []string `yaml:"roots"`
	CreateFirstRoot *bool    `yaml:"createFirstRoot"`
	MetaCacheSize   *int     `yaml:"metaCacheSize"`
}

// FiguresDTO configures figure descriptors.
type FiguresDTO struct {
	Roots      []string `yaml:"roots"`
	Extensions []string `yaml:"extensions"`
	Width      float64  `yaml:"width"`
	Height     float64  `yaml:"height"`
}

// AnalysisDTO represents an analysis definition in the configuration.
type AnalysisDTO struct {
	Table              string            `yaml:"table"`
	Key                string            `yaml:"key"`
	Cmd                []string          `yaml:"cmd"`
	Env                map[string]string `yaml:"env"`
	Param              map[string]any    `yaml:"param"`
	Fields             []string          `yaml:"fields"`
	Failure            map[string]any    `yaml:"failure"`
	RetryFailures      bool              `yaml:"retryFailures"`
	Parallelism        int               `yaml:"parallelism"`
	ReferencedTables   []string          `yaml:"referencedTables"`
	InvalidatingTables []string          `yaml:"invalidatingTables"`
	ValidAfter         string            `yaml:"validAfter"`
}

// Validate implements validation.Validatable.
func (f Tabulafile) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Version, validation.In("1")),
		validation.Field(&f.Cache),
		validation.Field(&f.Figures),
		validation.Field(&f.Analyses, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (c CacheDTO) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Roots, validation.Each(validation.Required)),
		validation.Field(&c.MetaCacheSize, validation.By(positiveSize)),
	)
}

// Validate implements validation.Validatable.
func (f FiguresDTO) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Roots, validation.Each(validation.Required)),
		validation.Field(&f.Extensions, validation.Each(validation.Required)),
		validation.Field(&f.Width, validation.Min(0.0)),
		validation.Field(&f.Height, validation.Min(0.0)),
	)
}

// Validate implements validation.Validatable.
func (a AnalysisDTO) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Table, validation.Required),
		validation.Field(&a.Cmd, validation.Required, validation.Each(validation.Required)),
		validation.Field(&a.Fields, validation.Each(validation.Required)),
		validation.Field(&a.Parallelism, validation.Min(0)),
		validation.Field(&a.ReferencedTables, validation.Each(validation.Required)),
		validation.Field(&a.InvalidatingTables, validation.Each(validation.Required)),
		validation.Field(&a.ValidAfter, validation.By(validTimestamp)),
	)
}

// timestampLayouts lists the accepted validAfter formats, most precise first.
var timestampLayouts = []string{time.RFC3339Nano, time.DateTime, time.DateOnly}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, zerr.With(zerr.New("unrecognized timestamp"), "value", s)
}

func positiveSize(value any) error {
	if p, ok := value.(*int); ok && p != nil && *p < 1 {
		return validation.NewError("validation_min_greater_equal_than_required", "must be no less than 1")
	}
	return nil
}

func validTimestamp(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := parseTimestamp(s); err != nil {
		return validation.NewError("validation_timestamp", "must be an RFC 3339 timestamp or a YYYY-MM-DD date")
	}
	return nil
}
