package types

type (
	// PathFilterConfig contains configuration for the path filter.
	PathFilterConfig struct {
		IgnoredPatterns   []string `json:"ignoredPatterns" yaml:"ignoredPatterns"`
		AllowedExtensions []string `json:"allowedExtensions" yaml:"allowedExtensions"`
	}

	// Config is the optional on-disk configuration.
	Config struct {
		Filter PathFilterConfig `yaml:"filter"`
		Backup bool             `yaml:"backup"`

		// DiffContext is nil when unset; zero asks for diffs without context.
		DiffContext *int `yaml:"diffContext"`
	}
)
