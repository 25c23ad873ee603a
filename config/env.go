package config

import "os"

// Environment selects how configuration is sourced and how logs are shaped.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment reads ENV. CI=true wins over ENV so pipelines never pick
// up production secrets by accident; anything unrecognised is Development.
func GetEnvironment() Environment {
	if os.Getenv("CI") == "true" {
		return CI
	}
	switch Environment(os.Getenv("ENV")) {
	case Production:
		return Production
	case Test:
		return Test
	default:
		return Development
	}
}

// IsProduction reports whether the API runs with production secrets and
// JSON logs.
func IsProduction() bool {
	return GetEnvironment() == Production
}
