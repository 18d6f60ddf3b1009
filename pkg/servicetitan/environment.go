package servicetitan

import (
	"strings"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
)

// Environment selects the pair of hosts a client talks to.
type Environment string

const (
	// EnvironmentProduction is the live tenant environment.
	EnvironmentProduction Environment = "production"

	// EnvironmentIntegration is the sandbox environment.
	EnvironmentIntegration Environment = "integration"
)

// ParseEnvironment normalizes an environment name. An empty name selects production.
func ParseEnvironment(name string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(name))) {
	case "", EnvironmentProduction:
		return EnvironmentProduction, nil
	case EnvironmentIntegration:
		return EnvironmentIntegration, nil
	default:
		return "", &ConfigError{Op: "resolving environment", Fields: []string{name}, Err: ErrUnknownEnvironment}
	}
}

// AuthRoot returns the identity provider root URL.
func (e Environment) AuthRoot() string {
	if e == EnvironmentIntegration {
		return constants.IntegrationAuthRoot
	}

	return constants.ProductionAuthRoot
}

// APIRoot returns the resource API root URL.
func (e Environment) APIRoot() string {
	if e == EnvironmentIntegration {
		return constants.IntegrationAPIRoot
	}

	return constants.ProductionAPIRoot
}
