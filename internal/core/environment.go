package core

// Environment selects the runtime profile of the orchestrator. It only
// influences ambient behaviour such as log verbosity; the conversation
// graph itself is environment-agnostic.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether the environment is production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment normalises a raw value, typically the ENVIRONMENT
// variable, into a known environment. Unrecognised values fall back to
// Development so a local run never fails on a typo.
func ParseEnvironment(v string) Environment {
	switch Environment(v) {
	case Production:
		return Production
	case Staging:
		return Staging
	default:
		return Development
	}
}
