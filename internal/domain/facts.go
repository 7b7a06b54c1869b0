package domain

// DaemonFacts are the runtime account facts of a service unit, collected
// outside the rule engine.
type DaemonFacts struct {
	User   string
	Group  string
	LogDir string
}
