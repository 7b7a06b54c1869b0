package domain

import "fmt"

// UnknownServiceError reports a service with no registered descriptor or
// builder family. Fatal for that service's discovery only.
type UnknownServiceError struct {
	Service string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.Service)
}

// NoHostsFoundError reports that no host runs the service. The service
// contributes nothing to the inventory and the run continues.
type NoHostsFoundError struct {
	Service string
}

func (e *NoHostsFoundError) Error() string {
	return fmt.Sprintf("no hosts found running service %q", e.Service)
}

// MalformedPropertyError reports a mandatory raw property that could not be
// parsed into its expected shape. The owning rule emits nothing; sibling
// rules still run.
type MalformedPropertyError struct {
	Key   string
	Value string
	Err   error
}

func (e *MalformedPropertyError) Error() string {
	return fmt.Sprintf("malformed property %s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *MalformedPropertyError) Unwrap() error { return e.Err }

// HostUnreachableError reports a host that could not be reached at all.
type HostUnreachableError struct {
	Host string
	Err  error
}

func (e *HostUnreachableError) Error() string {
	return fmt.Sprintf("host %s unreachable: %v", e.Host, e.Err)
}

func (e *HostUnreachableError) Unwrap() error { return e.Err }

// HostExecutionFailedError reports a command that failed on an otherwise
// reachable host.
type HostExecutionFailedError struct {
	Host    string
	Command string
	Err     error
}

func (e *HostExecutionFailedError) Error() string {
	return fmt.Sprintf("command failed on %s: %v", e.Host, e.Err)
}

func (e *HostExecutionFailedError) Unwrap() error { return e.Err }
