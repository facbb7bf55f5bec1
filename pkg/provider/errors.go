package provider

import "fmt"

// ErrNoSuitableProvider is raised by Load when no registered provider can
// fully cover the requested window for sp3Id.
type ErrNoSuitableProvider struct {
	Sp3Id string
}

func (e *ErrNoSuitableProvider) Error() string {
	return fmt.Sprintf("provider: no suitable sp3 provider for %q", e.Sp3Id)
}
