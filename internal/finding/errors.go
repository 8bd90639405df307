package finding

import (
	"errors"
	"fmt"
)

// AdapterError records a failed resource listing. The scan treats the service as
// having zero resources in that region.
type AdapterError struct {
	Service Service
	Region  string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("list %s resources in %s: %v", e.Service, e.Region, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// CheckError records a predicate that failed for one resource.
type CheckError struct {
	CheckName  string
	ResourceID string
	Err        error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %s on %s: %v", e.CheckName, e.ResourceID, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// ProviderError records a failed call to a text-generation provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ConfigError is fatal and reported before any scan starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// ValidationError records a finding field outside its closed set that was down-classified.
type ValidationError struct {
	FindingID string
	Field     string
	Value     string
	Fallback  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("finding %s: unrecognized %s %q, using %q", e.FindingID, e.Field, e.Value, e.Fallback)
}

// Warning kinds as they appear in reports.
const (
	WarningAdapter    = "adapter"
	WarningCheck      = "check"
	WarningProvider   = "provider"
	WarningValidation = "validation"
	WarningScan       = "scan"
)

// Warning is the serializable form of a non-fatal error surfaced in the report.
type Warning struct {
	Kind    string `json:"kind"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

// WarningFrom classifies err into a report warning.
func WarningFrom(err error) Warning {
	var (
		adapterErr    *AdapterError
		checkErr      *CheckError
		providerErr   *ProviderError
		validationErr *ValidationError
	)
	switch {
	case errors.As(err, &adapterErr):
		return Warning{Kind: WarningAdapter, Source: fmt.Sprintf("%s/%s", adapterErr.Region, adapterErr.Service), Message: err.Error()}
	case errors.As(err, &checkErr):
		return Warning{Kind: WarningCheck, Source: checkErr.CheckName, Message: err.Error()}
	case errors.As(err, &providerErr):
		return Warning{Kind: WarningProvider, Source: providerErr.Provider, Message: err.Error()}
	case errors.As(err, &validationErr):
		return Warning{Kind: WarningValidation, Source: validationErr.FindingID, Message: err.Error()}
	default:
		return Warning{Kind: WarningScan, Message: err.Error()}
	}
}
