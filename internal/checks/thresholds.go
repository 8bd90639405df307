package checks

import "time"

// Thresholds holds the numeric knobs predicates compare resource facts against.
// A value is supplied once per scan and is read-only during evaluation.
type Thresholds struct {
	CPUUnderutilizationPct  float64
	CPUOverutilizationPct   float64
	CPUPeakSpikePct         float64
	IdleCPUPct              float64
	LookbackDays            int
	EBSUnattachedDays       int
	RDSMinBackupRetention   int
	RootActivityDays        int
	LambdaMemoryRatio       float64
	RequiredTags            []string
	LambdaSecretKeyPatterns []string
	// AsOf is the reference time for age-based rules. Zero means now.
	AsOf time.Time
}

func (th Thresholds) now() time.Time {
	if th.AsOf.IsZero() {
		return time.Now().UTC()
	}
	return th.AsOf
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUUnderutilizationPct: 20,
		CPUOverutilizationPct:  85,
		CPUPeakSpikePct:        90,
		IdleCPUPct:             5,
		LookbackDays:           14,
		EBSUnattachedDays:      30,
		RDSMinBackupRetention:  7,
		RootActivityDays:       30,
		LambdaMemoryRatio:      2,
		RequiredTags:           []string{"Name", "Environment", "Owner"},
		LambdaSecretKeyPatterns: []string{
			"password", "passwd", "secret", "api_key", "apikey",
			"token", "access_key", "private_key", "credentials",
			"db_pass", "database_password", "auth_token",
		},
	}
}
