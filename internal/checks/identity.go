package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

const (
	CheckIAMNoMFA       = "sec-iam-001"
	CheckRootActivity   = "sec-iam-002"
	CheckECSUnused      = "cost-ecs-001"
	CheckECSDrift       = "perf-ecs-001"
	CheckECSRootUser    = "sec-ecs-001"
	CheckCloudTrailOff  = "ops-ct-001"
	CheckNoAlarms       = "ops-cw-001"
	CheckLambdaSecrets  = "ops-ssm-001"
	CheckLambdaMemoryHi = "sus-lambda-memory-001"
)

func iamNoMFA(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	console, err := fact.Attrs.Bool(finding.AttrConsoleAccess)
	if err != nil || !console {
		return nil, err
	}
	devices, err := fact.Attrs.Int(finding.AttrMFADevices)
	if err != nil || devices > 0 {
		return nil, err
	}

	return one(raise(fact, CheckIAMNoMFA, finding.PillarSecurity, finding.SeverityCritical, finding.EffortLow,
		fmt.Sprintf("IAM user '%s' does not have MFA enabled", fact.ResourceID),
		fmt.Sprintf("IAM user '%s' has console access but no MFA device. A leaked password gives full console access without a second factor.", fact.ResourceID),
		nil))
}

func rootActivity(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error) {
	if !fact.Attrs.Has(finding.AttrPasswordLastUsed) {
		return nil, nil
	}
	lastUsed, err := fact.Attrs.Time(finding.AttrPasswordLastUsed)
	if err != nil {
		return nil, err
	}
	daysAgo := int(th.now().Sub(lastUsed).Hours() / 24)
	if daysAgo > th.RootActivityDays {
		return nil, nil
	}

	return one(raise(fact, CheckRootActivity, finding.PillarSecurity, finding.SeverityCritical, finding.EffortLow,
		fmt.Sprintf("Root account was used %d day(s) ago", daysAgo),
		fmt.Sprintf("The root account was last used on %s. Root usage bypasses IAM policies and should be reserved for account-level tasks.",
			lastUsed.Format("2006-01-02")),
		map[string]any{"days_ago": daysAgo}))
}

func ecsUnused(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	desired, err := fact.Attrs.Int(finding.AttrDesiredCount)
	if err != nil {
		return nil, err
	}
	running, err := fact.Attrs.Int(finding.AttrRunningCount)
	if err != nil {
		return nil, err
	}
	if desired != 0 || running != 0 {
		return nil, nil
	}
	cluster := fact.Attrs.StringOr(finding.AttrCluster, "unknown")

	return one(raise(fact, CheckECSUnused, finding.PillarCost, finding.SeverityLow, finding.EffortLow,
		fmt.Sprintf("ECS service '%s' in cluster '%s' is unused", fact.ResourceID, cluster),
		"The service runs no tasks and has a desired count of 0. It may be left over from testing or no longer needed.",
		map[string]any{"cluster": cluster}))
}

func ecsDrift(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	current, err := fact.Attrs.Int(finding.AttrCurrentRevision)
	if err != nil {
		return nil, err
	}
	latest, err := fact.Attrs.Int(finding.AttrLatestRevision)
	if err != nil || current >= latest {
		return nil, err
	}

	return one(raise(fact, CheckECSDrift, finding.PillarPerformance, finding.SeverityMedium, finding.EffortMedium,
		fmt.Sprintf("ECS service '%s' is not using the latest task definition", fact.ResourceID),
		fmt.Sprintf("The service runs revision %d of '%s', but revision %d is available.",
			current, fact.Attrs.StringOr(finding.AttrTaskFamily, "unknown"), latest),
		map[string]any{"current_revision": current, "latest_revision": latest}))
}

func ecsRootUser(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	users, err := fact.Attrs.StringMap(finding.AttrContainerUsers)
	if err != nil {
		return nil, err
	}

	var rootContainers []string
	for name, user := range users {
		u := strings.ToLower(strings.TrimSpace(user))
		if u == "" || u == "root" || u == "0" || strings.HasPrefix(u, "0:") || strings.HasPrefix(u, "root:") {
			rootContainers = append(rootContainers, name)
		}
	}
	if len(rootContainers) == 0 {
		return nil, nil
	}
	sort.Strings(rootContainers)

	return one(raise(fact, CheckECSRootUser, finding.PillarSecurity, finding.SeverityHigh, finding.EffortMedium,
		fmt.Sprintf("ECS service '%s' runs containers as root", fact.ResourceID),
		fmt.Sprintf("Containers %s in task definition '%s' do not set a non-root user, which increases the risk of privilege escalation.",
			strings.Join(rootContainers, ", "), fact.Attrs.StringOr(finding.AttrTaskFamily, "unknown")),
		map[string]any{"containers": rootContainers}))
}

func cloudTrailOff(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	logging, err := fact.Attrs.Int(finding.AttrLoggingTrails)
	if err != nil || logging > 0 {
		return nil, err
	}

	return one(raise(fact, CheckCloudTrailOff, finding.PillarOperational, finding.SeverityCritical, finding.EffortLow,
		"CloudTrail is not enabled or logging is paused",
		fmt.Sprintf("No logging CloudTrail trail covers region '%s'. API activity is not audited, which blocks incident investigation and compliance reporting.", fact.Region),
		nil))
}

func noAlarms(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	count, err := fact.Attrs.Int(finding.AttrAlarmCount)
	if err != nil || count > 0 {
		return nil, err
	}

	return one(raise(fact, CheckNoAlarms, finding.PillarOperational, finding.SeverityHigh, finding.EffortMedium,
		"No CloudWatch alarms are configured in this region",
		fmt.Sprintf("Region '%s' has no CloudWatch metric alarms, so high CPU, failed health checks, or billing spikes go unnoticed.", fact.Region),
		nil))
}

func lambdaSecrets(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error) {
	keys, err := fact.Attrs.Strings(finding.AttrEnvKeys)
	if err != nil {
		return nil, err
	}

	var suspicious []string
	for _, key := range keys {
		lower := strings.ToLower(key)
		for _, pattern := range th.LambdaSecretKeyPatterns {
			if strings.Contains(lower, pattern) {
				suspicious = append(suspicious, key)
				break
			}
		}
	}
	if len(suspicious) == 0 {
		return nil, nil
	}
	sort.Strings(suspicious)

	return one(raise(fact, CheckLambdaSecrets, finding.PillarOperational, finding.SeverityHigh, finding.EffortMedium,
		fmt.Sprintf("Lambda '%s' may have secrets in environment variables", fact.ResourceID),
		fmt.Sprintf("Function '%s' has environment variables that look like hardcoded secrets: %s. Plain environment variables are visible to anyone who can read the function configuration.",
			fact.ResourceID, strings.Join(suspicious, ", ")),
		map[string]any{"keys": suspicious}))
}

func lambdaMemory(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error) {
	if !fact.Attrs.Has(finding.AttrMaxMemoryUsedMB) {
		return nil, nil
	}
	configured, err := fact.Attrs.Int(finding.AttrMemoryMB)
	if err != nil {
		return nil, err
	}
	used, err := fact.Attrs.Float(finding.AttrMaxMemoryUsedMB)
	if err != nil {
		return nil, err
	}
	if configured <= 0 || used <= 0 || float64(configured) <= used*th.LambdaMemoryRatio {
		return nil, nil
	}
	suggested := RecommendedLambdaMemory(used)

	return one(raise(fact, CheckLambdaMemoryHi, finding.PillarSustainability, finding.SeverityLow, finding.EffortLow,
		fmt.Sprintf("Lambda '%s' may be over-provisioned on memory", fact.ResourceID),
		fmt.Sprintf("Memory is set to %d MB while peak usage is %.1f MB. Around %d MB leaves 20%% headroom.", configured, used, suggested),
		map[string]any{"memory_mb": configured, "max_memory_used_mb": used, "suggested_memory_mb": suggested}))
}

// RecommendedLambdaMemory adds 20% headroom to peak usage, with a 128 MB floor,
// rounded up to a 64 MB step.
func RecommendedLambdaMemory(maxUsedMB float64) int {
	target := maxUsedMB * 1.2
	if target < 128 {
		target = 128
	}
	steps := int(target / 64)
	if float64(steps*64) < target {
		steps++
	}
	return steps * 64
}
