package checks

import (
	"sort"
	"strings"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// raise builds a finding for fact with its identity fields filled in.
func raise(fact finding.ResourceFact, check string, pillar finding.Pillar, sev finding.Severity, effort finding.Effort, title, description string, meta map[string]any) finding.Finding {
	return finding.Finding{
		CheckName:   check,
		Service:     fact.Service,
		Pillar:      pillar,
		Severity:    sev,
		Title:       title,
		Description: description,
		ResourceID:  fact.ResourceID,
		Region:      fact.Region,
		Effort:      effort,
		Metadata:    meta,
	}
}

func one(f finding.Finding) ([]finding.Finding, error) {
	return []finding.Finding{f}, nil
}

// missingTagsPredicate flags resources lacking any of the required tag keys.
func missingTagsPredicate(check string) Predicate {
	return func(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error) {
		tags, err := fact.Attrs.StringMap(finding.AttrTags)
		if err != nil {
			return nil, err
		}
		var missing []string
		for _, key := range th.RequiredTags {
			if _, ok := tags[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) == 0 {
			return nil, nil
		}
		sort.Strings(missing)

		return one(raise(fact, check, finding.PillarOperational, finding.SeverityMedium, finding.EffortLow,
			"Resource is missing required tags: "+strings.Join(missing, ", "),
			"Resource '"+fact.ResourceID+"' is missing the required tags "+strings.Join(missing, ", ")+
				". Untagged resources cannot be attributed to a team, environment, or cost center.",
			map[string]any{"missing_tags": missing}))
	}
}
