package checks

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

const (
	CheckEIPUnassociated = "cost-elip-003"
	CheckELBUnused       = "cost-elb-001"
	CheckELBNoCloudFront = "perf-cf-002"
	CheckSGOpenToWorld   = "sec-vpc-001"
)

var (
	highRiskPorts = map[int]bool{22: true, 3389: true, 3306: true, 5432: true}
	lowRiskPorts  = map[int]bool{80: true, 443: true}
)

func eipUnassociated(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	associated, err := fact.Attrs.Bool(finding.AttrAssociated)
	if err != nil || associated {
		return nil, err
	}
	ip := fact.Attrs.StringOr(finding.AttrPublicIP, fact.ResourceID)

	return one(raise(fact, CheckEIPUnassociated, finding.PillarCost, finding.SeverityLow, finding.EffortLow,
		fmt.Sprintf("Unassociated Elastic IP: %s", ip),
		fmt.Sprintf("Elastic IP '%s' is not associated with any resource and is billed hourly.", ip),
		map[string]any{"public_ip": ip}))
}

func elbUnused(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	requests, err := fact.Attrs.Float(finding.AttrRequestCount)
	if err != nil {
		return nil, err
	}
	healthy, err := fact.Attrs.Int(finding.AttrHealthyTargets)
	if err != nil {
		return nil, err
	}
	if requests > 0 || healthy > 0 {
		return nil, nil
	}
	lbType := fact.Attrs.StringOr(finding.AttrLBType, "application")

	return one(raise(fact, CheckELBUnused, finding.PillarCost, finding.SeverityMedium, finding.EffortMedium,
		fmt.Sprintf("Load balancer '%s' is unused", fact.ResourceID),
		fmt.Sprintf("Load balancer '%s' of type '%s' has had no traffic and no healthy targets over the lookback window.", fact.ResourceID, lbType),
		map[string]any{"lb_type": lbType}))
}

func elbNoCloudFront(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	if fact.Attrs.StringOr(finding.AttrLBType, "") != "application" {
		return nil, nil
	}
	fronted, err := fact.Attrs.Bool(finding.AttrBehindCloudFront)
	if err != nil || fronted {
		return nil, err
	}
	dns := fact.Attrs.StringOr(finding.AttrDNSName, fact.ResourceID)

	return one(raise(fact, CheckELBNoCloudFront, finding.PillarPerformance, finding.SeverityLow, finding.EffortMedium,
		fmt.Sprintf("ALB '%s' is not behind a CloudFront distribution", fact.ResourceID),
		fmt.Sprintf("Application Load Balancer '%s' has no CloudFront distribution in front of it. Edge caching would reduce latency for distant users.", dns),
		map[string]any{"dns_name": dns}))
}

// securityGroupOpen raises one finding per group covering every world-open ingress
// rule, at the highest severity among them. Rules are encoded by the collector as
// "protocol:from:to", with from = -1 meaning all ports.
func securityGroupOpen(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	rules, err := fact.Attrs.Strings(finding.AttrPublicIngress)
	if err != nil || len(rules) == 0 {
		return nil, err
	}

	var (
		sev       finding.Severity
		exposed   []string
		worstPort string
	)
	for _, rule := range rules {
		proto, from, err := parseIngressRule(rule)
		if err != nil {
			return nil, err
		}

		var (
			ruleSev  finding.Severity
			portDesc string
		)
		switch {
		case from == -1:
			ruleSev, portDesc = finding.SeverityHigh, "all ports"
		case highRiskPorts[from]:
			ruleSev, portDesc = finding.SeverityHigh, fmt.Sprintf("port %d", from)
		case lowRiskPorts[from]:
			ruleSev, portDesc = finding.SeverityLow, fmt.Sprintf("port %d", from)
		default:
			ruleSev, portDesc = finding.SeverityMedium, fmt.Sprintf("port %d", from)
		}

		exposed = append(exposed, fmt.Sprintf("%s (%s)", portDesc, proto))
		if sev == "" || ruleSev.Rank() > sev.Rank() {
			sev, worstPort = ruleSev, portDesc
		}
	}

	title := fmt.Sprintf("Security group '%s' allows public access on %s", fact.ResourceID, worstPort)
	if len(exposed) > 1 {
		title = fmt.Sprintf("Security group '%s' allows public access on %d ports including %s", fact.ResourceID, len(exposed), worstPort)
	}
	return one(raise(fact, CheckSGOpenToWorld, finding.PillarSecurity, sev, finding.EffortLow,
		title,
		fmt.Sprintf("Security group '%s' in %s allows inbound traffic from the internet on %s.",
			fact.ResourceID, fact.Region, strings.Join(exposed, ", ")),
		map[string]any{"rules": rules, "group_name": fact.Attrs.StringOr(finding.AttrGroupName, "")}))
}

func parseIngressRule(rule string) (proto string, from int, err error) {
	parts := strings.Split(rule, ":")
	if len(parts) != 3 {
		return "", 0, fmt.Errorf("malformed ingress rule %q", rule)
	}
	from, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("malformed ingress rule %q: %w", rule, err)
	}
	to, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, fmt.Errorf("malformed ingress rule %q: %w", rule, err)
	}
	proto = parts[0]
	if proto == "-1" {
		proto = "all"
		from = -1
	}
	if from == 0 && to == 65535 {
		from = -1
	}
	return proto, from, nil
}
