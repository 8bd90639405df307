package checks

import (
	"fmt"
	"strings"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

const (
	CheckEBSUnattached      = "cost-ebs-001"
	CheckEBSUnencrypted     = "sus-ebs-encryption-001"
	CheckS3Public           = "sec-s3-001"
	CheckS3Versioning       = "rel-s3-001"
	CheckS3Lifecycle        = "sus-s3-lifecycle-001"
	CheckS3NoCloudFront     = "perf-cf-001"
	CheckRDSMultiAZ         = "rel-rds-001"
	CheckRDSBackupRetention = "rel-rds-002"
)

func ebsUnattached(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error) {
	state, err := fact.Attrs.String(finding.AttrState)
	if err != nil || state != "available" {
		return nil, err
	}
	created, err := fact.Attrs.Time(finding.AttrCreatedAt)
	if err != nil {
		return nil, err
	}
	ageDays := int(th.now().Sub(created).Hours() / 24)
	if ageDays < th.EBSUnattachedDays {
		return nil, nil
	}
	size, err := fact.Attrs.Int(finding.AttrSizeGiB)
	if err != nil {
		return nil, err
	}
	volumeType := fact.Attrs.StringOr(finding.AttrVolumeType, "gp2")

	return one(raise(fact, CheckEBSUnattached, finding.PillarCost, finding.SeverityMedium, finding.EffortLow,
		fmt.Sprintf("Unattached %s EBS volume of %d GB", strings.ToUpper(volumeType), size),
		fmt.Sprintf("EBS volume '%s' has been unattached for %d days.", fact.ResourceID, ageDays),
		map[string]any{"volume_type": volumeType, "size_gib": size, "age_days": ageDays}))
}

func ebsUnencrypted(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	encrypted, err := fact.Attrs.Bool(finding.AttrEncrypted)
	if err != nil || encrypted {
		return nil, err
	}

	return one(raise(fact, CheckEBSUnencrypted, finding.PillarSustainability, finding.SeverityMedium, finding.EffortMedium,
		fmt.Sprintf("EBS volume '%s' is not encrypted", fact.ResourceID),
		fmt.Sprintf("Volume '%s' is unencrypted. Encryption protects data at rest and should be enabled by default for new volumes.", fact.ResourceID),
		nil))
}

func s3Public(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	public, err := fact.Attrs.Bool(finding.AttrPublic)
	if err != nil || !public {
		return nil, err
	}
	reason := fact.Attrs.StringOr(finding.AttrPublicReason, "unknown")

	return one(raise(fact, CheckS3Public, finding.PillarSecurity, finding.SeverityCritical, finding.EffortLow,
		"S3 bucket is publicly accessible",
		fmt.Sprintf("Bucket '%s' is publicly accessible. Reason: %s", fact.ResourceID, reason),
		map[string]any{"reason": reason}))
}

func s3Versioning(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	status, err := fact.Attrs.String(finding.AttrVersioning)
	if err != nil || status == "Enabled" {
		return nil, err
	}

	sev, word := finding.SeverityMedium, "disabled"
	desc := fmt.Sprintf("Bucket '%s' has never had versioning enabled.", fact.ResourceID)
	if status == "Suspended" {
		sev, word = finding.SeverityHigh, "suspended"
		desc = fmt.Sprintf("Bucket '%s' had versioning suspended.", fact.ResourceID)
	}

	return one(raise(fact, CheckS3Versioning, finding.PillarReliability, sev, finding.EffortLow,
		fmt.Sprintf("S3 bucket '%s' has versioning %s", fact.ResourceID, word),
		desc+" Without versioning, accidental deletions or overwrites are permanent.",
		map[string]any{"versioning": status}))
}

func s3Lifecycle(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	has, err := fact.Attrs.Bool(finding.AttrHasLifecycle)
	if err != nil || has {
		return nil, err
	}

	return one(raise(fact, CheckS3Lifecycle, finding.PillarSustainability, finding.SeverityLow, finding.EffortLow,
		fmt.Sprintf("S3 bucket '%s' has no lifecycle policy", fact.ResourceID),
		fmt.Sprintf("Bucket '%s' has no lifecycle rules. Keeping every object in standard storage indefinitely increases storage cost and footprint.", fact.ResourceID),
		nil))
}

func s3NoCloudFront(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	public, err := fact.Attrs.Bool(finding.AttrPublic)
	if err != nil || !public {
		return nil, err
	}
	fronted, err := fact.Attrs.Bool(finding.AttrBehindCloudFront)
	if err != nil || fronted {
		return nil, err
	}

	return one(raise(fact, CheckS3NoCloudFront, finding.PillarPerformance, finding.SeverityLow, finding.EffortMedium,
		fmt.Sprintf("Public S3 bucket '%s' is not served via CloudFront", fact.ResourceID),
		fmt.Sprintf("The public bucket '%s' has no CloudFront distribution in front of it, so content is served without edge caching or WAF.", fact.ResourceID),
		nil))
}

func rdsMultiAZ(fact finding.ResourceFact, _ Thresholds) ([]finding.Finding, error) {
	multiAZ, err := fact.Attrs.Bool(finding.AttrMultiAZ)
	if err != nil || multiAZ {
		return nil, err
	}
	engine := fact.Attrs.StringOr(finding.AttrEngine, "unknown")
	class := fact.Attrs.StringOr(finding.AttrInstanceClass, "unknown")

	return one(raise(fact, CheckRDSMultiAZ, finding.PillarReliability, finding.SeverityHigh, finding.EffortLow,
		fmt.Sprintf("RDS instance '%s' is not running in Multi-AZ", fact.ResourceID),
		fmt.Sprintf("RDS instance '%s' (%s, %s) is a single-AZ deployment. A hardware or AZ failure will cause downtime.",
			fact.ResourceID, engine, class),
		map[string]any{"engine": engine, "instance_class": class}))
}

func rdsBackupRetention(fact finding.ResourceFact, th Thresholds) ([]finding.Finding, error) {
	retention, err := fact.Attrs.Int(finding.AttrBackupRetention)
	if err != nil || retention >= th.RDSMinBackupRetention {
		return nil, err
	}
	sev := finding.SeverityHigh
	if retention == 0 {
		sev = finding.SeverityCritical
	}

	return one(raise(fact, CheckRDSBackupRetention, finding.PillarReliability, sev, finding.EffortLow,
		fmt.Sprintf("RDS instance '%s' has insufficient backup retention (%d day(s))", fact.ResourceID, retention),
		fmt.Sprintf("Automated backups are kept for %d day(s). The minimum recommended is %d days.", retention, th.RDSMinBackupRetention),
		map[string]any{"backup_retention_days": retention}))
}
