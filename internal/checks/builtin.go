package checks

import "github.com/rachealIC/infra-review-cli/internal/finding"

// Builtin returns the default rule pack.
func Builtin() []Check {
	return []Check{
		{Service: finding.ServiceEC2, Name: CheckEC2Underutilized, ResourceType: finding.TypeInstance, Pillar: finding.PillarCost, Severity: finding.SeverityMedium, Title: "Underutilized EC2 instance", Predicate: ec2Underutilized},
		{Service: finding.ServiceEC2, Name: CheckEC2HighCPU, ResourceType: finding.TypeInstance, Pillar: finding.PillarPerformance, Severity: finding.SeverityHigh, Title: "Overutilized EC2 instance", Predicate: ec2HighCPU},
		{Service: finding.ServiceEC2, Name: CheckEC2NoASG, ResourceType: finding.TypeInstance, Pillar: finding.PillarReliability, Severity: finding.SeverityMedium, Title: "EC2 instance outside an Auto Scaling Group", Predicate: ec2NoASG},
		{Service: finding.ServiceEC2, Name: CheckEC2Graviton, ResourceType: finding.TypeInstance, Pillar: finding.PillarSustainability, Severity: finding.SeverityLow, Title: "EC2 instance not using Graviton", Predicate: ec2Graviton},
		{Service: finding.ServiceEC2, Name: CheckEC2IdleAlwaysOn, ResourceType: finding.TypeInstance, Pillar: finding.PillarSustainability, Severity: finding.SeverityMedium, Title: "Idle always-on EC2 instance", Predicate: ec2IdleAlwaysOn},
		{Service: finding.ServiceEC2, Name: CheckMissingTags, ResourceType: finding.TypeInstance, Pillar: finding.PillarOperational, Severity: finding.SeverityMedium, Title: "EC2 instance missing required tags", Predicate: missingTagsPredicate(CheckMissingTags)},

		{Service: finding.ServiceEBS, Name: CheckEBSUnattached, ResourceType: finding.TypeVolume, Pillar: finding.PillarCost, Severity: finding.SeverityMedium, Title: "Unattached EBS volume", Predicate: ebsUnattached},
		{Service: finding.ServiceEBS, Name: CheckEBSUnencrypted, ResourceType: finding.TypeVolume, Pillar: finding.PillarSustainability, Severity: finding.SeverityMedium, Title: "Unencrypted EBS volume", Predicate: ebsUnencrypted},
		{Service: finding.ServiceEBS, Name: CheckMissingTags, ResourceType: finding.TypeVolume, Pillar: finding.PillarOperational, Severity: finding.SeverityMedium, Title: "EBS volume missing required tags", Predicate: missingTagsPredicate(CheckMissingTags)},

		{Service: finding.ServiceEIP, Name: CheckEIPUnassociated, ResourceType: finding.TypeAddress, Pillar: finding.PillarCost, Severity: finding.SeverityLow, Title: "Unassociated Elastic IP", Predicate: eipUnassociated},

		{Service: finding.ServiceELB, Name: CheckELBUnused, ResourceType: finding.TypeLoadBalancer, Pillar: finding.PillarCost, Severity: finding.SeverityMedium, Title: "Unused load balancer", Predicate: elbUnused},
		{Service: finding.ServiceELB, Name: CheckELBNoCloudFront, ResourceType: finding.TypeLoadBalancer, Pillar: finding.PillarPerformance, Severity: finding.SeverityLow, Title: "ALB not behind CloudFront", Predicate: elbNoCloudFront},

		{Service: finding.ServiceRDS, Name: CheckRDSMultiAZ, ResourceType: finding.TypeDBInstance, Pillar: finding.PillarReliability, Severity: finding.SeverityHigh, Title: "RDS instance without Multi-AZ", Predicate: rdsMultiAZ},
		{Service: finding.ServiceRDS, Name: CheckRDSBackupRetention, ResourceType: finding.TypeDBInstance, Pillar: finding.PillarReliability, Severity: finding.SeverityHigh, Title: "RDS backup retention too short", Predicate: rdsBackupRetention},
		{Service: finding.ServiceRDS, Name: CheckMissingTags, ResourceType: finding.TypeDBInstance, Pillar: finding.PillarOperational, Severity: finding.SeverityMedium, Title: "RDS instance missing required tags", Predicate: missingTagsPredicate(CheckMissingTags)},

		{Service: finding.ServiceS3, Name: CheckS3Public, ResourceType: finding.TypeBucket, Pillar: finding.PillarSecurity, Severity: finding.SeverityCritical, Title: "Publicly accessible S3 bucket", Predicate: s3Public},
		{Service: finding.ServiceS3, Name: CheckS3Versioning, ResourceType: finding.TypeBucket, Pillar: finding.PillarReliability, Severity: finding.SeverityMedium, Title: "S3 bucket versioning not enabled", Predicate: s3Versioning},
		{Service: finding.ServiceS3, Name: CheckS3Lifecycle, ResourceType: finding.TypeBucket, Pillar: finding.PillarSustainability, Severity: finding.SeverityLow, Title: "S3 bucket without lifecycle rules", Predicate: s3Lifecycle},
		{Service: finding.ServiceS3, Name: CheckS3NoCloudFront, ResourceType: finding.TypeBucket, Pillar: finding.PillarPerformance, Severity: finding.SeverityLow, Title: "Public S3 bucket not behind CloudFront", Predicate: s3NoCloudFront},

		{Service: finding.ServiceVPC, Name: CheckSGOpenToWorld, ResourceType: finding.TypeSecurityGroup, Pillar: finding.PillarSecurity, Severity: finding.SeverityHigh, Title: "Security group open to the internet", Predicate: securityGroupOpen},

		{Service: finding.ServiceIAM, Name: CheckIAMNoMFA, ResourceType: finding.TypeUser, Pillar: finding.PillarSecurity, Severity: finding.SeverityCritical, Title: "IAM user without MFA", Predicate: iamNoMFA},
		{Service: finding.ServiceIAM, Name: CheckRootActivity, ResourceType: finding.TypeRoot, Pillar: finding.PillarSecurity, Severity: finding.SeverityCritical, Title: "Recent root account activity", Predicate: rootActivity},

		{Service: finding.ServiceECS, Name: CheckECSUnused, ResourceType: finding.TypeECSService, Pillar: finding.PillarCost, Severity: finding.SeverityLow, Title: "Unused ECS service", Predicate: ecsUnused},
		{Service: finding.ServiceECS, Name: CheckECSDrift, ResourceType: finding.TypeECSService, Pillar: finding.PillarPerformance, Severity: finding.SeverityMedium, Title: "ECS service behind latest task definition", Predicate: ecsDrift},
		{Service: finding.ServiceECS, Name: CheckECSRootUser, ResourceType: finding.TypeECSService, Pillar: finding.PillarSecurity, Severity: finding.SeverityHigh, Title: "ECS containers running as root", Predicate: ecsRootUser},

		{Service: finding.ServiceCloudTrail, Name: CheckCloudTrailOff, ResourceType: finding.TypeRegion, Pillar: finding.PillarOperational, Severity: finding.SeverityCritical, Title: "CloudTrail not logging", Predicate: cloudTrailOff},
		{Service: finding.ServiceCloudWatch, Name: CheckNoAlarms, ResourceType: finding.TypeRegion, Pillar: finding.PillarOperational, Severity: finding.SeverityHigh, Title: "No CloudWatch alarms", Predicate: noAlarms},

		{Service: finding.ServiceLambda, Name: CheckLambdaSecrets, ResourceType: finding.TypeFunction, Pillar: finding.PillarOperational, Severity: finding.SeverityHigh, Title: "Secrets in Lambda environment", Predicate: lambdaSecrets},
		{Service: finding.ServiceLambda, Name: CheckLambdaMemoryHi, ResourceType: finding.TypeFunction, Pillar: finding.PillarSustainability, Severity: finding.SeverityLow, Title: "Over-provisioned Lambda memory", Predicate: lambdaMemory},
	}
}

// Default returns a registry holding the builtin pack.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(Builtin()...)
	return r
}
