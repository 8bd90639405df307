package finding

// Resource types within a service.
const (
	TypeInstance      = "instance"
	TypeVolume        = "volume"
	TypeAddress       = "address"
	TypeLoadBalancer  = "load-balancer"
	TypeDBInstance    = "db-instance"
	TypeBucket        = "bucket"
	TypeSecurityGroup = "security-group"
	TypeUser          = "user"
	TypeRoot          = "root"
	TypeECSService    = "service"
	TypeRegion        = "region"
	TypeFunction      = "function"
	TypeDistribution  = "distribution"
)

// Attribute keys shared by collectors and predicates.
const (
	AttrState            = "state"
	AttrTags             = "tags"
	AttrInstanceType     = "instance_type"
	AttrArchitecture     = "architecture"
	AttrCPUAvg           = "cpu_avg"
	AttrCPUMax           = "cpu_max"
	AttrInASG            = "in_asg"
	AttrSizeGiB          = "size_gib"
	AttrVolumeType       = "volume_type"
	AttrCreatedAt        = "created_at"
	AttrEncrypted        = "encrypted"
	AttrAssociated       = "associated"
	AttrPublicIP         = "public_ip"
	AttrAllocationID     = "allocation_id"
	AttrLBType           = "lb_type"
	AttrDNSName          = "dns_name"
	AttrRequestCount     = "request_count"
	AttrHealthyTargets   = "healthy_targets"
	AttrBehindCloudFront = "behind_cloudfront"
	AttrMultiAZ          = "multi_az"
	AttrBackupRetention  = "backup_retention_days"
	AttrEngine           = "engine"
	AttrInstanceClass    = "instance_class"
	AttrPublic           = "public"
	AttrPublicReason     = "public_reason"
	AttrVersioning       = "versioning"
	AttrHasLifecycle     = "has_lifecycle"
	AttrGroupName        = "group_name"
	AttrPublicIngress    = "public_ingress"
	AttrConsoleAccess    = "console_access"
	AttrMFADevices       = "mfa_devices"
	AttrPasswordLastUsed = "password_last_used"
	AttrCluster          = "cluster"
	AttrDesiredCount     = "desired_count"
	AttrRunningCount     = "running_count"
	AttrTaskFamily       = "task_family"
	AttrCurrentRevision  = "current_revision"
	AttrLatestRevision   = "latest_revision"
	AttrContainerUsers   = "container_users"
	AttrTrailCount       = "trail_count"
	AttrLoggingTrails    = "logging_trails"
	AttrAlarmCount       = "alarm_count"
	AttrEnvKeys          = "env_keys"
	AttrMemoryMB         = "memory_mb"
	AttrMaxMemoryUsedMB  = "max_memory_used_mb"
	AttrOrigins          = "origins"
)
