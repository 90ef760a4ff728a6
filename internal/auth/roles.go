package auth

// Service role constants.
const (
	RoleIngest    = "ingest"    // may report activity events
	RoleProvision = "provision" // may create gamification records
	RoleOperator  = "operator"  // both
)

// IngestRoles returns roles allowed to report events.
func IngestRoles() []string {
	return []string{RoleIngest, RoleOperator}
}

// ProvisionRoles returns roles allowed to provision users.
func ProvisionRoles() []string {
	return []string{RoleProvision, RoleOperator}
}
