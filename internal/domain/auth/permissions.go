package auth

const (
	PermEmployeesRead     = "core.employees.read"
	PermEmployeesWrite    = "core.employees.write"
	PermOnboardingRead    = "onboarding.read"
	PermOnboardingWrite   = "onboarding.write"
	PermOnboardingReview  = "onboarding.review"
	PermOnboardingExport  = "onboarding.export"
	PermTemplatesManage   = "onboarding.templates.manage"
	PermNotificationsRead = "notifications.read"
	PermAuditRead         = "audit.read"
	PermSystemAdmin       = "admin.system"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermOnboardingRead,
	PermOnboardingWrite,
	PermOnboardingReview,
	PermOnboardingExport,
	PermTemplatesManage,
	PermNotificationsRead,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermOnboardingRead,
		PermOnboardingWrite,
		PermNotificationsRead,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOnboardingRead,
		PermOnboardingWrite,
		PermOnboardingReview,
		PermOnboardingExport,
		PermTemplatesManage,
		PermNotificationsRead,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermSystemAdmin,
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOnboardingRead,
		PermOnboardingWrite,
		PermOnboardingReview,
		PermOnboardingExport,
		PermTemplatesManage,
		PermNotificationsRead,
		PermAuditRead,
	},
}
