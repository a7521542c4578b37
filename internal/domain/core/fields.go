package core

import "onboarding/internal/domain/auth"

// FilterEmployeeFields hides the national ID from everyone but HR. The
// employee sees only the last four digits of their own.
func FilterEmployeeFields(emp *Employee, user auth.UserContext, isSelf bool) {
	if user.IsHR() {
		return
	}
	if isSelf && len(emp.NationalID) > 4 {
		emp.NationalID = "***-**-" + emp.NationalID[len(emp.NationalID)-4:]
		return
	}
	emp.NationalID = ""
}
