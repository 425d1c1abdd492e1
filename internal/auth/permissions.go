package auth

import (
	"strings"

	"ongon.org/internal/apperr"
)

// Permission is a closed set of capabilities. Each belongs to one module.
type Permission string

const (
	PermUserManagement    Permission = "user_management"
	PermCourseManagement  Permission = "course_management"
	PermPatientManagement Permission = "patient_management"
	PermFarmManagement    Permission = "farm_management"
	PermLoanManagement    Permission = "loan_management"
	PermProjectManagement Permission = "project_management"
	PermEventManagement   Permission = "event_management"
	PermReportAccess      Permission = "report_access"
)

// PermissionInfo describes a catalog permission.
type PermissionInfo struct {
	Name        Permission
	Module      string
	Description string
}

// Permissions is the full permission catalog.
var Permissions = []PermissionInfo{
	{PermUserManagement, "admin", "Manage users and roles"},
	{PermCourseManagement, "education", "Manage courses and content"},
	{PermPatientManagement, "healthcare", "Manage patient records"},
	{PermFarmManagement, "agriculture", "Manage farm operations"},
	{PermLoanManagement, "finance", "Manage microfinance operations"},
	{PermProjectManagement, "projects", "Manage projects and campaigns"},
	{PermEventManagement, "events", "Manage events and activities"},
	{PermReportAccess, "reports", "Access reports and analytics"},
}

// Module returns the owning module, or "" for an unknown permission.
func (p Permission) Module() string {
	for _, info := range Permissions {
		if info.Name == p {
			return info.Module
		}
	}
	return ""
}

// ParsePermission maps a stored name onto the enum.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.TrimSpace(strings.ToLower(s)))
	if p.Module() == "" {
		return "", apperr.Validation("unknown permission %q", s)
	}
	return p, nil
}

// RoleName is a closed set of roles.
type RoleName string

const (
	RoleAdmin              RoleName = "admin"
	RoleDonor              RoleName = "donor"
	RoleVolunteer          RoleName = "volunteer"
	RoleBeneficiary        RoleName = "beneficiary"
	RoleHealthcareProvider RoleName = "healthcare_provider"
	RoleEducator           RoleName = "educator"
	RoleFarmer             RoleName = "farmer"
	RoleBusinessOwner      RoleName = "business_owner"
	RoleOrganization       RoleName = "organization"
)

// RoleInfo describes a catalog role and the permissions it grants.
type RoleInfo struct {
	Name        RoleName
	Description string
	Grants      []Permission
}

// Roles is the full role catalog. Only admin carries permissions; the other
// roles gate features by membership.
var Roles = []RoleInfo{
	{RoleAdmin, "System Administrator", allPermissions()},
	{RoleDonor, "Donation Provider", nil},
	{RoleVolunteer, "Volunteer Worker", nil},
	{RoleBeneficiary, "Service Beneficiary", nil},
	{RoleHealthcareProvider, "Healthcare Professional", nil},
	{RoleEducator, "Education Provider", nil},
	{RoleFarmer, "Agricultural Producer", nil},
	{RoleBusinessOwner, "Business Entity", nil},
	{RoleOrganization, "Non-profit Organization", nil},
}

func allPermissions() []Permission {
	out := make([]Permission, 0, len(Permissions))
	for _, p := range Permissions {
		out = append(out, p.Name)
	}
	return out
}

// ParseRole maps a stored name onto the enum.
func ParseRole(s string) (RoleName, error) {
	r := RoleName(strings.TrimSpace(strings.ToLower(s)))
	for _, info := range Roles {
		if info.Name == r {
			return r, nil
		}
	}
	return "", apperr.Validation("unknown role %q", s)
}
