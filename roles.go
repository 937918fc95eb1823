package authclient

import "slices"

const (
	DashboardStudent    = "/student/dashboard"
	DashboardInstructor = "/instructor/dashboard"
	DashboardFamily     = "/family/dashboard"
	DashboardAdmin      = "/admin/dashboard"
)

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleFamilyMember, RoleAdmin, RoleSponsor:
		return true
	default:
		return false
	}
}

// Label is the display name used in invite banners
func (r Role) Label() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleInstructor:
		return "Instructor"
	case RoleFamilyMember:
		return "Family Member"
	case RoleAdmin:
		return "Administrator"
	case RoleSponsor:
		return "Sponsor"
	default:
		return string(r)
	}
}

// IsValid checks if the sub role is one of the known sub roles
func (s SubRole) IsValid() bool {
	switch s {
	case SubRoleFather, SubRoleMother, SubRoleSupporter:
		return true
	default:
		return false
	}
}

// Label is the display name used in invite banners
func (s SubRole) Label() string {
	switch s {
	case SubRoleFather:
		return "Father"
	case SubRoleMother:
		return "Mother"
	case SubRoleSupporter:
		return "Supporter"
	default:
		return string(s)
	}
}

// DashboardPath maps a role to its landing page. Roles without a
// dedicated dashboard land on the student one.
func DashboardPath(role Role) string {
	switch role {
	case RoleAdmin:
		return DashboardAdmin
	case RoleInstructor:
		return DashboardInstructor
	case RoleFamilyMember:
		return DashboardFamily
	default:
		return DashboardStudent
	}
}

// HasRole checks the current user's role
func (c *Controller) HasRole(role Role) bool {
	u := c.User()
	return u != nil && u.Role == role
}

// HasAnyRole checks the current user's role against a list
func (c *Controller) HasAnyRole(roles ...Role) bool {
	u := c.User()
	return u != nil && slices.Contains(roles, u.Role)
}

// HasSubRole checks the current user's sub role
func (c *Controller) HasSubRole(sub SubRole) bool {
	u := c.User()
	return u != nil && u.SubRole == sub
}

func (c *Controller) IsStudent() bool      { return c.HasRole(RoleStudent) }
func (c *Controller) IsInstructor() bool   { return c.HasRole(RoleInstructor) }
func (c *Controller) IsFamilyMember() bool { return c.HasRole(RoleFamilyMember) }
func (c *Controller) IsAdmin() bool        { return c.HasRole(RoleAdmin) }
func (c *Controller) IsSponsor() bool      { return c.HasRole(RoleSponsor) }
func (c *Controller) IsFather() bool       { return c.HasSubRole(SubRoleFather) }
func (c *Controller) IsMother() bool       { return c.HasSubRole(SubRoleMother) }
func (c *Controller) IsSupporter() bool    { return c.HasSubRole(SubRoleSupporter) }

// CanInviteFamily is granted to students and admins
func (c *Controller) CanInviteFamily() bool {
	return c.HasAnyRole(RoleStudent, RoleAdmin)
}

// CanInviteStudents is granted to instructors and admins
func (c *Controller) CanInviteStudents() bool {
	return c.HasAnyRole(RoleInstructor, RoleAdmin)
}

func (c *Controller) CanViewLoans() bool {
	p := c.Permissions()
	return p.CanViewOwnLoans() || p.CanViewStudentLoans()
}

func (c *Controller) CanCreateSupportCards() bool {
	return c.Permissions().CanCreateSupportCards()
}

// DashboardURL returns the landing page for the current user, or the site
// root when nobody is logged in.
func (c *Controller) DashboardURL() string {
	u := c.User()
	if u == nil {
		return c.cfg.SiteRoot
	}
	return DashboardPath(u.Role)
}
