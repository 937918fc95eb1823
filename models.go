package authclient

import (
	"strings"
	"time"
)

// Role is the account role assigned by the remote service
type Role string

const (
	RoleStudent      Role = "student"
	RoleInstructor   Role = "instructor"
	RoleFamilyMember Role = "family_member"
	RoleAdmin        Role = "admin"
	RoleSponsor      Role = "sponsor"
)

// SubRole refines a family member role. It is advisory only, the remote
// service decides whether it is consistent with the role.
type SubRole string

const (
	SubRoleFather    SubRole = "father"
	SubRoleMother    SubRole = "mother"
	SubRoleSupporter SubRole = "supporter"
)

// User is the account record returned by the remote service
type User struct {
	ID              int64   `json:"id"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	Role            Role    `json:"role"`
	SubRole         SubRole `json:"sub_role,omitempty"`
	ProfileImageURL string  `json:"profile_image_url,omitempty"`
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// RoleLabel renders "role (sub role)" with underscores replaced by spaces.
func (u *User) RoleLabel() string {
	if u == nil {
		return ""
	}
	label := strings.ReplaceAll(string(u.Role), "_", " ")
	if u.SubRole != "" {
		label += " (" + strings.ReplaceAll(string(u.SubRole), "_", " ") + ")"
	}
	return label
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Snapshot is a read-only copy of the session record
type Snapshot struct {
	State       SessionState
	Ready       bool
	Credential  string
	User        *User
	Permissions PermissionSet
}

// Authenticated reports whether the snapshot carries a user.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// InviteStatus is the lifecycle status of an invitation
type InviteStatus string

const (
	InviteStatusPending InviteStatus = "pending"
	InviteStatusUsed    InviteStatus = "used"
	InviteStatusExpired InviteStatus = "expired"
	InviteStatusInvalid InviteStatus = "invalid"
)

// Invite is owned by the remote service, clients only validate and consume it.
type Invite struct {
	ID              int64        `json:"id,omitempty"`
	Token           string       `json:"token,omitempty"`
	Email           string       `json:"email"`
	Role            Role         `json:"role"`
	SubRole         SubRole      `json:"sub_role,omitempty"`
	TargetStudentID *int64       `json:"target_student_id,omitempty"`
	Status          InviteStatus `json:"status,omitempty"`
	ExpiresAt       *time.Time   `json:"expires_at,omitempty"`
}

// Inviter identifies who issued an invite
type Inviter struct {
	ID        int64  `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// FullName joins first and last name.
func (i *Inviter) FullName() string {
	if i == nil {
		return ""
	}
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// InviteValidation is the answer to an invite token lookup
type InviteValidation struct {
	Valid     bool     `json:"valid"`
	Invite    *Invite  `json:"invite,omitempty"`
	InvitedBy *Inviter `json:"invited_by,omitempty"`
	Message   string   `json:"message,omitempty"`
	Code      string   `json:"code,omitempty"`
}

// InviteRequest creates a new invitation
type InviteRequest struct {
	Email           string  `json:"email"`
	Role            Role    `json:"role"`
	SubRole         SubRole `json:"sub_role,omitempty"`
	TargetStudentID *int64  `json:"target_student_id,omitempty"`
}

// SignupFields are the profile fields submitted with a signup
type SignupFields struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Profile is the authoritative "who am I" answer
type Profile struct {
	User        *User         `json:"user"`
	Permissions PermissionSet `json:"permissions"`
}

// Empty is the value carried by results of operations with no payload.
type Empty struct{}
