package authclient

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	PermissionViewOwnLoans       = "can_view_own_loans"
	PermissionViewStudentLoans   = "can_view_student_loans"
	PermissionCreateSupportCards = "can_create_support_cards"
)

// PermissionSet is the server computed capability map. Callers go through
// Allows and Limit instead of inspecting values directly.
type PermissionSet map[string]any

// Allows reports whether the named capability is granted. Booleans are
// taken as is, numbers grant when positive and strings when they parse as true.
func (p PermissionSet) Allows(name string) bool {
	if p == nil {
		return false
	}
	switch v := p[name].(type) {
	case bool:
		return v
	case float64:
		return v > 0
	case int:
		return v > 0
	case int64:
		return v > 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f > 0
	case string:
		ok, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && ok
	default:
		return false
	}
}

// Limit returns a numeric capability value.
func (p PermissionSet) Limit(name string) (int, bool) {
	if p == nil {
		return 0, false
	}
	switch v := p[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		return i, err == nil
	default:
		return 0, false
	}
}

func (p PermissionSet) CanViewOwnLoans() bool {
	return p.Allows(PermissionViewOwnLoans)
}

func (p PermissionSet) CanViewStudentLoans() bool {
	return p.Allows(PermissionViewStudentLoans)
}

func (p PermissionSet) CanCreateSupportCards() bool {
	return p.Allows(PermissionCreateSupportCards)
}

// Clone returns a shallow copy
func (p PermissionSet) Clone() PermissionSet {
	if p == nil {
		return nil
	}
	out := make(PermissionSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
