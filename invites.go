package authclient

import (
	"context"
	"net/http"
)

type inviteEnvelope struct {
	Invite *Invite `json:"invite"`
}

// ValidateInvite looks up an invitation token. A token the server rejects
// with a non 2xx status is a Failure, a 2xx answer with valid=false comes
// back as an Ok InviteValidation.
func (r *Resources) ValidateInvite(ctx context.Context, token string) Result[InviteValidation] {
	if err := validateRequired("token", token); err != nil {
		return invalid[InviteValidation](err)
	}
	return invoke[InviteValidation](ctx, r, Request{
		Method: http.MethodPost,
		Path:   "/invites/validate",
		Body:   map[string]string{"token": token},
	}, false)
}

// CreateInvite issues an invitation on behalf of the current user. The
// sub role is passed through as given, the remote service decides if it
// fits the role.
func (r *Resources) CreateInvite(ctx context.Context, req InviteRequest) Result[*Invite] {
	if err := firstError(
		validateEmail("email", req.Email),
		validateOneOf("role", req.Role, RoleStudent, RoleInstructor, RoleFamilyMember, RoleAdmin, RoleSponsor),
	); err != nil {
		return invalid[*Invite](err)
	}
	res := invoke[inviteEnvelope](ctx, r, Request{
		Method:         http.MethodPost,
		Path:           "/invites/create",
		Body:           req,
		WithCredential: true,
	}, true)
	return mapResult(res, func(e inviteEnvelope) *Invite { return e.Invite })
}
