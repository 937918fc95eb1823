package authclient

import (
	"context"
	"encoding/json"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Visibility controls who can see a stack
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

const defaultThemeColor = "#8B0000"

// Stack is a named, ordered collection of support cards
type Stack struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id,omitempty"`
	Name          string     `json:"stack_name"`
	Slug          string     `json:"slug,omitempty"`
	Description   string     `json:"description,omitempty"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	ThemeColor    string     `json:"theme_color,omitempty"`
	Visibility    Visibility `json:"visibility"`
	IsDefault     bool       `json:"is_default"`
	DisplayOrder  int        `json:"display_order,omitempty"`
	CardCount     int        `json:"card_count,omitempty"`
	CreatedAt     int64      `json:"created_at,omitempty"`
}

// StackCard places a support card inside a stack
type StackCard struct {
	ID            int64        `json:"id"`
	StackID       int64        `json:"stack_id"`
	SupportCardID int64        `json:"support_card_id"`
	DisplayOrder  int          `json:"display_order"`
	Card          *SupportCard `json:"card,omitempty"`
}

// StackDetail is a stack with its cards and sharing artifacts
type StackDetail struct {
	Stack
	Cards            []StackCard       `json:"cards"`
	SharePermissions []SharePermission `json:"share_permissions"`
	ShareLinks       []ShareLink       `json:"share_links"`
}

// UnmarshalJSON accepts the stack fields either inline or nested under "stack".
func (d *StackDetail) UnmarshalJSON(b []byte) error {
	type flat StackDetail
	var f flat
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	var nested struct {
		Stack *Stack `json:"stack"`
	}
	if err := json.Unmarshal(b, &nested); err == nil && nested.Stack != nil {
		f.Stack = *nested.Stack
	}
	*d = StackDetail(f)
	return nil
}

// CardIDs returns the support card ids in display order
func (d *StackDetail) CardIDs() []int64 {
	out := make([]int64, 0, len(d.Cards))
	for _, c := range d.Cards {
		out = append(out, c.SupportCardID)
	}
	return out
}

// StackInput creates a stack. Empty ThemeColor and Visibility take the
// defaults #8B0000 and public.
type StackInput struct {
	Name          string
	Description   string
	CoverImageURL string
	ThemeColor    string
	Visibility    Visibility
	IsDefault     bool
}

type createStackBody struct {
	Name          string     `json:"stack_name"`
	Description   string     `json:"description"`
	CoverImageURL *string    `json:"cover_image_url"`
	ThemeColor    string     `json:"theme_color"`
	Visibility    Visibility `json:"visibility"`
	IsDefault     bool       `json:"is_default"`
}

// StackUpdate changes only the fields that are set
type StackUpdate struct {
	Name          *string     `json:"stack_name,omitempty"`
	Description   *string     `json:"description,omitempty"`
	CoverImageURL *string     `json:"cover_image_url,omitempty"`
	ThemeColor    *string     `json:"theme_color,omitempty"`
	Visibility    *Visibility `json:"visibility,omitempty"`
	IsDefault     *bool       `json:"is_default,omitempty"`
	DisplayOrder  *int        `json:"display_order,omitempty"`
}

// StackCardAdded is returned when a card joins a stack
type StackCardAdded struct {
	StackCard *StackCard   `json:"stack_card"`
	Card      *SupportCard `json:"card"`
}

type stackEnvelope struct {
	Stack *Stack `json:"stack"`
}

var visibilities = []Visibility{VisibilityPublic, VisibilityUnlisted, VisibilityPrivate}

// Stacks lists the current user's stacks
func (r *Resources) Stacks(ctx context.Context) Result[[]Stack] {
	return invoke[[]Stack](ctx, r, Request{
		Method:         http.MethodGet,
		Path:           "/stacks",
		WithCredential: true,
	}, true)
}

// CreateStack creates a stack
func (r *Resources) CreateStack(ctx context.Context, in StackInput) Result[*Stack] {
	body := createStackBody{
		Name:        in.Name,
		Description: in.Description,
		ThemeColor:  in.ThemeColor,
		Visibility:  in.Visibility,
		IsDefault:   in.IsDefault,
	}
	if in.CoverImageURL != "" {
		body.CoverImageURL = &in.CoverImageURL
	}
	if body.ThemeColor == "" {
		body.ThemeColor = defaultThemeColor
	}
	if body.Visibility == "" {
		body.Visibility = VisibilityPublic
	}

	if err := firstError(
		validateRequired("stack_name", body.Name),
		validateOneOf("visibility", body.Visibility, visibilities...),
	); err != nil {
		return invalid[*Stack](err)
	}

	res := invoke[stackEnvelope](ctx, r, Request{
		Method:         http.MethodPost,
		Path:           "/stacks",
		Body:           body,
		WithCredential: true,
	}, true)
	return mapResult(res, func(e stackEnvelope) *Stack { return e.Stack })
}

// Stack fetches one stack with its cards and sharing artifacts
func (r *Resources) Stack(ctx context.Context, stackID int64) Result[*StackDetail] {
	if err := validateID("stack_id", stackID); err != nil {
		return invalid[*StackDetail](err)
	}
	return invoke[*StackDetail](ctx, r, Request{
		Method:         http.MethodGet,
		Path:           "/stacks/" + pathID(stackID),
		WithCredential: true,
	}, true)
}

// UpdateStack applies a partial update
func (r *Resources) UpdateStack(ctx context.Context, stackID int64, update StackUpdate) Result[*Stack] {
	if err := validateID("stack_id", stackID); err != nil {
		return invalid[*Stack](err)
	}
	if update.Visibility != nil {
		if err := validateOneOf("visibility", *update.Visibility, visibilities...); err != nil {
			return invalid[*Stack](err)
		}
	}
	res := invoke[stackEnvelope](ctx, r, Request{
		Method:         http.MethodPut,
		Path:           "/stacks/" + pathID(stackID),
		Body:           update,
		WithCredential: true,
	}, true)
	return mapResult(res, func(e stackEnvelope) *Stack { return e.Stack })
}

// DeleteStack removes a stack
func (r *Resources) DeleteStack(ctx context.Context, stackID int64) Result[Empty] {
	if err := validateID("stack_id", stackID); err != nil {
		return invalid[Empty](err)
	}
	return invokeEmpty(ctx, r, Request{
		Method:         http.MethodDelete,
		Path:           "/stacks/" + pathID(stackID),
		WithCredential: true,
	})
}

// AddCard appends a support card to a stack. A nil displayOrder lets the
// server place it last.
func (r *Resources) AddCard(ctx context.Context, stackID, cardID int64, displayOrder *int) Result[StackCardAdded] {
	if err := firstError(
		validateID("stack_id", stackID),
		validateID("support_card_id", cardID),
	); err != nil {
		return invalid[StackCardAdded](err)
	}
	return invoke[StackCardAdded](ctx, r, Request{
		Method: http.MethodPost,
		Path:   "/stacks/" + pathID(stackID) + "/cards",
		Body: struct {
			SupportCardID int64 `json:"support_card_id"`
			DisplayOrder  *int  `json:"display_order,omitempty"`
		}{cardID, displayOrder},
		WithCredential: true,
	}, true)
}

// RemoveCard takes a support card out of a stack
func (r *Resources) RemoveCard(ctx context.Context, stackID, cardID int64) Result[Empty] {
	if err := firstError(
		validateID("stack_id", stackID),
		validateID("support_card_id", cardID),
	); err != nil {
		return invalid[Empty](err)
	}
	return invokeEmpty(ctx, r, Request{
		Method:         http.MethodDelete,
		Path:           "/stacks/" + pathID(stackID) + "/cards/" + pathID(cardID),
		WithCredential: true,
	})
}

// ReorderCards replaces the stack order with cardIDs in one request. The
// list must be non empty and free of duplicates.
func (r *Resources) ReorderCards(ctx context.Context, stackID int64, cardIDs []int64) Result[Empty] {
	if err := validateID("stack_id", stackID); err != nil {
		return invalid[Empty](err)
	}
	err := validation.Validate(cardIDs,
		validation.Required,
		validation.By(func(value any) error {
			seen := make(map[int64]struct{}, len(cardIDs))
			for _, id := range cardIDs {
				if id < 1 {
					return validation.NewError("validation_card_id", "contains an invalid id")
				}
				if _, dup := seen[id]; dup {
					return validation.NewError("validation_card_id_duplicate", "contains duplicate ids")
				}
				seen[id] = struct{}{}
			}
			return nil
		}),
	)
	if err != nil {
		return invalid[Empty](invalidArgument("card_ids", err))
	}
	return invokeEmpty(ctx, r, Request{
		Method:         http.MethodPut,
		Path:           "/stacks/" + pathID(stackID) + "/reorder",
		Body:           map[string][]int64{"card_ids": cardIDs},
		WithCredential: true,
	})
}
