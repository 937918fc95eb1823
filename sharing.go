package authclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// LinkType is the kind of share link
type LinkType string

const (
	LinkTypeUnlisted LinkType = "unlisted"
	LinkTypePublic   LinkType = "public"
	LinkTypePrivate  LinkType = "private"
)

// PermissionLevel is what a share recipient may do
type PermissionLevel string

const (
	PermissionLevelView    PermissionLevel = "view"
	PermissionLevelComment PermissionLevel = "comment"
	PermissionLevelEdit    PermissionLevel = "edit"
)

// ShareKind selects what RevokeShare removes
type ShareKind string

const (
	ShareKindPermission ShareKind = "permission"
	ShareKindLink       ShareKind = "link"
)

// EmbedTheme is the embed widget theme
type EmbedTheme string

const (
	EmbedThemeLight EmbedTheme = "light"
	EmbedThemeDark  EmbedTheme = "dark"
)

// ShareLink grants time or view bounded access to a stack
type ShareLink struct {
	ID          int64    `json:"id"`
	StackID     int64    `json:"stack_id"`
	Token       string   `json:"token,omitempty"`
	LinkType    LinkType `json:"link_type"`
	HasPassword bool     `json:"has_password,omitempty"`
	ExpiresAt   *int64   `json:"expires_at,omitempty"`
	MaxViews    *int     `json:"max_views,omitempty"`
	ViewCount   int      `json:"view_count,omitempty"`
	CreatedAt   int64    `json:"created_at,omitempty"`
}

// SharePermission grants a principal access to a stack
type SharePermission struct {
	ID              int64           `json:"id"`
	StackID         int64           `json:"stack_id"`
	Email           string          `json:"email"`
	UserID          *int64          `json:"user_id,omitempty"`
	PermissionLevel PermissionLevel `json:"permission_level"`
	CreatedAt       int64           `json:"created_at,omitempty"`
}

// ShareLinkOptions tunes a generated link. Zero values are sent as null.
type ShareLinkOptions struct {
	LinkType  LinkType
	Password  string
	ExpiresAt *time.Time
	MaxViews  int
}

type shareLinkBody struct {
	LinkType  LinkType `json:"link_type"`
	Password  *string  `json:"password"`
	ExpiresAt *int64   `json:"expires_at"`
	MaxViews  *int     `json:"max_views"`
}

// GeneratedShareLink is the link record plus its public URL
type GeneratedShareLink struct {
	ShareLink *ShareLink `json:"share_link"`
	URL       string     `json:"url"`
}

// StackSharing lists who and what can reach a stack
type StackSharing struct {
	Permissions []SharePermission
	Links       []ShareLink
}

// EmbedOptions defaults to the light theme at 400x600
type EmbedOptions struct {
	Theme  EmbedTheme
	Width  int
	Height int
}

// Embed is the embeddable widget for a stack
type Embed struct {
	Code   string `json:"embed_code"`
	URL    string `json:"embed_url,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// GenerateShareLink creates a share link for a stack
func (r *Resources) GenerateShareLink(ctx context.Context, stackID int64, opts ShareLinkOptions) Result[GeneratedShareLink] {
	body := shareLinkBody{LinkType: opts.LinkType}
	if body.LinkType == "" {
		body.LinkType = LinkTypeUnlisted
	}
	if opts.Password != "" {
		body.Password = &opts.Password
	}
	if opts.ExpiresAt != nil {
		ms := opts.ExpiresAt.UnixMilli()
		body.ExpiresAt = &ms
	}
	if opts.MaxViews > 0 {
		body.MaxViews = &opts.MaxViews
	}

	if err := firstError(
		validateID("stack_id", stackID),
		validateOneOf("link_type", body.LinkType, LinkTypeUnlisted, LinkTypePublic, LinkTypePrivate),
	); err != nil {
		return invalid[GeneratedShareLink](err)
	}

	return invoke[GeneratedShareLink](ctx, r, Request{
		Method:         http.MethodPost,
		Path:           "/stacks/" + pathID(stackID) + "/share-link",
		Body:           body,
		WithCredential: true,
	}, true)
}

// ShareWithEmail grants a person access to a stack. An empty level means view.
func (r *Resources) ShareWithEmail(ctx context.Context, stackID int64, email string, level PermissionLevel) Result[*SharePermission] {
	if level == "" {
		level = PermissionLevelView
	}
	if err := firstError(
		validateID("stack_id", stackID),
		validateEmail("email", email),
		validateOneOf("permission_level", level, PermissionLevelView, PermissionLevelComment, PermissionLevelEdit),
	); err != nil {
		return invalid[*SharePermission](err)
	}

	res := invoke[permissionEnvelope](ctx, r, Request{
		Method: http.MethodPost,
		Path:   "/stacks/" + pathID(stackID) + "/share",
		Body: map[string]any{
			"email":            email,
			"permission_level": level,
		},
		WithCredential: true,
	}, true)
	return mapResult(res, func(v permissionEnvelope) *SharePermission { return v.Permission })
}

type permissionEnvelope struct {
	Permission *SharePermission `json:"permission"`
}

// SharePermissions reads the sharing artifacts off the stack detail
func (r *Resources) SharePermissions(ctx context.Context, stackID int64) Result[StackSharing] {
	return mapResult(r.Stack(ctx, stackID), func(d *StackDetail) StackSharing {
		if d == nil {
			return StackSharing{}
		}
		return StackSharing{Permissions: d.SharePermissions, Links: d.ShareLinks}
	})
}

// RevokeShare removes a permission or a link. An empty kind means permission.
func (r *Resources) RevokeShare(ctx context.Context, stackID, shareID int64, kind ShareKind) Result[Empty] {
	if kind == "" {
		kind = ShareKindPermission
	}
	if err := firstError(
		validateID("stack_id", stackID),
		validateID("share_id", shareID),
		validateOneOf("type", kind, ShareKindPermission, ShareKindLink),
	); err != nil {
		return invalid[Empty](err)
	}
	return invokeEmpty(ctx, r, Request{
		Method:         http.MethodDelete,
		Path:           "/stacks/" + pathID(stackID) + "/share/" + pathID(shareID),
		Query:          url.Values{"type": {string(kind)}},
		WithCredential: true,
	})
}

// EmbedCode fetches the embeddable widget markup for a stack
func (r *Resources) EmbedCode(ctx context.Context, stackID int64, opts EmbedOptions) Result[Embed] {
	if opts.Theme == "" {
		opts.Theme = EmbedThemeLight
	}
	if opts.Width <= 0 {
		opts.Width = 400
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	if err := firstError(
		validateID("stack_id", stackID),
		validateOneOf("theme", opts.Theme, EmbedThemeLight, EmbedThemeDark),
	); err != nil {
		return invalid[Embed](err)
	}
	return invoke[Embed](ctx, r, Request{
		Method: http.MethodGet,
		Path:   "/stacks/" + pathID(stackID) + "/embed",
		Query: url.Values{
			"theme":  {string(opts.Theme)},
			"width":  {strconv.Itoa(opts.Width)},
			"height": {strconv.Itoa(opts.Height)},
		},
		WithCredential: true,
	}, true)
}
