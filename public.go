package authclient

import (
	"context"
	"net/http"
	"net/url"
)

// PublicStackQuery addresses a shared stack. StackSlug empty lists the
// student's public stacks, Token and Password unlock unlisted or
// protected ones.
type PublicStackQuery struct {
	StudentSlug string
	StackSlug   string
	Token       string
	Password    string
}

// PublicProfile is the public face of a student
type PublicProfile struct {
	ID              int64  `json:"id,omitempty"`
	Slug            string `json:"slug"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// PublicStack is what anonymous visitors can see
type PublicStack struct {
	Student *PublicProfile `json:"student,omitempty"`
	Stack   *StackDetail   `json:"stack,omitempty"`
	Stacks  []Stack        `json:"stacks,omitempty"`
}

// PublicStack fetches a shared stack without sending any credential
func (r *Resources) PublicStack(ctx context.Context, q PublicStackQuery) Result[*PublicStack] {
	if err := validateRequired("student_slug", q.StudentSlug); err != nil {
		return invalid[*PublicStack](err)
	}

	path := "/public/stacks/" + url.PathEscape(q.StudentSlug)
	if q.StackSlug != "" {
		path += "/" + url.PathEscape(q.StackSlug)
	}
	query := url.Values{}
	if q.Token != "" {
		query.Set("t", q.Token)
	}
	if q.Password != "" {
		query.Set("p", q.Password)
	}

	return invoke[*PublicStack](ctx, r, Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	}, false)
}
