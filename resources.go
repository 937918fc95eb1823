package authclient

import (
	"context"
	"net/url"
	"strconv"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
)

// Resources is the typed facade over the remote account resources. Every
// operation returns a Result, account scoped calls without a credential
// fail with NOT_AUTHENTICATED before any request is sent.
type Resources struct {
	transport  *Transport
	credential func() string
	logger     Logger
}

// NewResources binds a facade to the controller's transport and credential
func NewResources(c *Controller) *Resources {
	return &Resources{
		transport:  c.transport,
		credential: c.Credential,
		logger:     c.logger,
	}
}

// PageRequest selects a page of a list endpoint. Zero values use page 1
// and 20 items per page.
type PageRequest struct {
	Page    int
	PerPage int
}

func (p PageRequest) values() url.Values {
	page, perPage := p.Page, p.PerPage
	if page < 1 {
		page = defaultPage
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
}

// Page is a paginated list as returned by the remote service
type Page[T any] struct {
	Items         []T  `json:"items"`
	ItemsReceived int  `json:"itemsReceived"`
	ItemsTotal    int  `json:"itemsTotal"`
	CurPage       int  `json:"curPage"`
	NextPage      *int `json:"nextPage"`
	PrevPage      *int `json:"prevPage"`
	PageTotal     int  `json:"pageTotal"`
}

// HasNext reports whether another page follows
func (p Page[T]) HasNext() bool {
	return p.NextPage != nil
}

// invoke sends req and decodes the body into T. authRequired gates the
// call on a present credential.
func invoke[T any](ctx context.Context, r *Resources, req Request, authRequired bool) Result[T] {
	var out T
	if authRequired && r.credential() == "" {
		return Fail[T](failureFrom(notAuthenticatedError(req.Path)))
	}
	if err := r.transport.Do(ctx, req, &out); err != nil {
		r.logger.Debug("%s %s failed: %v", req.Method, req.Path, err)
		return Fail[T](failureFrom(err))
	}
	return Ok(out)
}

func invokeEmpty(ctx context.Context, r *Resources, req Request) Result[Empty] {
	if r.credential() == "" {
		return Fail[Empty](failureFrom(notAuthenticatedError(req.Path)))
	}
	if err := r.transport.Do(ctx, req, nil); err != nil {
		r.logger.Debug("%s %s failed: %v", req.Method, req.Path, err)
		return Fail[Empty](failureFrom(err))
	}
	return Ok(Empty{})
}

func invalid[T any](err error) Result[T] {
	return Fail[T](failureFrom(err))
}

func pathID(v int64) string {
	return strconv.FormatInt(v, 10)
}
