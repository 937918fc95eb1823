package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// SupportCard is a message of support attached to a student
type SupportCard struct {
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	AuthorID  int64  `json:"author_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message,omitempty"`
	CardType  string `json:"card_type,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// SupportCardInput creates a support card
type SupportCardInput struct {
	StudentID int64  `json:"student_id"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message"`
	CardType  string `json:"card_type,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// supportCardList accepts either a bare array or an object wrapping it
// under "cards" or "items".
type supportCardList []SupportCard

func (l *supportCardList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var cards []SupportCard
		if err := json.Unmarshal(b, &cards); err != nil {
			return err
		}
		*l = cards
		return nil
	}
	var wrapped struct {
		Cards []SupportCard `json:"cards"`
		Items []SupportCard `json:"items"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	if wrapped.Cards != nil {
		*l = wrapped.Cards
	} else {
		*l = wrapped.Items
	}
	return nil
}

// SupportCards lists a student's cards. The credential is attached when
// present, anonymous visitors see public cards.
func (r *Resources) SupportCards(ctx context.Context, studentID int64) Result[[]SupportCard] {
	if err := validateID("student_id", studentID); err != nil {
		return invalid[[]SupportCard](err)
	}
	res := invoke[supportCardList](ctx, r, Request{
		Method:         http.MethodGet,
		Path:           "/students/" + pathID(studentID) + "/support-cards",
		WithCredential: r.credential() != "",
	}, false)
	return mapResult(res, func(l supportCardList) []SupportCard { return []SupportCard(l) })
}

// SupportCardsHTML fetches the server rendered card markup
func (r *Resources) SupportCardsHTML(ctx context.Context, studentID int64) Result[string] {
	if err := validateID("student_id", studentID); err != nil {
		return invalid[string](err)
	}
	raw, err := r.transport.Raw(ctx, Request{
		Method:         http.MethodGet,
		Path:           "/students/" + pathID(studentID) + "/support-cards",
		Query:          url.Values{"format": {"html"}},
		WithCredential: r.credential() != "",
	})
	if err != nil {
		return Fail[string](failureFrom(err))
	}
	return Ok(string(raw.Body))
}

// CreateSupportCard posts a new card
func (r *Resources) CreateSupportCard(ctx context.Context, in SupportCardInput) Result[*SupportCard] {
	if err := firstError(
		validateID("student_id", in.StudentID),
		validateRequired("message", in.Message),
	); err != nil {
		return invalid[*SupportCard](err)
	}
	res := invoke[cardEnvelope](ctx, r, Request{
		Method:         http.MethodPost,
		Path:           "/support-cards",
		Body:           in,
		WithCredential: true,
	}, true)
	return mapResult(res, func(v cardEnvelope) *SupportCard { return v.Card })
}

type cardEnvelope struct {
	Card *SupportCard `json:"card"`
}
