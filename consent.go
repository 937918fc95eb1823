package authclient

import (
	"context"
	"net/http"
)

// ConsentType names a consent grant
type ConsentType string

const (
	ConsentPeerOffers    ConsentType = "peer_offers"
	ConsentSponsorOffers ConsentType = "sponsor_offers"
	ConsentMarketing     ConsentType = "marketing"
)

// ConsentRecord holds the user's current grants
type ConsentRecord struct {
	UserID        int64 `json:"user_id,omitempty"`
	PeerOffers    bool  `json:"peer_offers"`
	SponsorOffers bool  `json:"sponsor_offers"`
	Marketing     bool  `json:"marketing"`
	UpdatedAt     int64 `json:"updated_at,omitempty"`
}

// Granted reports the grant for a consent type
func (c ConsentRecord) Granted(t ConsentType) bool {
	switch t {
	case ConsentPeerOffers:
		return c.PeerOffers
	case ConsentSponsorOffers:
		return c.SponsorOffers
	case ConsentMarketing:
		return c.Marketing
	default:
		return false
	}
}

// ConsentChange is one entry of the consent history log
type ConsentChange struct {
	ID          int64       `json:"id"`
	ConsentType ConsentType `json:"consent_type"`
	Granted     bool        `json:"granted"`
	CreatedAt   int64       `json:"created_at,omitempty"`
}

type consentEnvelope struct {
	Consent *ConsentRecord `json:"consent"`
}

// Consent returns the current grants
func (r *Resources) Consent(ctx context.Context) Result[*ConsentRecord] {
	return invoke[*ConsentRecord](ctx, r, Request{
		Method:         http.MethodGet,
		Path:           "/consent",
		WithCredential: true,
	}, true)
}

// UpdateConsent sets one grant
func (r *Resources) UpdateConsent(ctx context.Context, consentType ConsentType, granted bool) Result[*ConsentRecord] {
	if err := validateOneOf("consent_type", consentType, ConsentPeerOffers, ConsentSponsorOffers, ConsentMarketing); err != nil {
		return invalid[*ConsentRecord](err)
	}
	res := invoke[consentEnvelope](ctx, r, Request{
		Method: http.MethodPut,
		Path:   "/consent",
		Body: map[string]any{
			"consent_type": consentType,
			"granted":      granted,
		},
		WithCredential: true,
	}, true)
	return mapResult(res, func(e consentEnvelope) *ConsentRecord { return e.Consent })
}

// ConsentHistory pages through past consent changes
func (r *Resources) ConsentHistory(ctx context.Context, page PageRequest) Result[Page[ConsentChange]] {
	return invoke[Page[ConsentChange]](ctx, r, Request{
		Method:         http.MethodGet,
		Path:           "/consent/history",
		Query:          page.values(),
		WithCredential: true,
	}, true)
}
