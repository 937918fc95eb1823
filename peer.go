package authclient

import (
	"context"
	"net/http"
)

// PeerType is the kind of peer transaction
type PeerType string

const (
	PeerOffer  PeerType = "offer"
	PeerGift   PeerType = "gift"
	PeerCoupon PeerType = "coupon"
)

// PeerStatus is the lifecycle status of a peer transaction
type PeerStatus string

const (
	PeerStatusPending  PeerStatus = "pending"
	PeerStatusAccepted PeerStatus = "accepted"
	PeerStatusDeclined PeerStatus = "declined"
	PeerStatusBlocked  PeerStatus = "blocked"
	PeerStatusExpired  PeerStatus = "expired"
	// PeerStatusAll only filters history queries
	PeerStatusAll PeerStatus = "all"
)

// PeerAction answers a received peer transaction
type PeerAction string

const (
	PeerAccept  PeerAction = "accept"
	PeerDecline PeerAction = "decline"
	PeerBlock   PeerAction = "block"
)

// PeerDirection filters history by who sent the transaction
type PeerDirection string

const (
	PeerDirectionAll      PeerDirection = "all"
	PeerDirectionSent     PeerDirection = "sent"
	PeerDirectionReceived PeerDirection = "received"
)

const defaultOfferExpiryDays = 30

// PeerTransaction is a directed offer, gift or coupon between two users
type PeerTransaction struct {
	ID               int64      `json:"id"`
	SenderID         int64      `json:"sender_id"`
	RecipientID      int64      `json:"recipient_id"`
	Sender           *User      `json:"sender,omitempty"`
	Recipient        *User      `json:"recipient,omitempty"`
	Type             PeerType   `json:"type"`
	Message          string     `json:"message,omitempty"`
	OfferID          *int64     `json:"offer_id,omitempty"`
	ValueType        string     `json:"value_type,omitempty"`
	ValueAmount      *float64   `json:"value_amount,omitempty"`
	ValueDescription string     `json:"value_description,omitempty"`
	Status           PeerStatus `json:"status"`
	ExpiresAt        int64      `json:"expires_at,omitempty"`
	CreatedAt        int64      `json:"created_at,omitempty"`
}

// PeerOfferOptions carries the optional parts of a peer offer. A zero
// ExpiresInDays means 30.
type PeerOfferOptions struct {
	Message          string
	OfferID          *int64
	ValueType        string
	ValueAmount      *float64
	ValueDescription string
	ExpiresInDays    int
}

type peerSendBody struct {
	RecipientID      int64    `json:"recipient_id"`
	Type             PeerType `json:"type"`
	Message          *string  `json:"message"`
	OfferID          *int64   `json:"offer_id"`
	ValueType        *string  `json:"value_type"`
	ValueAmount      *float64 `json:"value_amount"`
	ValueDescription *string  `json:"value_description"`
	ExpiresInDays    int      `json:"expires_in_days"`
}

// PeerResponse is the outcome of answering a transaction
type PeerResponse struct {
	Transaction *PeerTransaction `json:"transaction"`
	Message     string           `json:"message"`
}

// PeerHistoryQuery filters the history. Zero values mean all directions,
// all statuses and the first page.
type PeerHistoryQuery struct {
	Direction PeerDirection
	Status    PeerStatus
	PageRequest
}

type transactionEnvelope struct {
	Transaction *PeerTransaction `json:"transaction"`
}

var peerStatuses = []PeerStatus{
	PeerStatusPending, PeerStatusAccepted, PeerStatusDeclined,
	PeerStatusBlocked, PeerStatusExpired, PeerStatusAll,
}

// SendPeerOffer sends an offer, gift or coupon to another user
func (r *Resources) SendPeerOffer(ctx context.Context, recipientID int64, kind PeerType, opts PeerOfferOptions) Result[*PeerTransaction] {
	if err := firstError(
		validateID("recipient_id", recipientID),
		validateOneOf("type", kind, PeerOffer, PeerGift, PeerCoupon),
	); err != nil {
		return invalid[*PeerTransaction](err)
	}

	body := peerSendBody{
		RecipientID:      recipientID,
		Type:             kind,
		Message:          optional(opts.Message),
		OfferID:          opts.OfferID,
		ValueType:        optional(opts.ValueType),
		ValueAmount:      opts.ValueAmount,
		ValueDescription: optional(opts.ValueDescription),
		ExpiresInDays:    opts.ExpiresInDays,
	}
	if body.ExpiresInDays <= 0 {
		body.ExpiresInDays = defaultOfferExpiryDays
	}

	res := invoke[transactionEnvelope](ctx, r, Request{
		Method:         http.MethodPost,
		Path:           "/peer/send",
		Body:           body,
		WithCredential: true,
	}, true)
	return mapResult(res, func(e transactionEnvelope) *PeerTransaction { return e.Transaction })
}

// PeerInbox pages through received transactions. An empty status means pending.
func (r *Resources) PeerInbox(ctx context.Context, status PeerStatus, page PageRequest) Result[Page[PeerTransaction]] {
	if status == "" {
		status = PeerStatusPending
	}
	if err := validateOneOf("status", status, peerStatuses...); err != nil {
		return invalid[Page[PeerTransaction]](err)
	}
	query := page.values()
	query.Set("status", string(status))
	return invoke[Page[PeerTransaction]](ctx, r, Request{
		Method:         http.MethodGet,
		Path:           "/peer/inbox",
		Query:          query,
		WithCredential: true,
	}, true)
}

// RespondToPeerOffer accepts, declines or blocks a received transaction
func (r *Resources) RespondToPeerOffer(ctx context.Context, transactionID int64, action PeerAction) Result[PeerResponse] {
	if err := firstError(
		validateID("transaction_id", transactionID),
		validateOneOf("action", action, PeerAccept, PeerDecline, PeerBlock),
	); err != nil {
		return invalid[PeerResponse](err)
	}
	return invoke[PeerResponse](ctx, r, Request{
		Method: http.MethodPost,
		Path:   "/peer/respond",
		Body: map[string]any{
			"transaction_id": transactionID,
			"action":         action,
		},
		WithCredential: true,
	}, true)
}

// PeerHistory pages through sent and received transactions
func (r *Resources) PeerHistory(ctx context.Context, q PeerHistoryQuery) Result[Page[PeerTransaction]] {
	if q.Direction == "" {
		q.Direction = PeerDirectionAll
	}
	if q.Status == "" {
		q.Status = PeerStatusAll
	}
	if err := firstError(
		validateOneOf("direction", q.Direction, PeerDirectionAll, PeerDirectionSent, PeerDirectionReceived),
		validateOneOf("status", q.Status, peerStatuses...),
	); err != nil {
		return invalid[Page[PeerTransaction]](err)
	}
	query := q.PageRequest.values()
	query.Set("direction", string(q.Direction))
	query.Set("status", string(q.Status))
	return invoke[Page[PeerTransaction]](ctx, r, Request{
		Method:         http.MethodGet,
		Path:           "/peer/history",
		Query:          query,
		WithCredential: true,
	}, true)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
