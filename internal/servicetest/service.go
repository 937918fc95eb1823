// Package servicetest runs an in-memory stand-in for the remote account
// service. It is a fiber app executed in process through app.Test, so
// tests get real HTTP exchanges without opening a socket.
package servicetest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	authclient "github.com/goliatone/go-auth-client"
)

// BaseURL is the API root tests should configure the client with
const BaseURL = "https://service.test/api:auth"

const basePath = "/api:auth"

type account struct {
	user         authclient.User
	passwordHash []byte
	permissions  authclient.PermissionSet
}

type invite struct {
	invite    authclient.Invite
	invitedBy authclient.Inviter
}

// Service is the fake remote service
type Service struct {
	app    *fiber.App
	secret []byte
	now    func() time.Time

	mu          sync.Mutex
	accounts    map[string]*account
	nextID      int64
	invites     map[string]*invite
	revoked     map[string]bool
	stacks      map[int64]*authclient.StackDetail
	cards       map[int64][]authclient.SupportCard
	consent     map[int64]*authclient.ConsentRecord
	history     map[int64][]authclient.ConsentChange
	peer        []*authclient.PeerTransaction
	calls       map[string]int
	meDelay     time.Duration
	failures    map[string]int
	lastHeaders map[string]http.Header
}

// Option customizes a Service
type Option func(*Service)

// WithSecret sets the HS256 signing key
func WithSecret(secret string) Option {
	return func(s *Service) {
		s.secret = []byte(secret)
	}
}

// WithProfileDelay slows down GET /auth/me, handy for concurrency tests
func WithProfileDelay(d time.Duration) Option {
	return func(s *Service) {
		s.meDelay = d
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// New builds the service with no accounts
func New(opts ...Option) *Service {
	s := &Service{
		secret:      []byte("servicetest-secret"),
		now:         time.Now,
		accounts:    map[string]*account{},
		nextID:      100,
		invites:     map[string]*invite{},
		revoked:     map[string]bool{},
		stacks:      map[int64]*authclient.StackDetail{},
		cards:       map[int64][]authclient.SupportCard{},
		consent:     map[int64]*authclient.ConsentRecord{},
		history:     map[int64][]authclient.ConsentChange{},
		calls:       map[string]int{},
		failures:    map[string]int{},
		lastHeaders: map[string]http.Header{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message, "code": codeFor(fe.Code)})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error(), "code": "ERROR_FATAL"})
		},
	})
	s.app.Use(s.record)
	s.routes()
	return s
}

// App exposes the fiber app
func (s *Service) App() *fiber.App {
	return s.app
}

// HTTPClient returns a client whose requests are served in process
func (s *Service) HTTPClient() *http.Client {
	return &http.Client{Transport: s}
}

// RoundTrip implements http.RoundTripper by running the request through
// app.Test with the API base path stripped.
func (s *Service) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL.Path = strings.TrimPrefix(out.URL.Path, basePath)
	if out.URL.Path == "" {
		out.URL.Path = "/"
	}
	out.URL.RawPath = ""
	out.RequestURI = ""

	resp, err := s.app.Test(out, -1)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

// AddUser registers an account and returns it with its assigned id
func (s *Service) AddUser(user authclient.User, password string, permissions authclient.PermissionSet) authclient.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("servicetest: hash password: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		s.nextID++
		user.ID = s.nextID
	}
	if permissions == nil {
		permissions = authclient.PermissionSet{}
	}
	s.accounts[strings.ToLower(user.Email)] = &account{
		user:         user,
		passwordHash: hash,
		permissions:  permissions,
	}
	return user
}

// SetPermissions replaces the permissions returned by /auth/me
func (s *Service) SetPermissions(userID int64, permissions authclient.PermissionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc := s.accountByID(userID); acc != nil {
		acc.permissions = permissions
	}
}

// AddInvite registers an invitation under token
func (s *Service) AddInvite(token string, inv authclient.Invite, invitedBy authclient.Inviter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.Token = token
	if inv.Status == "" {
		inv.Status = authclient.InviteStatusPending
	}
	s.invites[token] = &invite{invite: inv, invitedBy: invitedBy}
}

// Invite returns a registered invitation
func (s *Service) Invite(token string) (authclient.Invite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[token]
	if !ok {
		return authclient.Invite{}, false
	}
	return inv.invite, true
}

// AddStack stores a stack owned by userID and returns its id
func (s *Service) AddStack(userID int64, stack authclient.StackDetail) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stack.ID == 0 {
		s.nextID++
		stack.ID = s.nextID
	}
	stack.UserID = userID
	for i := range stack.Cards {
		stack.Cards[i].StackID = stack.ID
		stack.Cards[i].DisplayOrder = i + 1
	}
	stack.CardCount = len(stack.Cards)
	s.stacks[stack.ID] = &stack
	return stack.ID
}

// StackCardIDs returns the card order the service holds for a stack
func (s *Service) StackCardIDs(stackID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	stack, ok := s.stacks[stackID]
	if !ok {
		return nil
	}
	return stack.CardIDs()
}

// AddSupportCard stores a card for a student
func (s *Service) AddSupportCard(card authclient.SupportCard) authclient.SupportCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card.ID == 0 {
		s.nextID++
		card.ID = s.nextID
	}
	s.cards[card.StudentID] = append(s.cards[card.StudentID], card)
	return card
}

// AddPeerTransaction stores a transaction between two users
func (s *Service) AddPeerTransaction(tx authclient.PeerTransaction) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == 0 {
		s.nextID++
		tx.ID = s.nextID
	}
	if tx.Status == "" {
		tx.Status = authclient.PeerStatusPending
	}
	s.peer = append(s.peer, &tx)
	return tx.ID
}

// Token mints a credential for userID that expires after ttl
func (s *Service) Token(userID int64, ttl time.Duration) string {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        fmt.Sprintf("%d-%d", userID, now.UnixNano()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("servicetest: sign token: %v", err))
	}
	return signed
}

// Revoke makes token answer 401 from now on
func (s *Service) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// FailNext makes the next n requests to "METHOD /path" answer status 500
func (s *Service) FailNext(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = n
}

// Calls reports how many requests reached "METHOD /path", e.g. "GET /auth/me"
func (s *Service) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls reports every request served
func (s *Service) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// LastHeaders returns the headers of the latest request to route
func (s *Service) LastHeaders(route string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeaders[route].Clone()
}

func (s *Service) record(c *fiber.Ctx) error {
	route := c.Method() + " " + c.Path()
	headers := http.Header{}
	c.Request().Header.VisitAll(func(k, v []byte) {
		headers.Add(string(k), string(v))
	})

	s.mu.Lock()
	s.calls[route]++
	s.lastHeaders[route] = headers
	fail := s.failures[route] > 0
	if fail {
		s.failures[route]--
	}
	s.mu.Unlock()

	if fail {
		return fiber.NewError(fiber.StatusInternalServerError, "Injected failure")
	}
	return c.Next()
}

// authenticate resolves the bearer credential to an account
func (s *Service) authenticate(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	s.mu.Lock()
	revoked := s.revoked[raw]
	acc := s.accountByID(userID)
	s.mu.Unlock()

	if revoked || acc == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	c.Locals("account", acc)
	c.Locals("token", raw)
	return c.Next()
}

func currentAccount(c *fiber.Ctx) *account {
	acc, _ := c.Locals("account").(*account)
	return acc
}

// accountByID must be called with s.mu held
func (s *Service) accountByID(id int64) *account {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc
		}
	}
	return nil
}

func codeFor(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return "ERROR_CODE_UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "ERROR_CODE_ACCESS_DENIED"
	case fiber.StatusNotFound:
		return "ERROR_CODE_NOT_FOUND"
	case fiber.StatusBadRequest:
		return "ERROR_CODE_BAD_REQUEST"
	default:
		return "ERROR_FATAL"
	}
}

func apiError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message, "code": code})
}
