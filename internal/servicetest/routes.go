package servicetest

import (
	"fmt"
	"html"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	authclient "github.com/goliatone/go-auth-client"
)

const tokenTTL = 24 * time.Hour

func (s *Service) routes() {
	app := s.app
	auth := s.authenticate

	app.Post("/auth/login", s.login)
	app.Post("/auth/signup", s.signup)
	app.Post("/auth/signup-simple", s.signupSimple)
	app.Get("/auth/me", auth, s.me)
	app.Post("/auth/logout", auth, s.logout)
	app.Post("/auth/forgot-password", s.forgotPassword)

	app.Post("/invites/validate", s.validateInvite)
	app.Post("/invites/create", auth, s.createInvite)

	app.Get("/students/:id/support-cards", s.optionalAuth, s.supportCards)
	app.Post("/support-cards", auth, s.createSupportCard)

	app.Get("/stacks", auth, s.listStacks)
	app.Post("/stacks", auth, s.createStack)
	app.Get("/stacks/:id", auth, s.ownedStack, s.getStack)
	app.Put("/stacks/:id", auth, s.ownedStack, s.updateStack)
	app.Delete("/stacks/:id", auth, s.ownedStack, s.deleteStack)
	app.Post("/stacks/:id/cards", auth, s.ownedStack, s.addStackCard)
	app.Delete("/stacks/:id/cards/:cardId", auth, s.ownedStack, s.removeStackCard)
	app.Put("/stacks/:id/reorder", auth, s.ownedStack, s.reorderStack)
	app.Post("/stacks/:id/share-link", auth, s.ownedStack, s.createShareLink)
	app.Post("/stacks/:id/share", auth, s.ownedStack, s.shareStack)
	app.Delete("/stacks/:id/share/:shareId", auth, s.ownedStack, s.revokeShare)
	app.Get("/stacks/:id/embed", auth, s.ownedStack, s.embed)

	app.Get("/consent", auth, s.getConsent)
	app.Put("/consent", auth, s.updateConsent)
	app.Get("/consent/history", auth, s.consentHistory)

	app.Post("/peer/send", auth, s.peerSend)
	app.Get("/peer/inbox", auth, s.peerInbox)
	app.Post("/peer/respond", auth, s.peerRespond)
	app.Get("/peer/history", auth, s.peerHistory)

	app.Get("/public/stacks/:student", s.publicStack)
	app.Get("/public/stacks/:student/:stack", s.publicStack)
}

type authPayload struct {
	AuthToken string           `json:"authToken"`
	User      *authclient.User `json:"user"`
}

func (s *Service) login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apiError(c, fiber.StatusBadRequest, "ERROR_CODE_BAD_REQUEST", "Invalid request body")
	}

	s.mu.Lock()
	acc := s.accounts[strings.ToLower(body.Email)]
	s.mu.Unlock()

	if acc == nil || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(body.Password)) != nil {
		return apiError(c, fiber.StatusUnauthorized, "ERROR_CODE_UNAUTHORIZED", "Invalid Credentials.")
	}

	user := acc.user
	return c.JSON(authPayload{AuthToken: s.Token(user.ID, tokenTTL), User: &user})
}

type signupBody struct {
	InviteToken string `json:"invite_token"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
}

func (s *Service) signup(c *fiber.Ctx) error {
	var body signupBody
	if err := c.BodyParser(&body); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}

	s.mu.Lock()
	inv, ok := s.invites[body.InviteToken]
	var code, message string
	switch {
	case !ok:
		code, message = "INVALID_TOKEN", "Invalid invite token"
	case inv.invite.Status == authclient.InviteStatusUsed:
		code, message = "TOKEN_USED", "Invite already used"
	case inv.invite.Status == authclient.InviteStatusExpired || s.expired(inv.invite):
		code, message = "TOKEN_EXPIRED", "Invite expired"
	case inv.invite.Email != "" && !strings.EqualFold(inv.invite.Email, body.Email):
		code, message = "EMAIL_MISMATCH", "Email does not match invite"
	case s.accounts[strings.ToLower(body.Email)] != nil:
		code, message = "USER_EXISTS", "User already exists"
	}
	if code != "" {
		s.mu.Unlock()
		return apiError(c, fiber.StatusBadRequest, code, message)
	}
	inv.invite.Status = authclient.InviteStatusUsed
	role, subRole := inv.invite.Role, inv.invite.SubRole
	s.mu.Unlock()

	user := s.AddUser(authclient.User{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
		Role:      role,
		SubRole:   subRole,
	}, body.Password, nil)
	return c.JSON(authPayload{AuthToken: s.Token(user.ID, tokenTTL), User: &user})
}

func (s *Service) signupSimple(c *fiber.Ctx) error {
	var body signupBody
	if err := c.BodyParser(&body); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Email and password are required")
	}

	s.mu.Lock()
	exists := s.accounts[strings.ToLower(body.Email)] != nil
	s.mu.Unlock()
	if exists {
		return apiError(c, fiber.StatusBadRequest, "USER_EXISTS", "User already exists")
	}

	user := s.AddUser(authclient.User{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
		Role:      authclient.RoleStudent,
	}, body.Password, nil)
	return c.JSON(authPayload{AuthToken: s.Token(user.ID, tokenTTL), User: &user})
}

func (s *Service) me(c *fiber.Ctx) error {
	if s.meDelay > 0 {
		time.Sleep(s.meDelay)
	}
	acc := currentAccount(c)
	s.mu.Lock()
	user, permissions := acc.user, acc.permissions
	s.mu.Unlock()
	return c.JSON(fiber.Map{"user": user, "permissions": permissions})
}

func (s *Service) logout(c *fiber.Ctx) error {
	token, _ := c.Locals("token").(string)
	s.Revoke(token)
	return c.JSON(fiber.Map{"success": true})
}

func (s *Service) forgotPassword(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "If an account exists, a reset link has been sent."})
}

func (s *Service) validateInvite(c *fiber.Ctx) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&body); err != nil || body.Token == "" {
		return apiError(c, fiber.StatusBadRequest, "INVALID_TOKEN", "Token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invites[body.Token]
	switch {
	case !ok:
		return c.JSON(fiber.Map{"valid": false, "code": "INVALID_TOKEN", "message": "This invite link is invalid or expired."})
	case inv.invite.Status == authclient.InviteStatusUsed:
		return c.JSON(fiber.Map{"valid": false, "code": "TOKEN_USED", "message": "This invite has already been used."})
	case inv.invite.Status == authclient.InviteStatusExpired || s.expired(inv.invite):
		return c.JSON(fiber.Map{"valid": false, "code": "TOKEN_EXPIRED", "message": "This invite has expired."})
	}
	return c.JSON(authclient.InviteValidation{
		Valid:     true,
		Invite:    &inv.invite,
		InvitedBy: &inv.invitedBy,
	})
}

func (s *Service) createInvite(c *fiber.Ctx) error {
	var req authclient.InviteRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}
	acc := currentAccount(c)
	if acc.user.Role != authclient.RoleAdmin && acc.user.Role != authclient.RoleStudent && acc.user.Role != authclient.RoleInstructor {
		return apiError(c, fiber.StatusForbidden, "ERROR_CODE_ACCESS_DENIED", "You cannot send invites")
	}

	s.mu.Lock()
	s.nextID++
	token := fmt.Sprintf("inv-%d", s.nextID)
	expires := s.now().Add(7 * 24 * time.Hour)
	inv := authclient.Invite{
		ID:              s.nextID,
		Token:           token,
		Email:           req.Email,
		Role:            req.Role,
		SubRole:         req.SubRole,
		TargetStudentID: req.TargetStudentID,
		Status:          authclient.InviteStatusPending,
		ExpiresAt:       &expires,
	}
	s.invites[token] = &invite{invite: inv, invitedBy: authclient.Inviter{
		ID:        acc.user.ID,
		FirstName: acc.user.FirstName,
		LastName:  acc.user.LastName,
		Email:     acc.user.Email,
	}}
	s.mu.Unlock()

	return c.JSON(fiber.Map{"invite": inv})
}

func (s *Service) optionalAuth(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return c.Next()
	}
	return s.authenticate(c)
}

func (s *Service) supportCards(c *fiber.Ctx) error {
	studentID, err := c.ParamsInt("id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "ERROR_CODE_BAD_REQUEST", "Invalid student id")
	}

	s.mu.Lock()
	cards := slices.Clone(s.cards[int64(studentID)])
	s.mu.Unlock()

	if c.Query("format") == "html" {
		var b strings.Builder
		b.WriteString(`<div class="support-cards">`)
		for _, card := range cards {
			fmt.Fprintf(&b, `<article class="support-card" data-card-id="%d"><h3>%s</h3><p>%s</p></article>`,
				card.ID, html.EscapeString(card.Title), html.EscapeString(card.Message))
		}
		b.WriteString(`</div>`)
		c.Type("html")
		return c.SendString(b.String())
	}
	if cards == nil {
		cards = []authclient.SupportCard{}
	}
	return c.JSON(cards)
}

func (s *Service) createSupportCard(c *fiber.Ctx) error {
	var in authclient.SupportCardInput
	if err := c.BodyParser(&in); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}
	card := s.AddSupportCard(authclient.SupportCard{
		StudentID: in.StudentID,
		AuthorID:  currentAccount(c).user.ID,
		Title:     in.Title,
		Message:   in.Message,
		CardType:  in.CardType,
		ImageURL:  in.ImageURL,
		CreatedAt: s.now().UnixMilli(),
	})
	return c.JSON(fiber.Map{"card": card})
}

func (s *Service) expired(inv authclient.Invite) bool {
	return inv.ExpiresAt != nil && s.now().After(*inv.ExpiresAt)
}

func page[T any](c *fiber.Ctx, items []T) fiber.Map {
	current := c.QueryInt("page", 1)
	perPage := c.QueryInt("per_page", 20)
	if current < 1 {
		current = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	total := len(items)
	start := min((current-1)*perPage, total)
	end := min(start+perPage, total)
	pageTotal := (total + perPage - 1) / perPage

	out := fiber.Map{
		"items":         items[start:end],
		"itemsReceived": end - start,
		"itemsTotal":    total,
		"curPage":       current,
		"nextPage":      nil,
		"prevPage":      nil,
		"pageTotal":     pageTotal,
	}
	if current < pageTotal {
		out["nextPage"] = current + 1
	}
	if current > 1 {
		out["prevPage"] = current - 1
	}
	return out
}
