package servicetest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	authclient "github.com/goliatone/go-auth-client"
)

// ownedStack loads :id and rejects stacks of other users
func (s *Service) ownedStack(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "ERROR_CODE_BAD_REQUEST", "Invalid stack id")
	}

	s.mu.Lock()
	stack, ok := s.stacks[int64(id)]
	s.mu.Unlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Stack not found")
	}
	if stack.UserID != currentAccount(c).user.ID {
		return fiber.NewError(fiber.StatusForbidden, "Not your stack")
	}
	c.Locals("stack", stack)
	return c.Next()
}

func currentStack(c *fiber.Ctx) *authclient.StackDetail {
	stack, _ := c.Locals("stack").(*authclient.StackDetail)
	return stack
}

func (s *Service) listStacks(c *fiber.Ctx) error {
	userID := currentAccount(c).user.ID

	s.mu.Lock()
	out := []authclient.Stack{}
	for _, stack := range s.stacks {
		if stack.UserID == userID {
			out = append(out, stack.Stack)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b authclient.Stack) int { return int(a.ID - b.ID) })
	return c.JSON(out)
}

func (s *Service) createStack(c *fiber.Ctx) error {
	var body struct {
		Name          string                `json:"stack_name"`
		Description   string                `json:"description"`
		CoverImageURL *string               `json:"cover_image_url"`
		ThemeColor    string                `json:"theme_color"`
		Visibility    authclient.Visibility `json:"visibility"`
		IsDefault     bool                  `json:"is_default"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "stack_name is required")
	}

	stack := authclient.StackDetail{Stack: authclient.Stack{
		Name:        body.Name,
		Slug:        slug(body.Name),
		Description: body.Description,
		ThemeColor:  body.ThemeColor,
		Visibility:  body.Visibility,
		IsDefault:   body.IsDefault,
		CreatedAt:   s.now().UnixMilli(),
	}}
	if body.CoverImageURL != nil {
		stack.CoverImageURL = *body.CoverImageURL
	}
	id := s.AddStack(currentAccount(c).user.ID, stack)

	s.mu.Lock()
	created := s.stacks[id].Stack
	s.mu.Unlock()
	return c.JSON(fiber.Map{"stack": created})
}

func (s *Service) getStack(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(fiber.Map{
		"stack":             currentStack(c).Stack,
		"cards":             nonNil(currentStack(c).Cards),
		"share_permissions": nonNil(currentStack(c).SharePermissions),
		"share_links":       nonNil(currentStack(c).ShareLinks),
	})
}

func (s *Service) updateStack(c *fiber.Ctx) error {
	var update authclient.StackUpdate
	if err := c.BodyParser(&update); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stack := currentStack(c)
	if update.Name != nil {
		stack.Name = *update.Name
		stack.Slug = slug(*update.Name)
	}
	if update.Description != nil {
		stack.Description = *update.Description
	}
	if update.CoverImageURL != nil {
		stack.CoverImageURL = *update.CoverImageURL
	}
	if update.ThemeColor != nil {
		stack.ThemeColor = *update.ThemeColor
	}
	if update.Visibility != nil {
		stack.Visibility = *update.Visibility
	}
	if update.IsDefault != nil {
		stack.IsDefault = *update.IsDefault
	}
	if update.DisplayOrder != nil {
		stack.DisplayOrder = *update.DisplayOrder
	}
	return c.JSON(fiber.Map{"stack": stack.Stack})
}

func (s *Service) deleteStack(c *fiber.Ctx) error {
	s.mu.Lock()
	delete(s.stacks, currentStack(c).ID)
	s.mu.Unlock()
	return c.JSON(fiber.Map{"success": true})
}

func (s *Service) addStackCard(c *fiber.Ctx) error {
	var body struct {
		SupportCardID int64 `json:"support_card_id"`
		DisplayOrder  *int  `json:"display_order"`
	}
	if err := c.BodyParser(&body); err != nil || body.SupportCardID < 1 {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "support_card_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stack := currentStack(c)
	if slices.Contains(stack.CardIDs(), body.SupportCardID) {
		return apiError(c, fiber.StatusBadRequest, "DUPLICATE_CARD", "Card already in stack")
	}

	s.nextID++
	entry := authclient.StackCard{
		ID:            s.nextID,
		StackID:       stack.ID,
		SupportCardID: body.SupportCardID,
		DisplayOrder:  len(stack.Cards) + 1,
	}
	if body.DisplayOrder != nil {
		entry.DisplayOrder = *body.DisplayOrder
	}
	stack.Cards = append(stack.Cards, entry)
	stack.CardCount = len(stack.Cards)

	var card *authclient.SupportCard
	for _, list := range s.cards {
		for i := range list {
			if list[i].ID == body.SupportCardID {
				found := list[i]
				card = &found
			}
		}
	}
	return c.JSON(authclient.StackCardAdded{StackCard: &entry, Card: card})
}

func (s *Service) removeStackCard(c *fiber.Ctx) error {
	cardID, err := c.ParamsInt("cardId")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "ERROR_CODE_BAD_REQUEST", "Invalid card id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stack := currentStack(c)
	stack.Cards = slices.DeleteFunc(stack.Cards, func(sc authclient.StackCard) bool {
		return sc.SupportCardID == int64(cardID)
	})
	renumber(stack)
	return c.JSON(fiber.Map{"success": true})
}

func (s *Service) reorderStack(c *fiber.Ctx) error {
	var body struct {
		CardIDs []int64 `json:"card_ids"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "card_ids is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stack := currentStack(c)

	current := stack.CardIDs()
	sorted := slices.Clone(body.CardIDs)
	slices.Sort(sorted)
	slices.Sort(current)
	if !slices.Equal(sorted, current) {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "card_ids must list every card of the stack")
	}

	byCard := make(map[int64]authclient.StackCard, len(stack.Cards))
	for _, sc := range stack.Cards {
		byCard[sc.SupportCardID] = sc
	}
	reordered := make([]authclient.StackCard, 0, len(body.CardIDs))
	for _, id := range body.CardIDs {
		reordered = append(reordered, byCard[id])
	}
	stack.Cards = reordered
	renumber(stack)
	return c.JSON(fiber.Map{"success": true})
}

func (s *Service) createShareLink(c *fiber.Ctx) error {
	var body struct {
		LinkType  authclient.LinkType `json:"link_type"`
		Password  *string             `json:"password"`
		ExpiresAt *int64              `json:"expires_at"`
		MaxViews  *int                `json:"max_views"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stack := currentStack(c)
	s.nextID++
	link := authclient.ShareLink{
		ID:          s.nextID,
		StackID:     stack.ID,
		Token:       fmt.Sprintf("share-%d", s.nextID),
		LinkType:    body.LinkType,
		HasPassword: body.Password != nil && *body.Password != "",
		ExpiresAt:   body.ExpiresAt,
		MaxViews:    body.MaxViews,
		CreatedAt:   s.now().UnixMilli(),
	}
	stack.ShareLinks = append(stack.ShareLinks, link)
	owner := s.accountByID(stack.UserID)
	return c.JSON(authclient.GeneratedShareLink{
		ShareLink: &link,
		URL:       fmt.Sprintf("https://site.test/s/%s/%s?t=%s", slug(owner.user.FirstName+" "+owner.user.LastName), stack.Slug, link.Token),
	})
}

func (s *Service) shareStack(c *fiber.Ctx) error {
	var body struct {
		Email           string                     `json:"email"`
		PermissionLevel authclient.PermissionLevel `json:"permission_level"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stack := currentStack(c)
	s.nextID++
	perm := authclient.SharePermission{
		ID:              s.nextID,
		StackID:         stack.ID,
		Email:           body.Email,
		PermissionLevel: body.PermissionLevel,
		CreatedAt:       s.now().UnixMilli(),
	}
	if acc := s.accounts[strings.ToLower(body.Email)]; acc != nil {
		id := acc.user.ID
		perm.UserID = &id
	}
	stack.SharePermissions = append(stack.SharePermissions, perm)
	return c.JSON(fiber.Map{"permission": perm})
}

func (s *Service) revokeShare(c *fiber.Ctx) error {
	shareID, err := c.ParamsInt("shareId")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "ERROR_CODE_BAD_REQUEST", "Invalid share id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stack := currentStack(c)
	before := len(stack.SharePermissions) + len(stack.ShareLinks)
	switch authclient.ShareKind(c.Query("type", string(authclient.ShareKindPermission))) {
	case authclient.ShareKindLink:
		stack.ShareLinks = slices.DeleteFunc(stack.ShareLinks, func(l authclient.ShareLink) bool {
			return l.ID == int64(shareID)
		})
	default:
		stack.SharePermissions = slices.DeleteFunc(stack.SharePermissions, func(p authclient.SharePermission) bool {
			return p.ID == int64(shareID)
		})
	}
	if before == len(stack.SharePermissions)+len(stack.ShareLinks) {
		return fiber.NewError(fiber.StatusNotFound, "Share not found")
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Service) embed(c *fiber.Ctx) error {
	theme := c.Query("theme", "light")
	width := c.QueryInt("width", 400)
	height := c.QueryInt("height", 600)

	s.mu.Lock()
	stackSlug := currentStack(c).Slug
	s.mu.Unlock()

	src := fmt.Sprintf("https://site.test/embed/%s?theme=%s", stackSlug, theme)
	return c.JSON(authclient.Embed{
		Code:   fmt.Sprintf(`<iframe src="%s" width="%d" height="%d" frameborder="0"></iframe>`, src, width, height),
		URL:    src,
		Width:  width,
		Height: height,
	})
}

func (s *Service) getConsent(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(s.consentFor(currentAccount(c).user.ID))
}

func (s *Service) updateConsent(c *fiber.Ctx) error {
	var body struct {
		ConsentType authclient.ConsentType `json:"consent_type"`
		Granted     bool                   `json:"granted"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentAccount(c).user.ID
	record := s.consentFor(userID)
	switch body.ConsentType {
	case authclient.ConsentPeerOffers:
		record.PeerOffers = body.Granted
	case authclient.ConsentSponsorOffers:
		record.SponsorOffers = body.Granted
	case authclient.ConsentMarketing:
		record.Marketing = body.Granted
	default:
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Unknown consent type")
	}
	record.UpdatedAt = s.now().UnixMilli()

	s.nextID++
	s.history[userID] = append(s.history[userID], authclient.ConsentChange{
		ID:          s.nextID,
		ConsentType: body.ConsentType,
		Granted:     body.Granted,
		CreatedAt:   record.UpdatedAt,
	})
	return c.JSON(fiber.Map{"consent": record})
}

func (s *Service) consentHistory(c *fiber.Ctx) error {
	s.mu.Lock()
	changes := slices.Clone(s.history[currentAccount(c).user.ID])
	s.mu.Unlock()
	slices.Reverse(changes)
	return c.JSON(page(c, changes))
}

// consentFor must be called with s.mu held
func (s *Service) consentFor(userID int64) *authclient.ConsentRecord {
	record, ok := s.consent[userID]
	if !ok {
		record = &authclient.ConsentRecord{UserID: userID}
		s.consent[userID] = record
	}
	return record
}

func (s *Service) peerSend(c *fiber.Ctx) error {
	var body struct {
		RecipientID      int64               `json:"recipient_id"`
		Type             authclient.PeerType `json:"type"`
		Message          *string             `json:"message"`
		OfferID          *int64              `json:"offer_id"`
		ValueType        *string             `json:"value_type"`
		ValueAmount      *float64            `json:"value_amount"`
		ValueDescription *string             `json:"value_description"`
		ExpiresInDays    int                 `json:"expires_in_days"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}

	sender := currentAccount(c).user
	s.mu.Lock()
	recipient := s.accountByID(body.RecipientID)
	var consented bool
	if recipient != nil {
		consented = s.consentFor(recipient.user.ID).PeerOffers
	}
	s.mu.Unlock()

	if recipient == nil {
		return fiber.NewError(fiber.StatusNotFound, "Recipient not found")
	}
	if !consented {
		return apiError(c, fiber.StatusForbidden, "CONSENT_REQUIRED", "Recipient does not accept peer offers")
	}

	now := s.now()
	tx := authclient.PeerTransaction{
		SenderID:    sender.ID,
		RecipientID: body.RecipientID,
		Type:        body.Type,
		OfferID:     body.OfferID,
		ValueAmount: body.ValueAmount,
		ExpiresAt:   now.AddDate(0, 0, body.ExpiresInDays).UnixMilli(),
		CreatedAt:   now.UnixMilli(),
	}
	if body.Message != nil {
		tx.Message = *body.Message
	}
	if body.ValueType != nil {
		tx.ValueType = *body.ValueType
	}
	if body.ValueDescription != nil {
		tx.ValueDescription = *body.ValueDescription
	}
	tx.ID = s.AddPeerTransaction(tx)
	tx.Status = authclient.PeerStatusPending
	return c.JSON(fiber.Map{"transaction": tx})
}

func (s *Service) peerInbox(c *fiber.Ctx) error {
	userID := currentAccount(c).user.ID
	status := authclient.PeerStatus(c.Query("status", string(authclient.PeerStatusPending)))

	s.mu.Lock()
	var out []authclient.PeerTransaction
	for _, tx := range s.peer {
		if tx.RecipientID == userID && (status == authclient.PeerStatusAll || tx.Status == status) {
			out = append(out, *tx)
		}
	}
	s.mu.Unlock()
	return c.JSON(page(c, out))
}

func (s *Service) peerRespond(c *fiber.Ctx) error {
	var body struct {
		TransactionID int64                 `json:"transaction_id"`
		Action        authclient.PeerAction `json:"action"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}

	userID := currentAccount(c).user.ID
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.peer, func(tx *authclient.PeerTransaction) bool {
		return tx.ID == body.TransactionID && tx.RecipientID == userID
	})
	if idx < 0 {
		return fiber.NewError(fiber.StatusNotFound, "Transaction not found")
	}
	tx := s.peer[idx]
	if tx.Status != authclient.PeerStatusPending {
		return apiError(c, fiber.StatusBadRequest, "ALREADY_RESPONDED", "Transaction is no longer pending")
	}

	switch body.Action {
	case authclient.PeerAccept:
		tx.Status = authclient.PeerStatusAccepted
	case authclient.PeerDecline:
		tx.Status = authclient.PeerStatusDeclined
	case authclient.PeerBlock:
		tx.Status = authclient.PeerStatusBlocked
	default:
		return apiError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Unknown action")
	}
	out := *tx
	return c.JSON(authclient.PeerResponse{Transaction: &out, Message: "Transaction " + string(out.Status)})
}

func (s *Service) peerHistory(c *fiber.Ctx) error {
	userID := currentAccount(c).user.ID
	direction := authclient.PeerDirection(c.Query("direction", string(authclient.PeerDirectionAll)))
	status := authclient.PeerStatus(c.Query("status", string(authclient.PeerStatusAll)))

	s.mu.Lock()
	var out []authclient.PeerTransaction
	for _, tx := range s.peer {
		sent, received := tx.SenderID == userID, tx.RecipientID == userID
		switch direction {
		case authclient.PeerDirectionSent:
			received = false
		case authclient.PeerDirectionReceived:
			sent = false
		}
		if !sent && !received {
			continue
		}
		if status != authclient.PeerStatusAll && tx.Status != status {
			continue
		}
		out = append(out, *tx)
	}
	s.mu.Unlock()
	return c.JSON(page(c, out))
}

func (s *Service) publicStack(c *fiber.Ctx) error {
	studentSlug := c.Params("student")
	stackSlug := c.Params("stack")
	token := c.Query("t")

	s.mu.Lock()
	defer s.mu.Unlock()

	var owner *account
	for _, acc := range s.accounts {
		if slug(acc.user.FirstName+" "+acc.user.LastName) == studentSlug {
			owner = acc
		}
	}
	if owner == nil {
		return fiber.NewError(fiber.StatusNotFound, "Student not found")
	}
	profile := &authclient.PublicProfile{
		ID:              owner.user.ID,
		Slug:            studentSlug,
		FirstName:       owner.user.FirstName,
		LastName:        owner.user.LastName,
		ProfileImageURL: owner.user.ProfileImageURL,
	}

	var stacks []authclient.Stack
	for _, stack := range s.stacks {
		if stack.UserID != owner.user.ID {
			continue
		}
		if stackSlug == "" {
			if stack.Visibility == authclient.VisibilityPublic {
				stacks = append(stacks, stack.Stack)
			}
			continue
		}
		if stack.Slug != stackSlug {
			continue
		}
		if stack.Visibility != authclient.VisibilityPublic && !hasLink(stack, token) {
			return apiError(c, fiber.StatusForbidden, "ERROR_CODE_ACCESS_DENIED", "This stack is not shared with you")
		}
		detail := *stack
		detail.SharePermissions = nil
		detail.ShareLinks = nil
		return c.JSON(authclient.PublicStack{Student: profile, Stack: &detail})
	}
	if stackSlug != "" {
		return fiber.NewError(fiber.StatusNotFound, "Stack not found")
	}
	slices.SortFunc(stacks, func(a, b authclient.Stack) int { return int(a.ID - b.ID) })
	return c.JSON(authclient.PublicStack{Student: profile, Stacks: stacks})
}

func hasLink(stack *authclient.StackDetail, token string) bool {
	if token == "" {
		return false
	}
	return slices.ContainsFunc(stack.ShareLinks, func(l authclient.ShareLink) bool { return l.Token == token })
}

func renumber(stack *authclient.StackDetail) {
	for i := range stack.Cards {
		stack.Cards[i].DisplayOrder = i + 1
	}
	stack.CardCount = len(stack.Cards)
}

func slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
