package signup

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/dom"
)

// View is what the flow renders into
type View interface {
	Loading(on bool)
	PrefillEmail(email string)
	ShowInvite(v authclient.InviteValidation)
	ShowInvalidInvite(message string)
	// ShowError displays message and focuses field when it is not empty
	ShowError(message, field string)
	ClearError()
	ShowSuccess()
}

type noopView struct{}

func (noopView) Loading(bool)                           {}
func (noopView) PrefillEmail(string)                    {}
func (noopView) ShowInvite(authclient.InviteValidation) {}
func (noopView) ShowInvalidInvite(string)               {}
func (noopView) ShowError(string, string)               {}
func (noopView) ClearError()                            {}
func (noopView) ShowSuccess()                           {}

func normalizeView(v View) View {
	if v == nil {
		return noopView{}
	}
	return v
}

// Page element ids
const (
	IDForm            = "signup-form"
	IDSubmit          = "signup-submit"
	IDFormError       = "form-error"
	IDErrorMessage    = "error-message"
	IDInviteInfo      = "invite-info"
	IDInvitedByName   = "invited-by-name"
	IDInviteRole      = "invite-role"
	IDLoading         = "signup-loading"
	IDSuccess         = "signup-success"
	IDInvalidInvite   = "invalid-invite"
	IDInvalidMessage  = "invalid-invite-message"
	AttrTermsRequired = "data-terms-required"
	ClassStrength     = "password-strength"
)

// Page renders the flow into a signup document. Form inputs use the
// Field* names as ids.
type Page struct {
	doc *dom.Document
}

// NewPage wraps a parsed signup page
func NewPage(doc *dom.Document) *Page {
	return &Page{doc: doc}
}

func (p *Page) Document() *dom.Document {
	return p.doc
}

// Form reads the current input values
func (p *Page) Form() Form {
	form := Form{
		FirstName:       p.value(FieldFirstName),
		LastName:        p.value(FieldLastName),
		Email:           p.value(FieldEmail),
		Password:        p.value(FieldPassword),
		PasswordConfirm: p.value(FieldPasswordConfirm),
		Phone:           p.value(FieldPhone),
	}
	if terms := p.doc.ByAttr(AttrTermsRequired); len(terms) > 0 {
		form.TermsRequired = true
		form.TermsAccepted = terms[0].HasFlag("checked")
	}
	return form
}

// Fill writes form values into the inputs, the way a visitor would type them
func (p *Page) Fill(form Form) {
	p.setValue(FieldFirstName, form.FirstName)
	p.setValue(FieldLastName, form.LastName)
	p.setValue(FieldEmail, form.Email)
	p.setValue(FieldPassword, form.Password)
	p.setValue(FieldPasswordConfirm, form.PasswordConfirm)
	p.setValue(FieldPhone, form.Phone)
	for _, el := range p.doc.ByAttr(AttrTermsRequired) {
		el.SetFlag("checked", form.TermsAccepted)
	}
}

func (p *Page) Loading(on bool) {
	if btn := p.doc.ByID(IDSubmit); btn != nil {
		btn.SetFlag("disabled", on)
		if on {
			btn.SetText("Creating Account...")
		} else {
			btn.SetText("Create Account")
		}
	}
	p.toggle(IDLoading, on)
	p.toggle(IDForm, !on)
}

func (p *Page) PrefillEmail(email string) {
	p.setValue(FieldEmail, email)
}

// ShowInvite displays who sent the invitation and locks the email field
// to the invited address.
func (p *Page) ShowInvite(v authclient.InviteValidation) {
	p.toggle(IDInviteInfo, true)

	if el := p.doc.ByID(IDInvitedByName); el != nil && v.InvitedBy != nil {
		el.SetText(v.InvitedBy.FullName())
	}
	if v.Invite == nil {
		return
	}
	if el := p.doc.ByID(IDInviteRole); el != nil {
		el.SetText(RoleText(v.Invite))
	}
	if el := p.doc.ByID(FieldEmail); el != nil && v.Invite.Email != "" {
		el.SetValue(v.Invite.Email)
		el.SetFlag("readonly", true)
		el.AddClass("readonly")
	}
}

// RoleText is the "joining as" line of the invite banner
func RoleText(invite *authclient.Invite) string {
	text := fmt.Sprintf("You're joining as a %s", invite.Role.Label())
	if invite.SubRole != "" {
		text += fmt.Sprintf(" (%s)", invite.SubRole.Label())
	}
	return text
}

func (p *Page) ShowInvalidInvite(message string) {
	p.toggle(IDForm, false)
	p.toggle(IDLoading, false)
	p.toggle(IDInviteInfo, false)
	if el := p.doc.ByID(IDInvalidMessage); el != nil {
		el.SetText(message)
	}
	p.toggle(IDInvalidInvite, true)
}

func (p *Page) ShowError(message, field string) {
	if el := p.doc.ByID(IDErrorMessage); el != nil {
		el.SetText(message)
	}
	p.toggle(IDFormError, true)
	if form := p.doc.ByID(IDForm); form != nil {
		form.AddClass("shake")
	}
	p.focus(field)
}

func (p *Page) ClearError() {
	p.toggle(IDFormError, false)
	if form := p.doc.ByID(IDForm); form != nil {
		form.RemoveClass("shake")
	}
}

func (p *Page) ShowSuccess() {
	p.toggle(IDForm, false)
	p.toggle(IDLoading, false)
	p.toggle(IDSuccess, true)
}

// Focused returns the id of the input holding focus, if any
func (p *Page) Focused() string {
	focused := p.doc.ByAttr("autofocus")
	if len(focused) == 0 {
		return ""
	}
	id, _ := focused[0].Attr("id")
	return id
}

// CheckFields runs the inline checks shown while typing: a malformed email
// and a confirmation that differs from the password get the error class.
// It also refreshes the strength meter.
func (p *Page) CheckFields() {
	if el := p.doc.ByID(FieldEmail); el != nil {
		email := el.Value()
		el.ToggleClass("error", email != "" && validation.Validate(email, is.EmailFormat) != nil)
	}
	if el := p.doc.ByID(FieldPasswordConfirm); el != nil {
		confirm := el.Value()
		el.ToggleClass("error", confirm != "" && confirm != p.value(FieldPassword))
	}
	p.updateStrength()
}

func (p *Page) updateStrength() {
	meters := p.doc.ByClass(ClassStrength)
	if len(meters) == 0 {
		return
	}
	strength := PasswordStrength(p.value(FieldPassword))
	for _, el := range meters {
		el.SetAttr("class", strength.Class())
		el.SetText(string(strength))
	}
}

// TogglePasswordVisibility flips an input between password and text and
// returns the new toggle label.
func (p *Page) TogglePasswordVisibility(id string) string {
	el := p.doc.ByID(id)
	if el == nil {
		return ""
	}
	if t, _ := el.Attr("type"); t == "password" {
		el.SetAttr("type", "text")
		return "Hide"
	}
	el.SetAttr("type", "password")
	return "Show"
}

func (p *Page) focus(field string) {
	for _, el := range p.doc.ByAttr("autofocus") {
		el.RemoveAttr("autofocus")
	}
	if field == "" {
		return
	}
	if el := p.doc.ByID(field); el != nil {
		el.SetFlag("autofocus", true)
	}
}

func (p *Page) toggle(id string, visible bool) {
	el := p.doc.ByID(id)
	if el == nil {
		return
	}
	if visible {
		el.SetStyle("display", "")
		el.AddClass("visible")
		el.RemoveClass("hidden")
		return
	}
	el.SetStyle("display", "none")
	el.RemoveClass("visible")
	el.AddClass("hidden")
}

func (p *Page) value(id string) string {
	if el := p.doc.ByID(id); el != nil {
		return el.Value()
	}
	return ""
}

func (p *Page) setValue(id, value string) {
	if el := p.doc.ByID(id); el != nil {
		el.SetValue(value)
	}
}
