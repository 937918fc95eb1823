// Package uisync maps a session snapshot onto a page. Apply is a full
// pass over every flagged element on each call, with no diffing, so it
// is idempotent and never leaves a page half updated.
package uisync

import (
	"encoding/json"
	"strconv"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/dom"
)

// Page contract
const (
	ClassVisible   = "auth---visible"
	ClassInvisible = "auth---invisible"
	ClassRequired  = "auth---required"
	ClassHidden    = "hidden"

	AttrRoleVisible    = "data-role-visible"
	AttrSubRoleVisible = "data-sub-role-visible"
	AttrUserName       = "data-user-name"
	AttrUserFirstName  = "data-user-first-name"
	AttrUserEmail      = "data-user-email"
	AttrUserRole       = "data-user-role"
	AttrUserAvatar     = "data-user-avatar"
	AttrHTMXAuthLoad   = "data-htmx-auth-load"
	AttrStudentID      = "data-student-id"
)

// Outcome summarizes one pass
type Outcome struct {
	Shown            int
	Hidden           int
	Bound            int
	HTMXTargets      int
	RedirectRequired bool
}

// Synchronizer applies snapshots to documents. It holds no session state.
type Synchronizer struct {
	apiBaseURL string
}

// New returns a synchronizer. apiBaseURL feeds the hx-get URLs of
// auth dependent fragments.
func New(apiBaseURL string) *Synchronizer {
	return &Synchronizer{apiBaseURL: strings.TrimRight(apiBaseURL, "/")}
}

// Apply runs the full pass. The caller owns navigation, Outcome only
// reports that an auth required page has no user.
func (s *Synchronizer) Apply(doc *dom.Document, snap authclient.Snapshot) Outcome {
	var out Outcome
	user := snap.User
	loggedIn := user != nil

	show := func(el *dom.Element, visible bool) {
		setVisible(el, visible)
		if visible {
			out.Shown++
		} else {
			out.Hidden++
		}
	}

	for _, el := range doc.ByClass(ClassVisible) {
		show(el, loggedIn)
	}
	for _, el := range doc.ByClass(ClassInvisible) {
		show(el, !loggedIn)
	}

	for _, el := range doc.ByAttr(AttrRoleVisible) {
		roles, _ := el.Attr(AttrRoleVisible)
		show(el, loggedIn && contains(roles, string(user.Role)))
	}
	for _, el := range doc.ByAttr(AttrSubRoleVisible) {
		subRoles, _ := el.Attr(AttrSubRoleVisible)
		show(el, loggedIn && user.SubRole != "" && contains(subRoles, string(user.SubRole)))
	}

	if loggedIn {
		out.Bound += bindText(doc, AttrUserName, user.FullName())
		out.Bound += bindText(doc, AttrUserFirstName, user.FirstName)
		out.Bound += bindText(doc, AttrUserEmail, user.Email)
		out.Bound += bindText(doc, AttrUserRole, user.RoleLabel())
		if user.ProfileImageURL != "" {
			for _, el := range doc.ByAttr(AttrUserAvatar) {
				el.SetAttr("src", user.ProfileImageURL)
				out.Bound++
			}
		}
	}

	out.HTMXTargets = s.wireFragments(doc, snap)

	if body := doc.Body(); body != nil && body.HasClass(ClassRequired) && !loggedIn {
		out.RedirectRequired = true
	}
	return out
}

// wireFragments points auth dependent fragments at the student's support
// cards and carries the bearer credential in hx-headers.
func (s *Synchronizer) wireFragments(doc *dom.Document, snap authclient.Snapshot) int {
	count := 0
	for _, el := range doc.ByAttr(AttrHTMXAuthLoad) {
		studentID, _ := el.Attr(AttrStudentID)
		if studentID == "" && snap.User != nil {
			studentID = strconv.FormatInt(snap.User.ID, 10)
		}
		if studentID == "" {
			continue
		}
		el.SetAttr("hx-get", s.apiBaseURL+"/students/"+studentID+"/support-cards?format=html")
		if snap.Credential != "" {
			headers, _ := json.Marshal(map[string]string{"Authorization": "Bearer " + snap.Credential})
			el.SetAttr("hx-headers", string(headers))
		} else {
			el.RemoveAttr("hx-headers")
		}
		count++
	}
	return count
}

func setVisible(el *dom.Element, visible bool) {
	el.ToggleClass(ClassHidden, !visible)
	if visible {
		el.SetStyle("display", "")
		el.SetStyle("visibility", "visible")
		return
	}
	el.SetStyle("display", "none")
	el.SetStyle("visibility", "hidden")
}

func bindText(doc *dom.Document, attr, value string) int {
	els := doc.ByAttr(attr)
	for _, el := range els {
		el.SetText(value)
	}
	return len(els)
}

func contains(list, value string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == value {
			return true
		}
	}
	return false
}
