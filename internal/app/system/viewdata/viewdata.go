// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSiteName is shown in the header when no name is configured.
const DefaultSiteName = "StudyHub"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/default-back"),
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn bool
	Role       string
	UserName   string
	Status     string
	Restricted bool // signed in but not allowed to write

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// CSRF protection
	CSRFToken string

	// Unread notification count for the header badge
	UnreadCount int64
}

// UnreadCounter returns the unread notification count for a user.
// This is set by bootstrap to avoid circular dependencies.
type UnreadCounter func(ctx context.Context, userID primitive.ObjectID) int64

var (
	siteName      = DefaultSiteName
	unreadCounter UnreadCounter
)

// SetSiteName overrides the site name shown in every page header.
func SetSiteName(name string) {
	if name != "" {
		siteName = name
	}
}

// SetUnreadCounter sets the function used for the header badge.
// Call this once at startup from bootstrap.
func SetUnreadCounter(fn UnreadCounter) {
	unreadCounter = fn
}

// NewBaseVM creates a fully populated BaseVM for a page.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	role, name, uid, signedIn := authz.UserCtx(r)

	vm := BaseVM{
		SiteName:    siteName,
		IsLoggedIn:  signedIn,
		Role:        role,
		UserName:    name,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}

	if u, ok := auth.CurrentUser(r); ok {
		vm.Status = u.Status
		vm.Restricted = !u.CanWrite()
	}

	if signedIn && unreadCounter != nil {
		vm.UnreadCount = unreadCounter(r.Context(), uid)
	}

	return vm
}
