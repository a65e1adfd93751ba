// Package guard decides, per navigation, whether to render protected
// content, redirect, or deny access. Decide is a pure function of the
// navigation inputs so route wiring stays trivially testable.
package guard

import "slices"

// DecisionKind enumerates the possible outcomes of a navigation check.
type DecisionKind int

const (
	DecisionLoading DecisionKind = iota
	DecisionRedirectToLogin
	DecisionRedirectToRoleDashboard
	DecisionAccessDenied
	DecisionRender
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionLoading:
		return "loading"
	case DecisionRedirectToLogin:
		return "redirect_to_login"
	case DecisionRedirectToRoleDashboard:
		return "redirect_to_role_dashboard"
	case DecisionAccessDenied:
		return "access_denied"
	case DecisionRender:
		return "render"
	default:
		return "unknown"
	}
}

// Input carries the navigation state a decision depends on. An empty
// RequiredRoles slice means any authenticated role may pass.
type Input struct {
	Loading       bool
	Authenticated bool
	CurrentRole   string
	RequiredRoles []string
	RequiresAuth  bool
	RequestedPath string
	SavedPath     string
}

// Decision is the computed outcome. RedirectPath is set for both redirect
// kinds and, on AccessDenied, points at the user's own dashboard so the
// denial view can offer a way out. ReturnTo preserves the originally
// requested path for a single post-login redirect.
type Decision struct {
	Kind          DecisionKind
	RedirectPath  string
	ReturnTo      string
	RequiredRoles []string
	CurrentRole   string
}

// Decide computes the outcome for one navigation.
//
// While authentication state is still loading nothing redirects: the
// placeholder renders until the state settles. An authenticated user whose
// role claim has not resolved yet also reads as loading rather than denied,
// so a slow profile load never flashes an access-denied view.
func Decide(in Input) Decision {
	if in.Loading {
		return Decision{Kind: DecisionLoading}
	}
	if in.RequiresAuth && !in.Authenticated {
		return Decision{
			Kind:         DecisionRedirectToLogin,
			RedirectPath: LoginPath,
			ReturnTo:     in.RequestedPath,
		}
	}
	if !in.RequiresAuth && in.Authenticated {
		// Signed-in users skip public pages and land on their dashboard,
		// honoring a saved "came from" path unless it is the login page.
		target := DashboardPath(in.CurrentRole)
		if in.SavedPath != "" && in.SavedPath != LoginPath {
			target = in.SavedPath
		}
		return Decision{
			Kind:         DecisionRedirectToRoleDashboard,
			RedirectPath: target,
			CurrentRole:  in.CurrentRole,
		}
	}
	if in.RequiresAuth && len(in.RequiredRoles) > 0 {
		if in.CurrentRole == "" {
			return Decision{Kind: DecisionLoading}
		}
		if !slices.Contains(in.RequiredRoles, in.CurrentRole) {
			return Decision{
				Kind:          DecisionAccessDenied,
				RedirectPath:  DashboardPath(in.CurrentRole),
				RequiredRoles: in.RequiredRoles,
				CurrentRole:   in.CurrentRole,
			}
		}
	}
	return Decision{Kind: DecisionRender}
}
