package guard

import "testing"

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want Decision
	}{
		{
			name: "loading wins over everything",
			in: Input{
				Loading:       true,
				Authenticated: true,
				RequiresAuth:  true,
				CurrentRole:   RoleAdmin,
			},
			want: Decision{Kind: DecisionLoading},
		},
		{
			name: "unauthenticated protected route redirects to login",
			in: Input{
				RequiresAuth:  true,
				RequestedPath: "/manager/requests/7",
			},
			want: Decision{
				Kind:         DecisionRedirectToLogin,
				RedirectPath: LoginPath,
				ReturnTo:     "/manager/requests/7",
			},
		},
		{
			name: "signed-in user skips public page to own dashboard",
			in: Input{
				Authenticated: true,
				CurrentRole:   RoleAdmin,
			},
			want: Decision{
				Kind:         DecisionRedirectToRoleDashboard,
				RedirectPath: "/admin/dashboard",
				CurrentRole:  RoleAdmin,
			},
		},
		{
			name: "saved path overrides the dashboard",
			in: Input{
				Authenticated: true,
				CurrentRole:   RoleEmployee,
				SavedPath:     "/employee/requests/new",
			},
			want: Decision{
				Kind:         DecisionRedirectToRoleDashboard,
				RedirectPath: "/employee/requests/new",
				CurrentRole:  RoleEmployee,
			},
		},
		{
			name: "saved login path is ignored",
			in: Input{
				Authenticated: true,
				CurrentRole:   RoleManager,
				SavedPath:     LoginPath,
			},
			want: Decision{
				Kind:         DecisionRedirectToRoleDashboard,
				RedirectPath: "/manager/dashboard",
				CurrentRole:  RoleManager,
			},
		},
		{
			name: "wrong role is denied with both sides listed",
			in: Input{
				Authenticated: true,
				RequiresAuth:  true,
				RequiredRoles: []string{RoleManager},
				CurrentRole:   RoleEmployee,
			},
			want: Decision{
				Kind:          DecisionAccessDenied,
				RedirectPath:  "/employee/dashboard",
				RequiredRoles: []string{RoleManager},
				CurrentRole:   RoleEmployee,
			},
		},
		{
			name: "unresolved role reads as loading, not denied",
			in: Input{
				Authenticated: true,
				RequiresAuth:  true,
				RequiredRoles: []string{RoleManager},
			},
			want: Decision{Kind: DecisionLoading},
		},
		{
			name: "matching role renders",
			in: Input{
				Authenticated: true,
				RequiresAuth:  true,
				RequiredRoles: []string{RoleManager, RoleAdmin},
				CurrentRole:   RoleAdmin,
			},
			want: Decision{Kind: DecisionRender},
		},
		{
			name: "empty required roles admits any authenticated user",
			in: Input{
				Authenticated: true,
				RequiresAuth:  true,
				CurrentRole:   RoleEmployee,
			},
			want: Decision{Kind: DecisionRender},
		},
		{
			name: "public route for anonymous user renders",
			in:   Input{},
			want: Decision{Kind: DecisionRender},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(tc.in)
			if got.Kind != tc.want.Kind {
				t.Fatalf("kind = %s, want %s", got.Kind, tc.want.Kind)
			}
			if got.RedirectPath != tc.want.RedirectPath {
				t.Fatalf("redirect = %q, want %q", got.RedirectPath, tc.want.RedirectPath)
			}
			if got.ReturnTo != tc.want.ReturnTo {
				t.Fatalf("return-to = %q, want %q", got.ReturnTo, tc.want.ReturnTo)
			}
			if got.CurrentRole != tc.want.CurrentRole {
				t.Fatalf("current role = %q, want %q", got.CurrentRole, tc.want.CurrentRole)
			}
			if len(got.RequiredRoles) != len(tc.want.RequiredRoles) {
				t.Fatalf("required roles = %v, want %v", got.RequiredRoles, tc.want.RequiredRoles)
			}
		})
	}
}

func TestDashboardPath(t *testing.T) {
	cases := map[string]string{
		RoleAdmin:       "/admin/dashboard",
		RoleTravelAdmin: "/travel-admin/dashboard",
		RoleManager:     "/manager/dashboard",
		RoleEmployee:    "/employee/dashboard",
		"Intern":        LoginPath,
		"":              LoginPath,
	}
	for role, want := range cases {
		if got := DashboardPath(role); got != want {
			t.Fatalf("DashboardPath(%q) = %q, want %q", role, got, want)
		}
	}
}
