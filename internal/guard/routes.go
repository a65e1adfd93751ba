package guard

// Role names exactly as the backend spells them in token claims.
const (
	RoleAdmin       = "Admin"
	RoleTravelAdmin = "TravelAdmin"
	RoleManager     = "Manager"
	RoleEmployee    = "Employee"
)

// LoginPath is where unauthenticated and unknown-role navigations land.
const LoginPath = "/login"

var dashboardPaths = map[string]string{
	RoleAdmin:       "/admin/dashboard",
	RoleTravelAdmin: "/travel-admin/dashboard",
	RoleManager:     "/manager/dashboard",
	RoleEmployee:    "/employee/dashboard",
}

// DashboardPath returns the canonical landing route for a role. Anything
// outside the fixed table maps to the login page.
func DashboardPath(role string) string {
	if p, ok := dashboardPaths[role]; ok {
		return p
	}
	return LoginPath
}
