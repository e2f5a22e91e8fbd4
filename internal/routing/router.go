// Package routing decides which portal a resolved session may enter. It is
// pure navigation logic: no network calls, no retries, and exactly one
// decision per resolution.
package routing

import "portalcore/internal/domain"

// Session is the slice of session state the router consumes. It is built
// from the validator's result plus the stored profile; the router never
// reaches into the token store directly.
type Session struct {
	Validating    bool
	Authenticated bool
	Role          domain.Role
}

// DecisionKind enumerates the router verdicts.
type DecisionKind int

const (
	// Suspend means the authentication verdict is not known yet: render
	// nothing and do not redirect. Redirecting on a stale flag here is the
	// race this state exists to prevent.
	Suspend DecisionKind = iota
	// Redirect sends the visitor to Decision.Location.
	Redirect
	// Deny renders an explicit access-denied state. Denied visitors are
	// not bounced into another portal; portals with disjoint role sets
	// would otherwise redirect each other forever.
	Deny
	// Admit lets the portal's page tree render.
	Admit
)

func (k DecisionKind) String() string {
	switch k {
	case Suspend:
		return "suspend"
	case Redirect:
		return "redirect"
	case Deny:
		return "deny"
	case Admit:
		return "admit"
	default:
		return "unknown"
	}
}

// Decision is the router's verdict for one resolution.
type Decision struct {
	Kind     DecisionKind
	Location string
}

// Portal is one role-gated page tree. An empty AllowedRoles set means the
// portal is open to any visitor, authenticated or not.
type Portal struct {
	Name         string
	Root         string
	LoginPath    string
	AllowedRoles []domain.Role
}

// The fixed portal set served by the registry.
var (
	PortalCitizen = Portal{
		Name:         "citizen",
		Root:         "/citizen",
		LoginPath:    "/citizen/login",
		AllowedRoles: []domain.Role{domain.RoleCitizen},
	}
	PortalOperator = Portal{
		Name:         "operator",
		Root:         "/operator",
		LoginPath:    "/operator/login",
		AllowedRoles: []domain.Role{domain.RoleOperator},
	}
	PortalGrak = Portal{
		Name:         "grak",
		Root:         "/grak",
		LoginPath:    "/grak/login",
		AllowedRoles: []domain.Role{domain.RoleGrak},
	}
	PortalAdmin = Portal{
		Name:         "admin",
		Root:         "/admin",
		LoginPath:    "/admin/login",
		AllowedRoles: []domain.Role{domain.RoleAdmin},
	}
	PortalPublic = Portal{
		Name:      "public",
		Root:      "/",
		LoginPath: "/",
	}
)

// Portals lists every portal, public last.
var Portals = []Portal{PortalCitizen, PortalOperator, PortalGrak, PortalAdmin, PortalPublic}

// Decide gates entry to the portal for the given session.
func (p Portal) Decide(s Session) Decision {
	if len(p.AllowedRoles) == 0 {
		return Decision{Kind: Admit}
	}
	if s.Validating {
		return Decision{Kind: Suspend}
	}
	if !s.Authenticated {
		return Decision{Kind: Redirect, Location: p.LoginPath}
	}
	for _, role := range p.AllowedRoles {
		if s.Role == role {
			return Decision{Kind: Admit}
		}
	}
	return Decision{Kind: Deny}
}

// FallbackPath is where the shared entry point sends authenticated visitors
// whose role maps to no portal.
const FallbackPath = "/dashboard"

// Home resolves the shared entry point for an authenticated role. Precedence
// is fixed: regulator claims outrank admin, admin outranks operator, operator
// outranks citizen, and anything else lands on the generic dashboard. Exactly
// one destination per role, deterministically.
func Home(role domain.Role) string {
	switch role {
	case domain.RoleGrak:
		return PortalGrak.Root
	case domain.RoleAdmin:
		return PortalAdmin.Root
	case domain.RoleOperator:
		return PortalOperator.Root
	case domain.RoleCitizen:
		return PortalCitizen.Root
	default:
		return FallbackPath
	}
}

// Resolve gates the shared entry point: suspend until the verdict is known,
// send signed-out visitors to the public root, and route everyone else to
// their role's home. At most one redirect is ever produced per resolution.
func Resolve(s Session) Decision {
	if s.Validating {
		return Decision{Kind: Suspend}
	}
	if !s.Authenticated {
		return Decision{Kind: Redirect, Location: PortalPublic.Root}
	}
	return Decision{Kind: Redirect, Location: Home(s.Role)}
}
