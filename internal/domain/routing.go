package domain

import "github.com/spec-kit/gatekeeper/pkg/util"

// Route describes who may review a request and what role, if any, an
// approval confers on the requester.
type Route struct {
	ReviewerRoles []string
	GrantRole     string
}

// ResolveRoute maps a request category onto its reviewer role set and
// grantable role using the current settings. It fails with NOT_CONFIGURED
// when any id the category depends on is unset.
func ResolveRoute(s Settings, c Category) (Route, error) {
	switch c {
	case CategoryResident:
		if s.Roles.BorderAuthority == "" {
			return Route{}, util.NewNotConfigured("border authority role")
		}
		if s.Roles.Resident == "" {
			return Route{}, util.NewNotConfigured("resident role")
		}
		return Route{
			ReviewerRoles: []string{s.Roles.BorderAuthority},
			GrantRole:     s.Roles.Resident,
		}, nil
	case CategoryVisitor:
		if s.Roles.BorderAuthority == "" {
			return Route{}, util.NewNotConfigured("border authority role")
		}
		if s.Roles.Visitor == "" {
			return Route{}, util.NewNotConfigured("visitor role")
		}
		return Route{
			ReviewerRoles: []string{s.Roles.BorderAuthority},
			GrantRole:     s.Roles.Visitor,
		}, nil
	case CategoryEmbassy:
		if s.Roles.ForeignMinister == "" {
			return Route{}, util.NewNotConfigured("foreign affairs minister role")
		}
		if s.Roles.HeadOfState == "" {
			return Route{}, util.NewNotConfigured("head of state role")
		}
		if s.Roles.DeputyHeadOfState == "" {
			return Route{}, util.NewNotConfigured("deputy head of state role")
		}
		return Route{
			ReviewerRoles: []string{s.Roles.ForeignMinister, s.Roles.HeadOfState, s.Roles.DeputyHeadOfState},
		}, nil
	}
	return Route{}, util.NewFlowError(util.CodeInternal, "unknown request category", map[string]any{"category": string(c)})
}

// Authorizes reports whether a holder of the given role ids may decide
// tickets on this route.
func (r Route) Authorizes(roleIDs []string) bool {
	for _, held := range roleIDs {
		for _, reviewer := range r.ReviewerRoles {
			if held == reviewer {
				return true
			}
		}
	}
	return false
}
