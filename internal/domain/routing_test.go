package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/gatekeeper/pkg/util"
)

func fullyConfigured() Settings {
	s := DefaultSettings()
	s.Roles = RoleSettings{
		Resident:          "role-resident",
		Visitor:           "role-visitor",
		BorderAuthority:   "role-border",
		ForeignMinister:   "role-minister",
		HeadOfState:       "role-head",
		DeputyHeadOfState: "role-deputy",
		Oversight:         "role-oversight",
	}
	return s
}

func TestResolveRoute(t *testing.T) {
	tests := []struct {
		name          string
		category      Category
		mutate        func(*Settings)
		wantReviewers []string
		wantGrant     string
		wantErrCode   util.Code
	}{
		{
			name:          "resident routes to border authority with resident grant",
			category:      CategoryResident,
			wantReviewers: []string{"role-border"},
			wantGrant:     "role-resident",
		},
		{
			name:          "visitor routes to border authority with visitor grant",
			category:      CategoryVisitor,
			wantReviewers: []string{"role-border"},
			wantGrant:     "role-visitor",
		},
		{
			name:          "embassy routes to the three senior roles with no grant",
			category:      CategoryEmbassy,
			wantReviewers: []string{"role-minister", "role-head", "role-deputy"},
			wantGrant:     "",
		},
		{
			name:        "resident without resident role",
			category:    CategoryResident,
			mutate:      func(s *Settings) { s.Roles.Resident = "" },
			wantErrCode: util.CodeNotConfigured,
		},
		{
			name:        "resident without border authority",
			category:    CategoryResident,
			mutate:      func(s *Settings) { s.Roles.BorderAuthority = "" },
			wantErrCode: util.CodeNotConfigured,
		},
		{
			name:        "visitor without visitor role",
			category:    CategoryVisitor,
			mutate:      func(s *Settings) { s.Roles.Visitor = "" },
			wantErrCode: util.CodeNotConfigured,
		},
		{
			name:        "embassy without deputy head of state",
			category:    CategoryEmbassy,
			mutate:      func(s *Settings) { s.Roles.DeputyHeadOfState = "" },
			wantErrCode: util.CodeNotConfigured,
		},
		{
			name:        "unknown category",
			category:    Category("WANDERER"),
			wantErrCode: util.CodeInternal,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := fullyConfigured()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}

			route, err := ResolveRoute(cfg, tc.category)
			if tc.wantErrCode != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantErrCode, util.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantReviewers, route.ReviewerRoles)
			assert.Equal(t, tc.wantGrant, route.GrantRole)
		})
	}
}

func TestRouteAuthorizes(t *testing.T) {
	route := Route{ReviewerRoles: []string{"role-minister", "role-head"}}

	assert.True(t, route.Authorizes([]string{"role-head"}))
	assert.True(t, route.Authorizes([]string{"unrelated", "role-minister"}))
	assert.False(t, route.Authorizes([]string{"role-border"}))
	assert.False(t, route.Authorizes(nil))
}

func TestResidentRouteDoesNotDependOnEmbassyRoles(t *testing.T) {
	cfg := fullyConfigured()
	cfg.Roles.ForeignMinister = ""
	cfg.Roles.HeadOfState = ""
	cfg.Roles.DeputyHeadOfState = ""

	_, err := ResolveRoute(cfg, CategoryResident)
	require.NoError(t, err)
}
