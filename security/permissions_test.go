package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aslaburda/aslp_backend/models"
)

func TestHasPermission_Guest(t *testing.T) {
	d := HasPermission(Principal{}, PermCreateApps, nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "guest", d.Reason)
}

func TestHasPermission_AdminHoldsEverything(t *testing.T) {
	admin := Principal{UserID: 1, Roles: []string{models.RoleAdministrator}}
	for _, perm := range AllPermissions {
		assert.True(t, HasPermission(admin, perm, Owned(99)).Allowed, perm)
	}
}

func TestHasPermission_RoleGrants(t *testing.T) {
	user := Principal{UserID: 2, Roles: []string{models.RoleAppUser}}
	assert.True(t, user.Can(PermCreateApps))
	assert.True(t, user.Can(PermJoinAffiliateProgram))
	assert.False(t, user.Can(PermManageOwnListings))
	assert.False(t, user.Can(PermManageApps))

	owner := Principal{UserID: 3, Roles: []string{models.RoleBusinessOwner}}
	assert.True(t, owner.Can(PermManageOwnListings))
}

func TestHasPermission_Ownership(t *testing.T) {
	user := Principal{UserID: 2, Roles: []string{models.RoleAppUser}}

	assert.True(t, HasPermission(user, PermCreateApps, Owned(2)).Allowed)
	d := HasPermission(user, PermCreateApps, Owned(3))
	assert.False(t, d.Allowed)
	assert.Equal(t, "not owner", d.Reason)

	// unsaved resources have no owner yet
	assert.True(t, HasPermission(user, PermCreateApps, Owned(0)).Allowed)
}

func TestHasPermission_ManagementIgnoresOwner(t *testing.T) {
	manager := Principal{UserID: 5, Capabilities: []string{string(PermManageListings)}}
	assert.True(t, HasPermission(manager, PermManageListings, Owned(7)).Allowed)
}

func TestHasPermission_DirectCapability(t *testing.T) {
	affiliate := Principal{
		UserID:       4,
		Roles:        []string{models.RoleAffiliate},
		Capabilities: []string{string(PermAffiliateDashboard)},
	}
	assert.True(t, affiliate.Can(PermAffiliateDashboard))
	assert.False(t, affiliate.Can(PermRequestPayouts))

	d := HasPermission(affiliate, PermRequestPayouts, nil)
	assert.Equal(t, "missing capability aslp_request_affiliate_payouts", d.Reason)
}

func TestPermissionsFor(t *testing.T) {
	user := Principal{UserID: 2, Roles: []string{models.RoleAppUser}}
	assert.ElementsMatch(t, []Permission{PermCreateApps, PermViewNotifications, PermJoinAffiliateProgram}, PermissionsFor(user))
	assert.Empty(t, PermissionsFor(Principal{}))
}
