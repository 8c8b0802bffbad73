package security

import "github.com/aslaburda/aslp_backend/models"

// Permission is a named capability checked before a privileged operation.
type Permission string

const (
	PermManageApps           Permission = "aslp_manage_apps"
	PermManageAppTemplates   Permission = "aslp_manage_app_templates"
	PermManageAppMenus       Permission = "aslp_manage_app_menus"
	PermManageCustomFields   Permission = "aslp_manage_custom_fields"
	PermManageSettings       Permission = "aslp_manage_settings"
	PermManageAffiliates     Permission = "aslp_manage_affiliates"
	PermViewAnalytics        Permission = "aslp_view_analytics"
	PermUseAIAgent           Permission = "aslp_use_ai_agent"
	PermManageTools          Permission = "aslp_manage_tools"
	PermManageListings       Permission = "aslp_manage_listings"
	PermManageListingPlans   Permission = "aslp_manage_listing_plans"
	PermCreateApps           Permission = "aslp_create_apps"
	PermManageOwnListings    Permission = "aslp_manage_own_listings"
	PermViewNotifications    Permission = "aslp_view_notifications"
	PermJoinAffiliateProgram Permission = "aslp_join_affiliate_program"
	PermAffiliateDashboard   Permission = "aslp_access_affiliate_dashboard"
	PermRequestPayouts       Permission = "aslp_request_affiliate_payouts"
)

// AffiliateActivationGrants are added to a user when their affiliate account is activated.
var AffiliateActivationGrants = []Permission{PermAffiliateDashboard, PermRequestPayouts}

// selfService permissions act on the caller's own records only.
var selfService = map[Permission]bool{
	PermCreateApps:         true,
	PermManageOwnListings:  true,
	PermViewNotifications:  true,
	PermAffiliateDashboard: true,
	PermRequestPayouts:     true,
}

var roleGrants = map[string][]Permission{
	models.RoleAppUser: {
		PermCreateApps,
		PermViewNotifications,
		PermJoinAffiliateProgram,
	},
	models.RoleBusinessOwner: {
		PermCreateApps,
		PermManageOwnListings,
		PermViewNotifications,
		PermJoinAffiliateProgram,
	},
	models.RoleAffiliate: {
		PermViewNotifications,
		PermJoinAffiliateProgram,
	},
}

// Principal is the authenticated actor of a request. UserID 0 is a guest.
type Principal struct {
	UserID       int64
	Roles        []string
	Capabilities []string
}

// PrincipalFromUser builds the principal for a stored user.
func PrincipalFromUser(u models.User) Principal {
	return Principal{UserID: u.ID, Roles: u.Roles, Capabilities: u.Capabilities}
}

func (p Principal) IsGuest() bool { return p.UserID == 0 }

func (p Principal) IsAdmin() bool {
	for _, r := range p.Roles {
		if r == models.RoleAdministrator {
			return true
		}
	}
	return false
}

// Resource describes what an operation touches. OwnerID 0 means site-owned
// or not yet created.
type Resource struct {
	OwnerID int64
}

// Owned returns a resource owned by userID.
func Owned(userID int64) *Resource {
	return &Resource{OwnerID: userID}
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// HasPermission evaluates whether principal may exercise perm on res.
// Administrators hold every permission and bypass ownership.
func HasPermission(p Principal, perm Permission, res *Resource) Decision {
	if p.IsGuest() {
		return deny("guest")
	}
	if p.IsAdmin() {
		return allow()
	}
	if !p.holds(perm) {
		return deny("missing capability " + string(perm))
	}
	if selfService[perm] && res != nil && res.OwnerID != 0 && res.OwnerID != p.UserID {
		return deny("not owner")
	}
	// management permissions are site-wide; ownership does not restrict them
	return allow()
}

// Can is HasPermission without a resource.
func (p Principal) Can(perm Permission) bool {
	return HasPermission(p, perm, nil).Allowed
}

func (p Principal) holds(perm Permission) bool {
	for _, c := range p.Capabilities {
		if c == string(perm) {
			return true
		}
	}
	for _, r := range p.Roles {
		for _, granted := range roleGrants[r] {
			if granted == perm {
				return true
			}
		}
	}
	return false
}

// PermissionsFor lists the effective permissions of a principal, used by the
// admin menu and the login response.
func PermissionsFor(p Principal) []Permission {
	var out []Permission
	for _, perm := range AllPermissions {
		if p.Can(perm) {
			out = append(out, perm)
		}
	}
	return out
}

var AllPermissions = []Permission{
	PermManageApps,
	PermManageAppTemplates,
	PermManageAppMenus,
	PermManageCustomFields,
	PermManageSettings,
	PermManageAffiliates,
	PermViewAnalytics,
	PermUseAIAgent,
	PermManageTools,
	PermManageListings,
	PermManageListingPlans,
	PermCreateApps,
	PermManageOwnListings,
	PermViewNotifications,
	PermJoinAffiliateProgram,
	PermAffiliateDashboard,
	PermRequestPayouts,
}
