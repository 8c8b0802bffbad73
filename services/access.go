package services

import (
	"errors"

	"github.com/aslaburda/aslp_backend/models"
	"github.com/aslaburda/aslp_backend/security"
)

// authorizeOwned hides records the principal may not act on: a self-service
// caller sees someone else's record as missing. Holders of the site-wide
// manage permission pass regardless of owner.
func authorizeOwned(p security.Principal, own, manage security.Permission, ownerID int64, what string) error {
	if p.Can(manage) {
		return nil
	}
	if !security.HasPermission(p, own, security.Owned(ownerID)).Allowed {
		return models.ErrNotFound(what)
	}
	return nil
}

// lookupErr maps a repository lookup failure to NotFound or Persistence.
func lookupErr(err error, what string) error {
	if errors.Is(err, models.ErrNoRecord) {
		return models.ErrNotFound(what)
	}
	return models.ErrPersistence(err)
}
