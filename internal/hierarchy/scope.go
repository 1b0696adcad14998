package hierarchy

import (
	"fleet-service/internal/model"

	"gorm.io/gorm"
)

// Policy holds the tunable rules of the visibility model.
type Policy struct {
	// CustomerDriverVisibility widens an Admin's direct scope to include
	// drivers currently assigned to an active route where the admin is
	// the customer.
	CustomerDriverVisibility bool
}

// gormDirectory backs the Directory interface with the users table.
type gormDirectory struct {
	db *gorm.DB
}

// NewDirectory returns a Directory reading parent->children edges from
// the database.
func NewDirectory(db *gorm.DB) Directory {
	return gormDirectory{db: db}
}

func (d gormDirectory) ChildrenOf(parents []string) ([]string, error) {
	var emails []string
	err := d.db.Model(&model.User{}).
		Where("superior_account IN ?", parents).
		Pluck("email", &emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// ScopeFilter builds the user-listing predicate for the requesting user
// as a gorm scope. The filter is read-only query construction; callers
// apply it with db.Scopes(filter).
func ScopeFilter(db *gorm.DB, user *model.User, policy Policy) (func(*gorm.DB) *gorm.DB, error) {
	scope, err := ScopeOf(user.TypeUser)
	if err != nil {
		return nil, err
	}

	switch scope {
	case ScopeAll:
		return func(tx *gorm.DB) *gorm.DB { return tx }, nil

	case ScopeHierarchical:
		tree, err := UserHierarchy(NewDirectory(db), user.Email)
		if err != nil {
			return nil, err
		}
		return func(tx *gorm.DB) *gorm.DB {
			return tx.Where("superior_account IN ? OR email IN ?", tree, tree)
		}, nil

	case ScopeDirect:
		if policy.CustomerDriverVisibility {
			// Drivers on the admin's active routes are visible too.
			assignedDrivers := db.Model(&model.Route{}).
				Select("driver_id").
				Where("customer_id = ? AND status = ?", user.ID, model.RouteStatusInProgress)
			return func(tx *gorm.DB) *gorm.DB {
				return tx.Where("superior_account = ? OR id = ? OR id IN (?)",
					user.Email, user.ID, assignedDrivers)
			}, nil
		}
		return func(tx *gorm.DB) *gorm.DB {
			return tx.Where("superior_account = ? OR id = ?", user.Email, user.ID)
		}, nil

	default: // ScopeSelf
		return func(tx *gorm.DB) *gorm.DB {
			return tx.Where("id = ?", user.ID)
		}, nil
	}
}
