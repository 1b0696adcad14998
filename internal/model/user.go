package model

import (
	"time"
)

// Role types forming the account hierarchy. Creation permissions and
// visibility scopes per role live in the hierarchy package.
const (
	RoleSuperAdmin  = "SuperAdmin"
	RoleDistributor = "Distributor"
	RoleAdmin       = "Admin"
	RoleCustomer    = "Customer"
	RoleDriver      = "Driver"
)

// IsKnownRole reports whether name is one of the hierarchy role types.
func IsKnownRole(name string) bool {
	switch name {
	case RoleSuperAdmin, RoleDistributor, RoleAdmin, RoleCustomer, RoleDriver:
		return true
	}
	return false
}

// User represents an account in the fleet hierarchy. SuperiorAccount is the
// email of the hierarchical parent; the graph these edges form must stay
// acyclic.
type User struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	SuperiorAccount *string   `json:"superior_account" gorm:"type:varchar(100);index:idx_users_superior_type"`
	TypeUser        string    `json:"type_user" gorm:"type:varchar(30);index:idx_users_superior_type"`
	Name            string    `json:"name" gorm:"type:varchar(100)"`
	Email           string    `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password        string    `json:"-" gorm:"type:varchar(255)"`
	Phone           string    `json:"phone,omitempty" gorm:"type:varchar(30)"`
	FCMToken        string    `json:"fcm_token,omitempty" gorm:"type:varchar(255)"`
	RoleID          uint      `json:"role_id" gorm:"index"`
	Role            *Role     `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	CreatedByID     *uint     `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Superior returns the parent email or "" when the user is a hierarchy root.
func (u *User) Superior() string {
	if u.SuperiorAccount == nil {
		return ""
	}
	return *u.SuperiorAccount
}
