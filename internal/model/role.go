package model

import "time"

// Role is a catalog entry referenced by users. The role name mirrors the
// user's TypeUser; the catalog exists so descriptions can be managed
// without touching accounts.
type Role struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(50);uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}
