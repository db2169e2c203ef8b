package models

import "time"

// Role names understood by the access guards.
const (
	RoleUser  = "User"
	RoleOwner = "Owner"
)

// Roles lists the assignable roles.
var Roles = []string{RoleUser, RoleOwner}

// User represents a user of the store.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Password  string    `json:"-" gorm:"type:varchar(255)"`
	Role      string    `json:"role" gorm:"type:varchar(32);not null;default:User"`
	CreatedAt time.Time `json:"created_at"`
}
