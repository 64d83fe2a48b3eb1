package models

import "time"

// Role is the back-office role assigned to a user.
type Role string

const (
	RoleSuperAdmin Role = "Super Admin"
	RoleManager    Role = "Manager"
	RoleCashier    Role = "Cashier"
	RoleWaiter     Role = "Waiter"
)

// AdminRoles are the roles that receive operational notifications.
var AdminRoles = []Role{RoleSuperAdmin, RoleManager}

// IsAdmin reports whether the role has administrative privileges.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleManager
}

type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"not null" json:"name"`
	Email             string    `gorm:"uniqueIndex;not null" json:"email"`
	Password          string    `gorm:"not null" json:"-"`
	Role              Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	EmailVerified     bool      `gorm:"default:false" json:"email_verified"`
	VerificationToken string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
