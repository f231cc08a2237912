package user

import (
	"github.com/dulmini1119/tms-sub001/internal/core/datamodel"
)

const (
	RoleEmployee   = "Employee"
	RoleManager    = "Manager"
	RoleDispatcher = "Dispatcher"
	RoleFinance    = "Finance"
	RoleAdmin      = "Admin"
)

type User struct {
	datamodel.Model
	Email        string `json:"email" gorm:"column:email;uniqueIndex;not null"`
	FirstName    string `json:"firstName" gorm:"column:first_name;not null"`
	LastName     string `json:"lastName" gorm:"column:last_name"`
	PasswordHash string `json:"-" gorm:"column:password_hash;not null"`
	Role         string `json:"role" gorm:"column:role;not null;default:Employee"`
	Department   string `json:"department,omitempty" gorm:"column:department"`
	IsActive     bool   `json:"isActive" gorm:"column:is_active;default:true"`
}

func (User) TableName() string {
	return "users"
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
