package entity

import (
	"net/http"
	"time"

	"github.com/conquestsam/MLM/lib/validate"
)

// ApiRole controls access level for API callers.
type ApiRole string

const (
	RoleService ApiRole = "service" // settlement/identity collaborators, full write access
	RoleReader  ApiRole = "reader"  // presentation collaborators, read APIs only
	RoleAdmin   ApiRole = "admin"   // operators, also receive bot alerts
)

// User is an authenticated API caller. The identity collaborator owns
// member identity; User only gates transport access by bearer token.
type User struct {
	Username     string    `json:"username" bson:"username" validate:"required"`
	Token        string    `json:"token" bson:"token" validate:"required,min=16"`
	Role         ApiRole   `json:"role" bson:"role"`
	TelegramId   int64     `json:"telegram_id,omitempty" bson:"telegram_id"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
}

func (u *User) Bind(_ *http.Request) error {
	return validate.Struct(u)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) CanWrite() bool {
	return u.Role == RoleService || u.Role == RoleAdmin
}
