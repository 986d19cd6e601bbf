package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
)

type User struct {
	ID           int         `json:"id" db:"id"`
	Username     string      `json:"username" db:"username"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	Role         access.Role `json:"role" db:"role"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool {
	return u.Role == access.RoleAdmin
}

// Identity returns who this user is when calling the engine.
func (u User) Identity() access.Identity {
	return access.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username        string      `json:"username" validate:"required,min=3,alphanum_"`
	Password        string      `json:"password" validate:"required"`
	PasswordConfirm string      `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            access.Role `json:"role" validate:"required,role"`
}

func (nu *NewUser) Validate() error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	return core.ValidateStruct(nu)
}
