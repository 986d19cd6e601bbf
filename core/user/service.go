package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user")
	ErrUsernameExists       = core.NewConstraintError("a user with this username already exists")
	ErrLastAdmin            = core.NewConstraintError("at least one admin must remain")
	ErrAuthenticationFailed = errors.Wrap(core.ErrUnauthenticated, "invalid username or password")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		QueryUsers(ctx context.Context) ([]User, error)
		CountAdmins(ctx context.Context) (int, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser refuses to delete the last admin with ErrLastAdmin.
		DeleteUser(ctx context.Context, id int) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

// ResetPassword contains the new password of an existing User.
type ResetPassword struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetPassword) Validate() error {
	rp.Username = core.CleanString(rp.Username, true /* lower */)
	return core.ValidateStruct(rp)
}

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Create(ctx context.Context, actor access.Identity, nu NewUser) (User, error) {
	if err := access.Authorize(actor, access.ManageUsers); err != nil {
		return User{}, err
	}
	return svc.Register(ctx, nu)
}

// Register creates a user without checking who asks; it is meant for trusted callers (admin CLI).
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(); err != nil {
		return User{}, err
	}
	now := core.NowFunc().UTC()
	usr := User{
		Username:  nu.Username,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.logger.Info("user created", map[string]interface{}{"username": usr.Username, "role": usr.Role})
	return usr, nil
}

// EnsureAdmin creates an admin with the given credentials when no admin exists yet.
// It returns whether a user was created.
func (svc *Service) EnsureAdmin(ctx context.Context, uname, pwd string) (bool, error) {
	cnt, err := svc.repo.CountAdmins(ctx)
	if err != nil {
		return false, errors.Wrap(err, "counting admins")
	}
	if cnt > 0 {
		return false, nil
	}
	_, err = svc.Register(ctx, NewUser{Username: uname, Password: pwd, PasswordConfirm: pwd, Role: access.RoleAdmin})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate checks credentials and returns the identity to call the engine with.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (access.Identity, error) {
	usr, err := svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return access.Identity{}, ErrAuthenticationFailed
		}
		return access.Identity{}, errors.Wrap(err, "finding user by username")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return access.Identity{}, ErrAuthenticationFailed
	}
	return usr.Identity(), nil
}

// ResetPassword sets a new password; it is meant for trusted callers (admin CLI).
func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	if err := rp.Validate(); err != nil {
		return err
	}
	usr, err := svc.repo.GetUserByUsername(ctx, rp.Username)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context, actor access.Identity) ([]User, error) {
	if err := access.Authorize(actor, access.ManageUsers); err != nil {
		return nil, err
	}
	return svc.repo.QueryUsers(ctx)
}

// SetRole changes the role of a user; the last admin cannot be demoted.
func (svc *Service) SetRole(ctx context.Context, actor access.Identity, id int, role access.Role) (User, error) {
	if err := access.Authorize(actor, access.ManageUsers); err != nil {
		return User{}, err
	}
	if !role.Valid() {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: roleText})
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	usr.UpdatedAt = core.NowFunc().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, err
	}
	svc.logger.Info("user role changed", map[string]interface{}{"username": usr.Username, "role": role}, actor)
	return usr, nil
}

func (svc *Service) Delete(ctx context.Context, actor access.Identity, id int) error {
	if err := access.Authorize(actor, access.ManageUsers); err != nil {
		return err
	}
	if err := svc.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	svc.logger.Info("user deleted", map[string]interface{}{"id": id}, actor)
	return nil
}
