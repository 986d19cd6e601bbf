package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/daftari/core/access"
	"github.com/trezcool/daftari/core/user"
)

const userColumns = `id, username, password_hash, role, created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.CreatedAt = usr.CreatedAt.UTC()
	usr.UpdatedAt = usr.UpdatedAt.UTC()
	rows, err := repo.db.NamedQueryContext(ctx, `
		INSERT INTO "user" (username, password_hash, role, created_at, updated_at)
		VALUES (:username, :password_hash, :role, :created_at, :updated_at)
		RETURNING id`, usr)
	if err != nil {
		return user.User{}, trapErr(err, nil, "inserting user")
	}
	defer func() { _ = rows.Close() }()

	if rows.Next() {
		if err = rows.Scan(&usr.ID); err != nil {
			return user.User{}, trapErr(err, nil, "inserting user")
		}
	}
	return usr, trapErr(rows.Err(), nil, "inserting user")
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE id = $1`, id)
	return usr, trapErr(err, user.ErrNotFound, "getting user by ID")
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE username = $1`, username)
	return usr, trapErr(err, user.ErrNotFound, "getting user by username")
}

func (repo *userRepository) QueryUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	err := repo.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM "user" ORDER BY username`)
	return users, trapErr(err, nil, "querying users")
}

func (repo *userRepository) CountAdmins(ctx context.Context) (int, error) {
	var cnt int
	err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM "user" WHERE role = $1`, access.RoleAdmin)
	return cnt, trapErr(err, nil, "counting admins")
}

// lockAdmins locks the admin rows until the end of `tx` and returns how many there are.
func lockAdmins(ctx context.Context, tx *sqlx.Tx) (int, error) {
	var ids []int
	err := tx.SelectContext(ctx, &ids, `SELECT id FROM "user" WHERE role = $1 FOR UPDATE`, access.RoleAdmin)
	return len(ids), trapErr(err, nil, "locking admins")
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var orig user.User
		err := tx.GetContext(ctx, &orig, `SELECT `+userColumns+` FROM "user" WHERE id = $1 FOR UPDATE`, usr.ID)
		if err != nil {
			return trapErr(err, user.ErrNotFound, "getting user")
		}
		if orig.Role == access.RoleAdmin && usr.Role != access.RoleAdmin {
			cnt, err := lockAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if cnt == 1 {
				return user.ErrLastAdmin
			}
		}
		if usr.PasswordHash == nil {
			usr.PasswordHash = orig.PasswordHash
		}
		usr.CreatedAt = orig.CreatedAt
		usr.UpdatedAt = usr.UpdatedAt.UTC()

		_, err = tx.NamedExecContext(ctx, `
			UPDATE "user"
			SET username = :username, password_hash = :password_hash, role = :role, updated_at = :updated_at
			WHERE id = :id`, usr)
		return trapErr(err, nil, "updating user")
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var role access.Role
		err := tx.GetContext(ctx, &role, `SELECT role FROM "user" WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return trapErr(err, user.ErrNotFound, "getting user")
		}
		if role == access.RoleAdmin {
			cnt, err := lockAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if cnt == 1 {
				return user.ErrLastAdmin
			}
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM "user" WHERE id = $1`, id)
		return trapErr(err, nil, "deleting user")
	})
}
