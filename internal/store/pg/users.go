package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ongon.org/internal/apperr"
	"ongon.org/internal/auth"
	"ongon.org/internal/ids"
)

var _ auth.Store = (*Store)(nil)

const userColumns = `
	u.id, u.email, u.phone, u.password_hash, u.first_name, u.last_name, u.date_of_birth,
	u.gender, u.address, u.city, u.country, u.is_active, u.is_verified, u.last_login_at,
	u.created_at, u.updated_at,
	coalesce((select json_agg(r.name order by r.name) from user_roles ur
		join roles r on r.id = ur.role_id where ur.user_id = u.id), '[]')`

func scanUser(row scanner) (auth.User, error) {
	var (
		u     auth.User
		roles texts
	)
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.FirstName, &u.LastName, &u.DateOfBirth,
		&u.Gender, &u.Address, &u.City, &u.Country, &u.IsActive, &u.IsVerified, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt, &roles)
	if err != nil {
		return auth.User{}, err
	}
	u.Roles = make([]auth.RoleName, 0, len(roles))
	for _, r := range roles {
		u.Roles = append(u.Roles, auth.RoleName(r))
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, nu auth.NewUser) (auth.User, error) {
	id := ids.New()
	_, err := s.conn(ctx).ExecContext(ctx, `
		insert into users (id, email, password_hash, first_name, last_name, phone)
		values ($1, $2, $3, $4, $5, $6)
	`, id, nu.Email, nu.PasswordHash, nu.FirstName, nu.LastName, nu.Phone)
	if err != nil {
		return auth.User{}, mapError(err, "User")
	}
	return s.FindUser(ctx, id)
}

func (s *Store) FindUser(ctx context.Context, id string) (auth.User, error) {
	u, err := scanUser(s.conn(ctx).QueryRowContext(ctx, `select `+userColumns+` from users u where u.id = $1`, id))
	return u, mapError(err, "User")
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	u, err := scanUser(s.conn(ctx).QueryRowContext(ctx,
		`select `+userColumns+` from users u where lower(u.email) = lower($1)`, email))
	return u, mapError(err, "User")
}

func (s *Store) ListUsers(ctx context.Context, f auth.UserFilter) ([]auth.User, int, error) {
	var w filter
	if f.Search != "" {
		w.add(`(u.email ilike ? or u.first_name ilike ? or u.last_name ilike ?)`,
			like(f.Search), like(f.Search), like(f.Search))
	}
	if f.Role != "" {
		w.add(`exists (select 1 from user_roles ur join roles r on r.id = ur.role_id
			where ur.user_id = u.id and r.name = ?)`, string(f.Role))
	}
	var total int
	if err := s.conn(ctx).QueryRowContext(ctx, `select count(*) from users u`+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	q := `select ` + userColumns + ` from users u` + w.where() + ` order by u.created_at desc` + w.page(limit, f.Offset)
	rows, err := s.conn(ctx).QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd auth.UserUpdate) (auth.User, error) {
	var set setter
	setIf(&set, "first_name", upd.FirstName)
	setIf(&set, "last_name", upd.LastName)
	setIf(&set, "phone", upd.Phone)
	setIf(&set, "date_of_birth", upd.DateOfBirth)
	setIf(&set, "gender", upd.Gender)
	setIf(&set, "address", upd.Address)
	setIf(&set, "city", upd.City)
	setIf(&set, "country", upd.Country)
	setIf(&set, "is_active", upd.IsActive)
	setIf(&set, "is_verified", upd.IsVerified)
	if !set.empty() {
		set.touch()
		q, args := set.statement("users", "id", id)
		res, err := s.conn(ctx).ExecContext(ctx, q, args...)
		if err != nil {
			return auth.User{}, mapError(err, "User")
		}
		if err := affected(res, "User"); err != nil {
			return auth.User{}, err
		}
	}
	return s.FindUser(ctx, id)
}

// DeleteUser removes the account. Users that still own donations, loans
// or other records are kept and the call is a conflict.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return apperr.Conflict("User has related records")
		}
		return err
	}
	return affected(res, "User")
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`update users set password_hash = $1, updated_at = now() where id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	return affected(res, "User")
}

func (s *Store) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.conn(ctx).ExecContext(ctx, `update users set last_login_at = $1 where id = $2`, at, id)
	return err
}

func (s *Store) AssignRole(ctx context.Context, userID string, role auth.RoleName) error {
	var roleID int64
	err := s.conn(ctx).QueryRowContext(ctx, `select id from roles where name = $1`, string(role)).Scan(&roleID)
	if err != nil {
		return mapError(err, "Role")
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		insert into user_roles (user_id, role_id) values ($1, $2)
		on conflict do nothing
	`, userID, roleID)
	return mapError(err, "User")
}

// GrantRole satisfies welfare.RoleGranter.
func (s *Store) GrantRole(ctx context.Context, userID string, role auth.RoleName) error {
	return s.AssignRole(ctx, userID, role)
}

func (s *Store) Grants(ctx context.Context, userID string) ([]auth.RoleName, []auth.Permission, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		select r.name, p.name
		from user_roles ur
		join roles r on r.id = ur.role_id
		left join role_permissions rp on rp.role_id = r.id
		left join permissions p on p.id = rp.permission_id
		where ur.user_id = $1
		order by r.name, p.name
	`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var (
		roles []auth.RoleName
		perms []auth.Permission
	)
	seenRole, seenPerm := map[string]bool{}, map[string]bool{}
	for rows.Next() {
		var (
			role string
			perm sql.NullString
		)
		if err := rows.Scan(&role, &perm); err != nil {
			return nil, nil, err
		}
		if !seenRole[role] {
			seenRole[role] = true
			roles = append(roles, auth.RoleName(role))
		}
		if perm.Valid && !seenPerm[perm.String] {
			seenPerm[perm.String] = true
			perms = append(perms, auth.Permission(perm.String))
		}
	}
	return roles, perms, rows.Err()
}

func (s *Store) CreateRefreshToken(ctx context.Context, tok auth.RefreshToken) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		insert into refresh_tokens (id, user_id, token_hash, expires_at, created_at, revoked)
		values ($1, $2, $3, $4, $5, $6)
	`, tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt, tok.CreatedAt, tok.Revoked)
	return mapError(err, "User")
}

func (s *Store) FindRefreshToken(ctx context.Context, id string) (auth.RefreshToken, error) {
	var tok auth.RefreshToken
	err := s.conn(ctx).QueryRowContext(ctx, `
		select id, user_id, token_hash, expires_at, created_at, revoked
		from refresh_tokens where id = $1
	`, id).Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.ExpiresAt, &tok.CreatedAt, &tok.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.RefreshToken{}, apperr.NotFound("Refresh token")
	}
	return tok, err
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `update refresh_tokens set revoked = true where id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, "Refresh token")
}

func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`update refresh_tokens set revoked = true where user_id = $1 and not revoked`, userID)
	return err
}

func like(s string) string { return "%" + s + "%" }
