package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
)

var userColumns = []string{
	"id", "email", "password", "first_name", "last_name", "phone",
	"is_active", "is_admin", "max_loans", "created_at", "updated_at",
}

func (r *repository) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	q := qb.Insert(usersTableName).
		Columns("email", "password", "first_name", "last_name", "phone", "is_active", "is_admin", "max_loans").
		Values(user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Phone,
			user.IsActive, user.IsAdmin, user.MaxLoans).
		Suffix("returning id, created_at, updated_at")
	query, args, err := q.ToSql()
	if err != nil {
		return model.User{}, err
	}
	if err := r.db.QueryRowxContext(ctx, query, args...).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return model.User{}, mapErr(err)
	}
	return user, nil
}

func (r *repository) GetUser(ctx context.Context, id int64) (model.User, error) {
	return getUser(ctx, r.db, qb.Select(userColumns...).From(usersTableName).Where(sq.Eq{"id": id}))
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return getUser(ctx, r.db, qb.Select(userColumns...).From(usersTableName).Where(sq.Eq{"lower(email)": email}))
}

func getUser(ctx context.Context, db dbtx, q sq.SelectBuilder) (model.User, error) {
	var user model.User
	if err := get(ctx, db, &user, q); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *repository) ListUsers(ctx context.Context, page, size int) ([]model.User, error) {
	users := make([]model.User, 0)
	q := paginate(qb.Select(userColumns...).From(usersTableName).OrderBy("id"), page, size)
	if err := list(ctx, r.db, &users, q); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) UpdateUser(ctx context.Context, user model.User) (model.User, error) {
	n, err := exec(ctx, r.db, qb.Update(usersTableName).
		Set("is_active", user.IsActive).
		Set("is_admin", user.IsAdmin).
		Set("max_loans", user.MaxLoans).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": user.ID}))
	if err != nil {
		return model.User{}, err
	}
	if n == 0 {
		return model.User{}, errs.ErrNotFound
	}
	return r.GetUser(ctx, user.ID)
}
