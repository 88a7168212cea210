package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplefiles.Repository using PostgreSQL
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

var _ simplefiles.Repository = (*Repository)(nil)

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// Connect opens a pool for dsn and verifies it
func Connect(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, simplefiles.Unavailable("postgres connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, simplefiles.Unavailable("postgres ping", err)
	}
	return NewWithPool(pool), nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return simplefiles.ErrConflict
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return simplefiles.Unavailable(operation, err)
}

// User operations

func (r *Repository) InsertUser(ctx context.Context, user *simplefiles.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return r.handlePostgresError("insert user", err)
	}
	return nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*simplefiles.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*simplefiles.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) scanUser(row pgx.Row) (*simplefiles.User, error) {
	var user simplefiles.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, simplefiles.ErrNotFound
	} else if err != nil {
		return nil, r.handlePostgresError("find user", err)
	}
	return &user, nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, r.handlePostgresError("count users", err)
	}
	return n, nil
}

// Object operations

const objectColumns = `id, owner_id, name, kind, parent_id, is_public, COALESCE(content_ref, ''), created_at`

func (r *Repository) InsertObject(ctx context.Context, object *simplefiles.Object) error {
	query := `
		INSERT INTO files (id, owner_id, name, kind, parent_id, is_public, content_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`

	_, err := r.db.Exec(ctx, query,
		object.ID, object.OwnerID, object.Name, string(object.Kind),
		object.ParentID, object.IsPublic, object.ContentRef, object.CreatedAt)
	if err != nil {
		return r.handlePostgresError("insert object", err)
	}
	return nil
}

// accessClause returns the WHERE clause enforcing q's access rule, with
// $1 bound to the object id and $2 to the requester.
func accessClause(q simplefiles.ObjectQuery) string {
	if q.Access == simplefiles.AccessViewer {
		return `id = $1 AND (is_public OR owner_id = $2)`
	}
	return `id = $1 AND owner_id = $2`
}

func (r *Repository) FindObject(ctx context.Context, q simplefiles.ObjectQuery) (*simplefiles.Object, error) {
	if q.Access == simplefiles.AccessOwner && q.RequesterID == uuid.Nil {
		return nil, simplefiles.ErrNotFound
	}

	query := `SELECT ` + objectColumns + ` FROM files WHERE ` + accessClause(q)
	return r.scanObject("find object", r.db.QueryRow(ctx, query, q.ID, q.RequesterID))
}

func (r *Repository) UpdateObjectVisibility(ctx context.Context, q simplefiles.ObjectQuery, isPublic bool) (*simplefiles.Object, error) {
	if q.Access == simplefiles.AccessOwner && q.RequesterID == uuid.Nil {
		return nil, simplefiles.ErrNotFound
	}

	query := `UPDATE files SET is_public = $3 WHERE ` + accessClause(q) + ` RETURNING ` + objectColumns
	return r.scanObject("update visibility", r.db.QueryRow(ctx, query, q.ID, q.RequesterID, isPublic))
}

func (r *Repository) ListObjects(ctx context.Context, ownerID, parentID uuid.UUID, offset, limit int) ([]*simplefiles.Object, error) {
	query := `
		SELECT ` + objectColumns + `
		FROM files WHERE owner_id = $1 AND parent_id = $2
		ORDER BY seq
		OFFSET $3 LIMIT $4`

	return r.queryObjects(ctx, "list objects", limit, query, ownerID, parentID, offset, limit)
}

func (r *Repository) ScanObjects(ctx context.Context, kind simplefiles.Kind, offset, limit int) ([]*simplefiles.Object, error) {
	query := `
		SELECT ` + objectColumns + `
		FROM files WHERE kind = $1
		ORDER BY seq
		OFFSET $2 LIMIT $3`

	return r.queryObjects(ctx, "scan objects", limit, query, string(kind), offset, limit)
}

func (r *Repository) queryObjects(ctx context.Context, operation string, limit int, query string, args ...interface{}) ([]*simplefiles.Object, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	objects := make([]*simplefiles.Object, 0, limit)
	for rows.Next() {
		object, err := r.scanObject(operation, rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, object)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	return objects, nil
}

func (r *Repository) scanObject(operation string, row pgx.Row) (*simplefiles.Object, error) {
	var object simplefiles.Object
	var kind string
	err := row.Scan(&object.ID, &object.OwnerID, &object.Name, &kind,
		&object.ParentID, &object.IsPublic, &object.ContentRef, &object.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, simplefiles.ErrNotFound
	} else if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	object.Kind = simplefiles.Kind(kind)
	return &object, nil
}

func (r *Repository) CountObjects(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, r.handlePostgresError("count objects", err)
	}
	return n, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if r.pool != nil {
		return r.pool.Ping(ctx)
	}
	_, err := r.db.Exec(ctx, `SELECT 1`)
	return err
}

func (r *Repository) Close(ctx context.Context) error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}
