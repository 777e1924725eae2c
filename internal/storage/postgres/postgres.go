package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"face_verification/internal/config"
	"face_verification/internal/models"
	"face_verification/internal/storage"
	"face_verification/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg config.Postgres) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (id, email, username, password_hash, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5);
	`

	_, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.Username, string(user.PassHash), user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UserByUsername(ctx context.Context, username string) (models.User, error) {
	const op = "storage.postgres.UserByUsername"

	query := `
		SELECT id::text, email, username, password_hash, created_at
		FROM users
		WHERE username = $1;
	`

	var (
		u    models.User
		hash string
	)

	err := r.pool.QueryRow(ctx, query, username).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&hash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	u.PassHash = []byte(hash)

	return u, nil
}

func (r *PostgresRepo) SaveVerification(ctx context.Context, rec models.VerificationRecord) error {
	const op = "storage.postgres.SaveVerification"

	query := `
		INSERT INTO verification_history
			(id, user_id, image1_filename, image2_filename, result, confidence_score, created_at)
		VALUES ($1, $2::uuid, $3, $4, $5, $6, $7);
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Image1Ref,
		rec.Image2Ref,
		string(rec.Result),
		rec.ConfidenceScore,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Verifications(ctx context.Context, userID string, limit int) ([]models.VerificationRecord, error) {
	const op = "storage.postgres.Verifications"

	query := `
		SELECT id, user_id::text, image1_filename, image2_filename, result, confidence_score, created_at
		FROM verification_history
		WHERE user_id = $1::uuid
		ORDER BY created_at DESC, id DESC
		LIMIT $2;
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	recs := make([]models.VerificationRecord, 0)

	for rows.Next() {
		var (
			rec    models.VerificationRecord
			result string
		)

		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Image1Ref,
			&rec.Image2Ref,
			&result,
			&rec.ConfidenceScore,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		rec.Result = models.Result(result)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return recs, nil
}

func (r *PostgresRepo) DeleteVerifications(ctx context.Context, userID string) (int64, error) {
	const op = "storage.postgres.DeleteVerifications"

	query := `DELETE FROM verification_history WHERE user_id = $1::uuid`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// dsn builds the connection string from the postgres config section.
func dsn(cfg config.Postgres) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)
}
