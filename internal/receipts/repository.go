package receipts

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrReceiptNotFound = errors.New("receipt not found")

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Receipt is the local record of an order the upstream accepted.
type Receipt struct {
	ID         string               `json:"id"`
	BasketID   string               `json:"basket_id"`
	Total      float64              `json:"total"`
	LocalTotal float64              `json:"local_total"`
	Items      []domain.Item        `json:"items"`
	Payment    domain.PaymentMethod `json:"payment"`
	Address    string               `json:"address"`
	Email      string               `json:"email"`
	Phone      string               `json:"phone"`
	CreatedAt  time.Time            `json:"created_at"`
}

type RepoInterface interface {
	Save(ctx context.Context, r *Receipt) error
	Get(ctx context.Context, id string) (*Receipt, error)
	ListByBasket(ctx context.Context, basketID string) ([]*Receipt, error)
	Close() error
	RunMigrations() error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Save(ctx context.Context, rec *Receipt) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt items: %w", err)
	}

	query := `
		INSERT INTO receipts (id, basket_id, total, local_total, items, payment, address, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.BasketID,
		rec.Total,
		rec.LocalTotal,
		string(items),
		string(rec.Payment),
		rec.Address,
		rec.Email,
		rec.Phone,
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Receipt, error) {
	query := `
		SELECT id, basket_id, total, local_total, items, payment, address, email, phone, created_at
		FROM receipts
		WHERE id = $1
	`
	rec, err := scanReceipt(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Repository) ListByBasket(ctx context.Context, basketID string) ([]*Receipt, error) {
	query := `
		SELECT id, basket_id, total, local_total, items, payment, address, email, phone, created_at
		FROM receipts
		WHERE basket_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, basketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return receipts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReceipt(s scanner) (*Receipt, error) {
	var (
		rec       Receipt
		items     string
		payment   string
		createdAt string
	)
	err := s.Scan(
		&rec.ID,
		&rec.BasketID,
		&rec.Total,
		&rec.LocalTotal,
		&items,
		&payment,
		&rec.Address,
		&rec.Email,
		&rec.Phone,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan receipt: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &rec.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt items: %w", err)
	}
	rec.Payment = domain.PaymentMethod(payment)
	rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt time: %w", err)
	}
	return &rec, nil
}
