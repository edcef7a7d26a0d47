package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLite implements port.TransactionLedger on a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the ledger database at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	l := &SQLite{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return l, nil
}

func (l *SQLite) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL DEFAULT '',
		amount REAL NOT NULL,
		payment_method TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		status TEXT NOT NULL,
		pix_code TEXT NOT NULL DEFAULT '',
		qr_code_url TEXT NOT NULL DEFAULT '',
		barcode TEXT NOT NULL DEFAULT '',
		boleto_url TEXT NOT NULL DEFAULT '',
		refunded_amount REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
	`
	if _, err := l.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (l *SQLite) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Close releases the database handle.
func (l *SQLite) Close() error {
	return l.db.Close()
}

// Save inserts a new transaction.
func (l *SQLite) Save(ctx context.Context, tx *domain.Transaction) error {
	query := `
	INSERT INTO transactions (id, plan_id, amount, payment_method, customer_email, status,
		pix_code, qr_code_url, barcode, boleto_url, refunded_amount, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := l.db.ExecContext(ctx, query,
		tx.ID, tx.PlanID, tx.Amount, string(tx.PaymentMethod), tx.CustomerEmail, string(tx.Status),
		tx.PixCode, tx.QRCodeURL, tx.Barcode, tx.BoletoURL, tx.RefundedAmount,
		tx.CreatedAt.UnixNano(), tx.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Get loads a transaction by id.
func (l *SQLite) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `
		SELECT id, plan_id, amount, payment_method, customer_email, status,
		       pix_code, qr_code_url, barcode, boleto_url, refunded_amount, created_at, updated_at
		FROM transactions WHERE id = ?`

	var (
		tx                   domain.Transaction
		method, status       string
		createdAt, updatedAt int64
	)
	err := l.db.QueryRowContext(ctx, query, id).Scan(
		&tx.ID, &tx.PlanID, &tx.Amount, &method, &tx.CustomerEmail, &status,
		&tx.PixCode, &tx.QRCodeURL, &tx.Barcode, &tx.BoletoURL, &tx.RefundedAmount,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction row: %w", err)
	}

	tx.PaymentMethod = domain.PaymentMethod(method)
	tx.Status = domain.TransactionStatus(status)
	tx.CreatedAt = time.Unix(0, createdAt).UTC()
	tx.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &tx, nil
}

// Update persists status and refund changes of an existing transaction.
func (l *SQLite) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
	UPDATE transactions
	SET status = ?, refunded_amount = ?, updated_at = ?
	WHERE id = ?`

	res, err := l.db.ExecContext(ctx, query,
		string(tx.Status), tx.RefundedAmount, tx.UpdatedAt.UnixNano(), tx.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: tx.ID}
	}
	return nil
}

// List returns the most recent transactions, newest first.
func (l *SQLite) List(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, plan_id, amount, payment_method, customer_email, status,
		       pix_code, qr_code_url, barcode, boleto_url, refunded_amount, created_at, updated_at
		FROM transactions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			tx                   domain.Transaction
			method, status       string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(
			&tx.ID, &tx.PlanID, &tx.Amount, &method, &tx.CustomerEmail, &status,
			&tx.PixCode, &tx.QRCodeURL, &tx.Barcode, &tx.BoletoURL, &tx.RefundedAmount,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		tx.PaymentMethod = domain.PaymentMethod(method)
		tx.Status = domain.TransactionStatus(status)
		tx.CreatedAt = time.Unix(0, createdAt).UTC()
		tx.UpdatedAt = time.Unix(0, updatedAt).UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}
