package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fatture/internal/core"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository stores invoice aggregates in a local SQLite file. It is
// the default backend: zero external services, good enough for a
// single-instance deployment.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// foreign_keys is off by default in SQLite; the cascade from invoices
	// down to items depends on it.
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (invoice_number, creation_date, company_name, company_address, company_email, total_amount)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inv.Number, string(inv.CreationDate), inv.CompanyName, inv.CompanyAddress, inv.CompanyEmail, inv.Total.Cents)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return 0, fmt.Errorf("invoice %d: %w", inv.Number, core.ErrConflict)
		}
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	invoiceID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("invoice id: %w", err)
	}

	if err := insertOwnedGraphSQLite(ctx, tx, invoiceID, inv.Customers); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit invoice: %w", err)
	}

	slog.InfoContext(ctx, "Invoice persisted",
		"invoice_number", inv.Number,
		"customers", len(inv.Customers),
		"total_cents", inv.Total.Cents)

	return inv.Number, nil
}

func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, number int64, inv core.Invoice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var invoiceID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM invoices WHERE invoice_number = ?`, number).Scan(&invoiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("invoice %d: %w", number, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup invoice: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE invoices SET creation_date = ?, company_name = ?, company_address = ?, company_email = ?, total_amount = ?
		 WHERE id = ?`,
		string(inv.CreationDate), inv.CompanyName, inv.CompanyAddress, inv.CompanyEmail, inv.Total.Cents, invoiceID)
	if err != nil {
		return fmt.Errorf("update invoice header: %w", err)
	}

	// Full aggregate replacement: drop the owned graph and reinsert what
	// the caller submitted. Items go away via the customer cascade.
	if _, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE invoice_id = ?`, invoiceID); err != nil {
		return fmt.Errorf("clear customers: %w", err)
	}
	if err := insertOwnedGraphSQLite(ctx, tx, invoiceID, inv.Customers); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit invoice update: %w", err)
	}

	slog.InfoContext(ctx, "Invoice replaced",
		"invoice_number", number,
		"customers", len(inv.Customers),
		"total_cents", inv.Total.Cents)

	return nil
}

func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, number int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE invoice_number = ?`, number)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invoice %d: %w", number, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Invoice deleted", "invoice_number", number)
	return nil
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, number int64) (core.Invoice, error) {
	var (
		inv       core.Invoice
		invoiceID int64
		date      string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, invoice_number, creation_date, company_name, company_address, company_email, total_amount
		 FROM invoices WHERE invoice_number = ?`, number).
		Scan(&invoiceID, &inv.Number, &date, &inv.CompanyName, &inv.CompanyAddress, &inv.CompanyEmail, &inv.Total.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("invoice %d: %w", number, core.ErrNotFound)
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("select invoice: %w", err)
	}
	inv.CreationDate = core.Date(date)

	inv.Customers, err = r.loadCustomers(ctx, invoiceID)
	if err != nil {
		return core.Invoice{}, err
	}
	return inv, nil
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, invoice_number, creation_date, company_name, company_address, company_email, total_amount
		 FROM invoices ORDER BY creation_date DESC, invoice_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}
	defer rows.Close()

	type headerRow struct {
		id  int64
		inv core.Invoice
	}
	var headers []headerRow
	for rows.Next() {
		var (
			h    headerRow
			date string
		)
		if err := rows.Scan(&h.id, &h.inv.Number, &date, &h.inv.CompanyName, &h.inv.CompanyAddress, &h.inv.CompanyEmail, &h.inv.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		h.inv.CreationDate = core.Date(date)
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}

	invoices := make([]core.Invoice, 0, len(headers))
	for _, h := range headers {
		customers, err := r.loadCustomers(ctx, h.id)
		if err != nil {
			return nil, err
		}
		h.inv.Customers = customers
		invoices = append(invoices, h.inv)
	}
	return invoices, nil
}

func (r *SQLiteRepository) MaxInvoiceNumber(ctx context.Context) (int64, error) {
	var mx int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(invoice_number), 0) FROM invoices`).Scan(&mx)
	if err != nil {
		return 0, fmt.Errorf("max invoice number: %w", err)
	}
	return mx, nil
}

// loadCustomers fetches the owned graph of one invoice, preserving insertion
// order (row id order equals the order the aggregate was submitted in).
func (r *SQLiteRepository) loadCustomers(ctx context.Context, invoiceID int64) ([]core.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, address, email FROM customers WHERE invoice_id = ? ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	defer rows.Close()

	type customerRow struct {
		id   int64
		cust core.Customer
	}
	var customerRows []customerRow
	for rows.Next() {
		var cr customerRow
		if err := rows.Scan(&cr.id, &cr.cust.Name, &cr.cust.Address, &cr.cust.Email); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customerRows = append(customerRows, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}

	customers := make([]core.Customer, 0, len(customerRows))
	for _, cr := range customerRows {
		itemRows, err := r.db.QueryContext(ctx,
			`SELECT description, quantity, unit_price FROM items WHERE customer_id = ? ORDER BY id`, cr.id)
		if err != nil {
			return nil, fmt.Errorf("select items: %w", err)
		}
		for itemRows.Next() {
			var it core.Item
			if err := itemRows.Scan(&it.Description, &it.Quantity, &it.UnitPrice.Cents); err != nil {
				itemRows.Close()
				return nil, fmt.Errorf("scan item: %w", err)
			}
			cr.cust.Items = append(cr.cust.Items, it)
		}
		if err := itemRows.Err(); err != nil {
			itemRows.Close()
			return nil, fmt.Errorf("iterate items: %w", err)
		}
		itemRows.Close()
		customers = append(customers, cr.cust)
	}
	return customers, nil
}

func insertOwnedGraphSQLite(ctx context.Context, tx *sql.Tx, invoiceID int64, customers []core.Customer) error {
	for _, c := range customers {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO customers (invoice_id, name, address, email) VALUES (?, ?, ?, ?)`,
			invoiceID, c.Name, c.Address, c.Email)
		if err != nil {
			return fmt.Errorf("insert customer: %w", err)
		}
		customerID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("customer id: %w", err)
		}
		for _, it := range c.Items {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO items (customer_id, description, quantity, unit_price) VALUES (?, ?, ?, ?)`,
				customerID, it.Description, it.Quantity, it.UnitPrice.Cents)
			if err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
		}
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
