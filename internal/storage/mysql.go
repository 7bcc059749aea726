package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmodel/portal/internal/models"
)

// MySQLStore persists submission metadata in the products and models tables
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens the database and ensures the schema exists
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	store := &MySQLStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id             CHAR(36) PRIMARY KEY,
			token          CHAR(6) NOT NULL,
			product_name   VARCHAR(255) NOT NULL,
			category       VARCHAR(32) NOT NULL,
			seller_name    VARCHAR(255) NOT NULL,
			seller_contact VARCHAR(255) NOT NULL,
			seller_email   VARCHAR(255) NOT NULL,
			image_url      TEXT NOT NULL,
			status         VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at     DATETIME(6) NOT NULL,
			INDEX idx_products_seller_email (seller_email),
			INDEX idx_products_created_at (created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS models (
			id            CHAR(36) PRIMARY KEY,
			seller_email  VARCHAR(255) NOT NULL,
			model_url     TEXT NOT NULL,
			file_name     VARCHAR(255) NOT NULL,
			original_name VARCHAR(255) NOT NULL,
			file_size     BIGINT NOT NULL,
			status        VARCHAR(16) NOT NULL DEFAULT 'pending',
			upload_date   DATETIME(6) NOT NULL,
			INDEX idx_models_seller_email (seller_email),
			INDEX idx_models_upload_date (upload_date)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// CreateProduct inserts a product record. The id and the creation timestamp
// are assigned here; the timestamp comes from the database clock, not the
// caller's.
func (s *MySQLStore) CreateProduct(ctx context.Context, p *models.Product) error {
	ctx, span := tracer.Start(ctx, "mysql.create_product",
		trace.WithAttributes(
			attribute.String("token", p.Token),
			attribute.String("seller_email", p.SellerEmail),
		),
	)
	defer span.End()

	p.ID = uuid.New().String()

	query := `INSERT INTO products
			  (id, token, product_name, category, seller_name, seller_contact, seller_email, image_url, status, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(6))`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Token, p.ProductName, p.Category, p.SellerName, p.SellerContact, p.SellerEmail, p.ImageURL, p.Status)
	if err != nil {
		span.RecordError(err)
		return &RepositoryError{Op: "create product", Err: err}
	}

	// Read back the server-assigned timestamp
	row := s.db.QueryRowContext(ctx, `SELECT created_at FROM products WHERE id = ?`, p.ID)
	if err := row.Scan(&p.CreatedAt); err != nil {
		span.RecordError(err)
		return &RepositoryError{Op: "create product", Err: err}
	}

	span.SetAttributes(attribute.String("product_id", p.ID))
	return nil
}

// CreateModel inserts a model record, assigning id and upload timestamp.
func (s *MySQLStore) CreateModel(ctx context.Context, m *models.Model) error {
	ctx, span := tracer.Start(ctx, "mysql.create_model",
		trace.WithAttributes(
			attribute.String("seller_email", m.SellerEmail),
			attribute.String("file_name", m.FileName),
			attribute.Int64("file_size", m.FileSize),
		),
	)
	defer span.End()

	m.ID = uuid.New().String()

	query := `INSERT INTO models
			  (id, seller_email, model_url, file_name, original_name, file_size, status, upload_date)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NOW(6))`

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.SellerEmail, m.ModelURL, m.FileName, m.OriginalName, m.FileSize, m.Status)
	if err != nil {
		span.RecordError(err)
		return &RepositoryError{Op: "create model", Err: err}
	}

	row := s.db.QueryRowContext(ctx, `SELECT upload_date FROM models WHERE id = ?`, m.ID)
	if err := row.Scan(&m.UploadDate); err != nil {
		span.RecordError(err)
		return &RepositoryError{Op: "create model", Err: err}
	}

	span.SetAttributes(attribute.String("model_id", m.ID))
	return nil
}

// ListProducts returns product records ordered newest first. A non-empty
// sellerEmail restricts the result to exact, case-sensitive matches.
func (s *MySQLStore) ListProducts(ctx context.Context, sellerEmail string) ([]*models.Product, error) {
	ctx, span := tracer.Start(ctx, "mysql.list_products",
		trace.WithAttributes(
			attribute.Bool("owner_filtered", sellerEmail != ""),
		),
	)
	defer span.End()

	query := `SELECT id, token, product_name, category, seller_name, seller_contact, seller_email, image_url, status, created_at
			  FROM products`
	var args []any
	if sellerEmail != "" {
		// BINARY forces a case-sensitive comparison regardless of collation
		query += ` WHERE seller_email = BINARY ?`
		args = append(args, sellerEmail)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, &RepositoryError{Op: "list products", Err: err}
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		err := rows.Scan(
			&p.ID, &p.Token, &p.ProductName, &p.Category, &p.SellerName,
			&p.SellerContact, &p.SellerEmail, &p.ImageURL, &p.Status, &p.CreatedAt,
		)
		if err != nil {
			span.RecordError(err)
			return nil, &RepositoryError{Op: "list products", Err: err}
		}
		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, &RepositoryError{Op: "list products", Err: err}
	}

	span.SetAttributes(attribute.Int("record_count", len(products)))
	return products, nil
}

// ListModels returns model records ordered newest first, optionally
// restricted to one seller.
func (s *MySQLStore) ListModels(ctx context.Context, sellerEmail string) ([]*models.Model, error) {
	ctx, span := tracer.Start(ctx, "mysql.list_models",
		trace.WithAttributes(
			attribute.Bool("owner_filtered", sellerEmail != ""),
		),
	)
	defer span.End()

	query := `SELECT id, seller_email, model_url, file_name, original_name, file_size, status, upload_date
			  FROM models`
	var args []any
	if sellerEmail != "" {
		query += ` WHERE seller_email = BINARY ?`
		args = append(args, sellerEmail)
	}
	query += ` ORDER BY upload_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, &RepositoryError{Op: "list models", Err: err}
	}
	defer rows.Close()

	var list []*models.Model
	for rows.Next() {
		var m models.Model
		err := rows.Scan(
			&m.ID, &m.SellerEmail, &m.ModelURL, &m.FileName,
			&m.OriginalName, &m.FileSize, &m.Status, &m.UploadDate,
		)
		if err != nil {
			span.RecordError(err)
			return nil, &RepositoryError{Op: "list models", Err: err}
		}
		list = append(list, &m)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, &RepositoryError{Op: "list models", Err: err}
	}

	span.SetAttributes(attribute.Int("record_count", len(list)))
	return list, nil
}

// UpdateProductStatus sets the status of one product record.
func (s *MySQLStore) UpdateProductStatus(ctx context.Context, id, status string) error {
	return s.updateStatus(ctx, "products", id, status)
}

// UpdateModelStatus sets the status of one model record.
func (s *MySQLStore) UpdateModelStatus(ctx context.Context, id, status string) error {
	return s.updateStatus(ctx, "models", id, status)
}

func (s *MySQLStore) updateStatus(ctx context.Context, table, id, status string) error {
	ctx, span := tracer.Start(ctx, "mysql.update_status",
		trace.WithAttributes(
			attribute.String("collection", table),
			attribute.String("record_id", id),
			attribute.String("status", status),
		),
	)
	defer span.End()

	query := fmt.Sprintf(`UPDATE %s SET status = ? WHERE id = ?`, table)
	res, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		span.RecordError(err)
		return &RepositoryError{Op: "update status", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return &RepositoryError{Op: "update status", Err: err}
	}
	if affected == 0 {
		err := fmt.Errorf("no %s record with id %s", table, id)
		span.RecordError(err)
		return &RepositoryError{Op: "update status", Err: err}
	}

	return nil
}
