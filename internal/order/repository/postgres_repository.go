package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ahmedbennaya/fini-storefront/internal/order/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

// NewRepositoryWithDB wraps an existing connection, used by integration tests.
func NewRepositoryWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying pool so sibling repositories (addresses)
// can share the same connection.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	var billingJSON []byte
	if order.BillingAddress != nil {
		billingJSON, err = json.Marshal(order.BillingAddress)
		if err != nil {
			return fmt.Errorf("failed to marshal billing address: %w", err)
		}
	}

	query := `INSERT INTO orders (id, user_id, status, total, currency, shipping_method, shipping_address, billing_address, payment_intent_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.Total,
		order.Currency,
		order.ShippingMethod,
		shippingJSON,
		billingJSON,
		order.PaymentIntentID)

	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (r *Repository) CreateOrderLines(ctx context.Context, orderID uuid.UUID, lines []domain.OrderLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order lines tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO order_lines (order_id, product_id, name, quantity, unit_price)
	          VALUES ($1, $2, $3, $4, $5)`

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, query,
			orderID,
			line.ProductID,
			line.Name,
			line.Quantity,
			line.UnitPriceAtPurchase,
		); err != nil {
			return fmt.Errorf("insert order line for product %d: %w", line.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order lines: %w", err)
	}
	return nil
}

func (r *Repository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete order tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete order: %w", err)
	}
	return nil
}

func (r *Repository) SetPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID string) error {
	query := `UPDATE orders SET payment_intent_id = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, orderID, intentID)
	if err != nil {
		return fmt.Errorf("set payment intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkOrderPlaced transitions a pending order to processing and inserts
// the order-placed outbox event atomically. Everything the downstream
// consumer needs is denormalised into the payload.
func (r *Repository) MarkOrderPlaced(ctx context.Context, orderID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark placed tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		orderID, domain.StatusProcessing, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrIllegalTransition
	}

	order, err := getOrderByIDTx(ctx, tx, orderID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":  order.ID,
		"user_id":   order.UserID,
		"total":     order.Total,
		"currency":  order.Currency,
		"lines":     order.Lines,
		"placed_at": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order event payload: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_events (id, order_id, payload, processed, created_at) VALUES ($1, $2, $3, FALSE, NOW())`,
		uuid.New(), orderID, payload); err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark placed: %w", err)
	}
	return nil
}

func (r *Repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to domain.Status) error {
	if !domain.CanTransitionTo(from, to) {
		return ErrIllegalTransition
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		orderID, to, from)
	if err != nil {
		return fmt.Errorf("transition order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrIllegalTransition
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *Repository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return getOrderByIDTx(ctx, r.db, orderID)
}

func getOrderByIDTx(ctx context.Context, q querier, orderID uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, user_id, status, total, currency, shipping_method, shipping_address, billing_address, payment_intent_id, created_at, updated_at
	          FROM orders WHERE id = $1`

	order, err := scanOrder(q.QueryRowContext(ctx, query, orderID))
	if err != nil {
		return nil, err
	}

	lines, err := getOrderLines(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

func getOrderLines(ctx context.Context, q querier, orderID uuid.UUID) ([]domain.OrderLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT order_id, product_id, name, quantity, unit_price FROM order_lines WHERE order_id = $1 ORDER BY product_id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.OrderID, &line.ProductID, &line.Name, &line.Quantity, &line.UnitPriceAtPurchase); err != nil {
			return nil, fmt.Errorf("scan order line row: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var shippingJSON []byte
	var billingJSON []byte
	var intentID sql.NullString

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.Total,
		&order.Currency,
		&order.ShippingMethod,
		&shippingJSON,
		&billingJSON,
		&intentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order row: %w", err)
	}

	if err := json.Unmarshal(shippingJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if len(billingJSON) > 0 {
		var billing domain.Address
		if err := json.Unmarshal(billingJSON, &billing); err != nil {
			return nil, fmt.Errorf("unmarshal billing address: %w", err)
		}
		order.BillingAddress = &billing
	}
	if intentID.Valid {
		order.PaymentIntentID = &intentID.String
	}

	return &order, nil
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT id, user_id, status, total, currency, shipping_method, shipping_address, billing_address, payment_intent_id, created_at, updated_at
	          FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, order := range orders {
		lines, err := getOrderLines(ctx, r.db, order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
	}

	return orders, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, payload, processed, created_at FROM order_events WHERE processed = FALSE ORDER BY created_at LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OrderEvent
	for rows.Next() {
		var event domain.OrderEvent
		if err := rows.Scan(&event.ID, &event.OrderID, &event.Payload, &event.Processed, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order event row: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventProcessed(ctx context.Context, eventID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE order_events SET processed = TRUE WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order event %s not found", eventID)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
