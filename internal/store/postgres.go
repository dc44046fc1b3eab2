package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/reorder-cli/internal/db"
	"github.com/sells-group/reorder-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., bulk catalog import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	product_id INT PRIMARY KEY,
	name       TEXT NOT NULL,
	price      DOUBLE PRECISION NOT NULL DEFAULT 0,
	stock      INT NOT NULL DEFAULT 0,
	brand      TEXT NOT NULL DEFAULT 'Generic',
	pack_size  TEXT NOT NULL DEFAULT '',
	image      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS customers (
	customer_id INT PRIMARY KEY,
	name        TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS orders (
	id          TEXT PRIMARY KEY,
	customer_id INT NOT NULL,
	order_date  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id   TEXT NOT NULL REFERENCES orders(id),
	product_id INT NOT NULL,
	quantity   INT NOT NULL
);

CREATE TABLE IF NOT EXISTS nudges (
	id          TEXT PRIMARY KEY,
	customer_id INT NOT NULL,
	product_id  INT NOT NULL,
	nudge_date  DATE NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id);
CREATE INDEX IF NOT EXISTS idx_nudges_pair_status ON nudges(customer_id, product_id, status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const productColumns = `product_id, name, price, stock, brand, pack_size, image`

func (s *PostgresStore) GetProduct(ctx context.Context, productID int) (*model.Product, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = $1`,
		productID,
	)
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Brand, &p.PackSize, &p.Image)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "product %d", productID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get product %d", productID)
	}
	return &p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY product_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	return scanProducts(rows)
}

func (s *PostgresStore) SearchProducts(ctx context.Context, keyword string) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE name ILIKE '%' || $1 || '%' ORDER BY product_id`,
		keyword,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: search products %q", keyword)
	}
	return scanProducts(rows)
}

func (s *PostgresStore) LowStockProducts(ctx context.Context, threshold int) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE stock < $1 ORDER BY stock, product_id`,
		threshold,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: low stock products")
	}
	return scanProducts(rows)
}

// UpsertProducts bulk-loads the catalog. An empty table takes the
// direct COPY path; otherwise rows go through the temp-table upsert so
// existing products are updated in place.
func (s *PostgresStore) UpsertProducts(ctx context.Context, products []model.Product) (int64, error) {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{p.ID, p.Name, p.Price, p.Stock, p.Brand, p.PackSize, p.Image})
	}
	columns := []string{"product_id", "name", "price", "stock", "brand", "pack_size", "image"}

	empty, err := s.tableEmpty(ctx, "products")
	if err != nil {
		return 0, err
	}
	if empty {
		n, err := db.CopyFrom(ctx, s.pool, "products", columns, rows)
		return n, eris.Wrap(err, "postgres: import products")
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "products",
		Columns:      columns,
		ConflictKeys: []string{"product_id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert products")
}

func (s *PostgresStore) GetCustomer(ctx context.Context, customerID int) (*model.Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT customer_id, name, phone FROM customers WHERE customer_id = $1`,
		customerID,
	)
	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "customer %d", customerID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get customer %d", customerID)
	}
	return &c, nil
}

func (s *PostgresStore) UpsertCustomers(ctx context.Context, customers []model.Customer) (int64, error) {
	rows := make([][]any, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []any{c.ID, c.Name, c.Phone})
	}
	columns := []string{"customer_id", "name", "phone"}

	empty, err := s.tableEmpty(ctx, "customers")
	if err != nil {
		return 0, err
	}
	if empty {
		n, err := db.CopyFrom(ctx, s.pool, "customers", columns, rows)
		return n, eris.Wrap(err, "postgres: import customers")
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "customers",
		Columns:      columns,
		ConflictKeys: []string{"customer_id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert customers")
}

// tableEmpty reports whether a table has no rows yet, which lets the
// first bulk import skip the temp-table upsert entirely.
func (s *PostgresStore) tableEmpty(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s)`, pgx.Identifier{table}.Sanitize()),
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: check %s empty", table)
	}
	return !exists, nil
}

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT customer_id, name, phone FROM customers ORDER BY customer_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list customers")
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone); err != nil {
			return nil, eris.Wrap(err, "postgres: scan customer")
		}
		customers = append(customers, c)
	}
	return customers, eris.Wrap(rows.Err(), "postgres: list customers iterate")
}

func (s *PostgresStore) PurchaseHistory(ctx context.Context, customerID int) ([]model.PurchaseEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT oi.product_id, o.order_date
		 FROM order_items oi
		 JOIN orders o ON oi.order_id = o.id
		 WHERE o.customer_id = $1
		 ORDER BY oi.product_id, o.order_date`,
		customerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: purchase history for customer %d", customerID)
	}
	defer rows.Close()

	var events []model.PurchaseEvent
	for rows.Next() {
		var ev model.PurchaseEvent
		if err := rows.Scan(&ev.ProductID, &ev.OrderDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan purchase event")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: purchase history iterate")
}

func (s *PostgresStore) FrequentProducts(ctx context.Context, customerID, limit int) ([]model.ProductFrequency, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT oi.product_id, p.name, COUNT(*) AS freq
		 FROM order_items oi
		 JOIN orders o ON oi.order_id = o.id
		 JOIN products p ON oi.product_id = p.product_id
		 WHERE o.customer_id = $1
		 GROUP BY oi.product_id, p.name
		 ORDER BY freq DESC, oi.product_id
		 LIMIT $2`,
		customerID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: frequent products for customer %d", customerID)
	}
	defer rows.Close()

	var freqs []model.ProductFrequency
	for rows.Next() {
		var f model.ProductFrequency
		if err := rows.Scan(&f.ProductID, &f.Name, &f.Orders); err != nil {
			return nil, eris.Wrap(err, "postgres: scan frequency")
		}
		freqs = append(freqs, f)
	}
	return freqs, eris.Wrap(rows.Err(), "postgres: frequent products iterate")
}

func (s *PostgresStore) PlaceOrder(ctx context.Context, customerID int, items []model.OrderItem) (*model.Order, error) {
	if len(items) == 0 {
		return nil, eris.New("postgres: place order: no items")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: place order: begin tx")
	}
	defer tx.Rollback(ctx)

	orderID := uuid.New().String()
	now := time.Now().UTC()

	if _, err := tx.Exec(ctx,
		`INSERT INTO orders (id, customer_id, order_date) VALUES ($1, $2, $3)`,
		orderID, customerID, now,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: insert order")
	}

	for _, item := range items {
		var stock int
		err := tx.QueryRow(ctx,
			`SELECT stock FROM products WHERE product_id = $1 FOR UPDATE`,
			item.ProductID,
		).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "product %d", item.ProductID)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: lock stock for product %d", item.ProductID)
		}
		if stock < item.Quantity {
			return nil, eris.Wrapf(ErrInsufficientStock, "product %d: %d in stock, %d requested",
				item.ProductID, stock, item.Quantity)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $1 WHERE product_id = $2`,
			item.Quantity, item.ProductID,
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: decrement stock for product %d", item.ProductID)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)`,
			orderID, item.ProductID, item.Quantity,
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: insert order item for product %d", item.ProductID)
		}

		// The order succeeded for this product, so any pending nudge
		// for the pair is satisfied, whatever path placed the order.
		if _, err := tx.Exec(ctx,
			`UPDATE nudges SET status = 'resolved'
			 WHERE customer_id = $1 AND product_id = $2 AND status = 'pending'`,
			customerID, item.ProductID,
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: resolve nudge for product %d", item.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: place order: commit")
	}

	return &model.Order{
		ID:         orderID,
		CustomerID: customerID,
		OrderDate:  now,
		Items:      items,
	}, nil
}

// InsertPending records a fresh pending nudge for the candidate's
// (customer, product) pair. Any older pending nudge for the pair is
// superseded (deleted) in the same transaction, so at most one
// pending nudge exists per pair and resolved counts stay honest.
func (s *PostgresStore) InsertPending(ctx context.Context, candidate model.NudgeCandidate) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert pending: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM nudges WHERE customer_id = $1 AND product_id = $2 AND status = 'pending'`,
		candidate.CustomerID, candidate.ProductID,
	); err != nil {
		return "", eris.Wrap(err, "postgres: supersede pending nudge")
	}

	id := uuid.New().String()
	if _, err := tx.Exec(ctx,
		`INSERT INTO nudges (id, customer_id, product_id, nudge_date, confidence, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, candidate.CustomerID, candidate.ProductID, candidate.NextExpected,
		candidate.Confidence, string(model.NudgeStatusPending), time.Now().UTC(),
	); err != nil {
		return "", eris.Wrap(err, "postgres: insert pending nudge")
	}

	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: insert pending: commit")
	}
	return id, nil
}

func (s *PostgresStore) ResolvePending(ctx context.Context, customerID, productID int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE nudges SET status = 'resolved'
		 WHERE customer_id = $1 AND product_id = $2 AND status = 'pending'`,
		customerID, productID,
	)
	return eris.Wrapf(err, "postgres: resolve pending nudge for customer %d product %d", customerID, productID)
}

func (s *PostgresStore) ListPending(ctx context.Context, customerID int) ([]model.Nudge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, customer_id, product_id, nudge_date, confidence, status, created_at
		 FROM nudges WHERE customer_id = $1 AND status = 'pending'
		 ORDER BY nudge_date, product_id`,
		customerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list pending nudges for customer %d", customerID)
	}
	defer rows.Close()

	var nudges []model.Nudge
	for rows.Next() {
		var n model.Nudge
		var status string
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.ProductID, &n.NudgeDate, &n.Confidence, &status, &n.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan nudge")
		}
		n.Status = model.NudgeStatus(status)
		nudges = append(nudges, n)
	}
	return nudges, eris.Wrap(rows.Err(), "postgres: list pending iterate")
}

func (s *PostgresStore) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.customer_id, c.name,
		        COUNT(n.id) AS total,
		        SUM(CASE WHEN n.status = 'resolved' THEN 1 ELSE 0 END) AS resolved
		 FROM customers c
		 JOIN nudges n ON n.customer_id = c.customer_id
		 GROUP BY c.customer_id, c.name
		 HAVING COUNT(n.id) > 0
		 ORDER BY SUM(CASE WHEN n.status = 'resolved' THEN 1 ELSE 0 END)::float / COUNT(n.id) DESC,
		          SUM(CASE WHEN n.status = 'resolved' THEN 1 ELSE 0 END) DESC,
		          c.customer_id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leaderboard")
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.CustomerID, &e.Name, &e.TotalNudges, &e.ResolvedNudges); err != nil {
			return nil, eris.Wrap(err, "postgres: scan leaderboard entry")
		}
		e.Consistency = consistency(e.ResolvedNudges, e.TotalNudges)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: leaderboard iterate")
}

func scanProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Brand, &p.PackSize, &p.Image); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: products iterate")
}
