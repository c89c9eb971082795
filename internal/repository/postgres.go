// Package repository содержит реализации хранилища магазинов, товаров и заказов.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/nearbymart/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil || !isRetryable(err) || i == len(retryDelays) {
			return err
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// CreateStore сохраняет магазин. У стороны может быть только один магазин.
func (r *PostgresRepository) CreateStore(ctx context.Context, s *model.Store) error {
	lat, lon := splitLocation(s.Location)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stores (id, owner_id, name, address, latitude, longitude, categories, rating, review_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.OwnerID, s.Name, s.Address, lat, lon, nonNil(s.Categories), s.Rating, s.ReviewCount, s.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: owner %s", model.ErrStoreExists, s.OwnerID)
		}
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

const storeColumns = `id, owner_id, name, address, latitude, longitude, categories, rating, review_count, created_at`

// GetStore возвращает магазин по идентификатору.
func (r *PostgresRepository) GetStore(ctx context.Context, id string) (*model.Store, error) {
	return r.getStore(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
}

// GetStoreByOwner возвращает магазин стороны-владельца.
func (r *PostgresRepository) GetStoreByOwner(ctx context.Context, ownerID string) (*model.Store, error) {
	return r.getStore(ctx, `SELECT `+storeColumns+` FROM stores WHERE owner_id = $1`, ownerID)
}

func (r *PostgresRepository) getStore(ctx context.Context, query, arg string) (*model.Store, error) {
	var s *model.Store
	err := r.withRetry(ctx, func() error {
		var err error
		s, err = scanStore(r.pool.QueryRow(ctx, query, arg))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	return s, nil
}

func scanStore(row pgx.Row) (*model.Store, error) {
	var (
		s        model.Store
		lat, lon *float64
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &lat, &lon, &s.Categories, &s.Rating, &s.ReviewCount, &s.CreatedAt); err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		s.Location = &model.Coordinate{Latitude: *lat, Longitude: *lon}
	}
	return &s, nil
}

// UpdateStore сохраняет редактируемые поля магазина: адрес, категории и координаты.
func (r *PostgresRepository) UpdateStore(ctx context.Context, s *model.Store) error {
	lat, lon := splitLocation(s.Location)
	tag, err := r.pool.Exec(ctx,
		`UPDATE stores SET address = $2, categories = $3, latitude = $4, longitude = $5 WHERE id = $1`,
		s.ID, s.Address, nonNil(s.Categories), lat, lon,
	)
	if err != nil {
		return fmt.Errorf("update store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateStoreRating обновляет агрегированный рейтинг магазина.
func (r *PostgresRepository) UpdateStoreRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stores SET rating = $2, review_count = $3 WHERE id = $1`,
		id, rating, reviewCount,
	)
	if err != nil {
		return fmt.Errorf("update store rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListStoreIDs возвращает идентификаторы всех магазинов.
func (r *PostgresRepository) ListStoreIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM stores ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select stores: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect stores: %w", err)
	}
	return ids, nil
}

func splitLocation(c *model.Coordinate) (*float64, *float64) {
	if c == nil {
		return nil, nil
	}
	lat, lon := c.Latitude, c.Longitude
	return &lat, &lon
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const productColumns = `id, seller_id, store_id, category, title, description, price, min_quantity, max_quantity,
	pickup_available, delivery_available, active, created_at`

// CreateProduct сохраняет новый товар.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.SellerID, p.StoreID, p.Category, p.Title, p.Description, toCents(p.Price),
		p.MinQuantity, p.MaxQuantity, p.PickupAvailable, p.DeliveryAvailable, p.Active, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetProduct возвращает товар по идентификатору, в том числе неактивный.
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p *model.Product
	err := r.withRetry(ctx, func() error {
		var err error
		p, err = scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// UpdateProduct сохраняет изменения товара, включая признак активности.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET category = $2, title = $3, description = $4, price = $5, min_quantity = $6, max_quantity = $7,
		     pickup_available = $8, delivery_available = $9, active = $10
		 WHERE id = $1`,
		p.ID, p.Category, p.Title, p.Description, toCents(p.Price), p.MinQuantity, p.MaxQuantity,
		p.PickupAvailable, p.DeliveryAvailable, p.Active,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListActiveProducts возвращает активные товары в порядке создания.
func (r *PostgresRepository) ListActiveProducts(ctx context.Context, q model.ProductQuery) ([]model.Product, error) {
	pattern := ""
	if q.SearchTerm != "" {
		pattern = "%" + escapeLike(q.SearchTerm) + "%"
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE active
		   AND ($1 = '' OR title ILIKE $1 OR description ILIKE $1)
		   AND ($2 = '' OR seller_id <> $2)
		   AND ($3 = '' OR seller_id = $3)
		 ORDER BY created_at, id`,
		pattern, q.ExcludeSellerID, q.SellerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	return collectProducts(rows)
}

// ListProductsBySeller возвращает все товары продавца, включая неактивные.
func (r *PostgresRepository) ListProductsBySeller(ctx context.Context, sellerID string) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE seller_id = $1 ORDER BY created_at DESC, id`,
		sellerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select seller products: %w", err)
	}
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p          model.Product
		priceCents int64
	)
	err := row.Scan(&p.ID, &p.SellerID, &p.StoreID, &p.Category, &p.Title, &p.Description, &priceCents,
		&p.MinQuantity, &p.MaxQuantity, &p.PickupAvailable, &p.DeliveryAvailable, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = fromCents(priceCents)
	return &p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

const orderColumns = `id, buyer_id, seller_id, product_id, quantity, unit_price, delivery_method, delivery_fee,
	total_price, scheduled_date, scheduled_time, buyer_address, status, created_at, accepted_at, completed_at,
	cancelled_at, expires_at, cancellation_charge, version`

// CreateOrder сохраняет новый заказ.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		o.ID, o.BuyerID, o.SellerID, o.ProductID, o.Quantity, toCents(o.UnitPrice), string(o.DeliveryMethod),
		toCents(o.DeliveryFee), toCents(o.TotalPrice), o.Schedule.Date, o.Schedule.Time, o.BuyerAddress,
		string(o.Status), o.CreatedAt, o.AcceptedAt, o.CompletedAt, o.CancelledAt, o.ExpiresAt,
		toCents(o.CancellationCharge), o.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("insert order: product %s: %w", o.ProductID, model.ErrNotFound)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var o *model.Order
	err := r.withRetry(ctx, func() error {
		var err error
		o, err = scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders возвращает заказы стороны в указанной роли, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context, partyID string, role model.Role) ([]model.Order, error) {
	column := "buyer_id"
	if role == model.RoleSeller {
		column = "seller_id"
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+column+` = $1 ORDER BY created_at DESC, id`,
		partyID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return collectOrders(rows)
}

// ListOverdueOrders возвращает ожидающие заказы, срок подтверждения которых истёк к now.
func (r *PostgresRepository) ListOverdueOrders(ctx context.Context, now time.Time, limit int) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE status = $1 AND expires_at < $2
		 ORDER BY expires_at
		 LIMIT $3`,
		string(model.OrderStatusPending), now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select overdue orders: %w", err)
	}
	return collectOrders(rows)
}

// UpdateOrder сохраняет статус заказа, если версия в хранилище совпадает с o.Version.
// При успехе версия увеличивается. Метки переходов записываются только один раз.
func (r *PostgresRepository) UpdateOrder(ctx context.Context, o *model.Order) error {
	var tag pgconn.CommandTag
	err := r.withRetry(ctx, func() error {
		var err error
		tag, err = r.pool.Exec(ctx,
			`UPDATE orders
			 SET status = $3,
			     accepted_at = COALESCE(accepted_at, $4),
			     completed_at = COALESCE(completed_at, $5),
			     cancelled_at = COALESCE(cancelled_at, $6),
			     cancellation_charge = $7,
			     version = version + 1
			 WHERE id = $1 AND version = $2`,
			o.ID, o.Version, string(o.Status), o.AcceptedAt, o.CompletedAt, o.CancelledAt,
			toCents(o.CancellationCharge),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return model.ErrNotFound
		}
		return fmt.Errorf("%w: order %s", model.ErrVersionConflict, o.ID)
	}

	o.Version++
	return nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o                                   model.Order
		method, status                      string
		unitPrice, fee, total, cancellation int64
	)
	err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ProductID, &o.Quantity, &unitPrice, &method, &fee,
		&total, &o.Schedule.Date, &o.Schedule.Time, &o.BuyerAddress, &status, &o.CreatedAt, &o.AcceptedAt,
		&o.CompletedAt, &o.CancelledAt, &o.ExpiresAt, &cancellation, &o.Version)
	if err != nil {
		return nil, err
	}

	o.DeliveryMethod = model.DeliveryMethod(method)
	o.Status = model.OrderStatus(status)
	o.UnitPrice = fromCents(unitPrice)
	o.DeliveryFee = fromCents(fee)
	o.TotalPrice = fromCents(total)
	o.CancellationCharge = fromCents(cancellation)
	return &o, nil
}
