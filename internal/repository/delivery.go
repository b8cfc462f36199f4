package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/ports/deliverytx"
)

const deliveryColumns = `
        id, order_id, driver_id, status,
        pickup_lon, pickup_lat, dropoff_lon, dropoff_lat,
        current_lon, current_lat,
        estimated_minutes, created_at, started_at, delivered_at`

// DeliveryRepo is the Postgres-backed delivery store.
type DeliveryRepo struct {
	db *pgxpool.Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*domain.Delivery, error) {
	var d domain.Delivery
	var curLon, curLat *float64
	err := row.Scan(
		&d.ID, &d.OrderID, &d.DriverID, &d.Status,
		&d.Pickup.Lon, &d.Pickup.Lat, &d.Dropoff.Lon, &d.Dropoff.Lat,
		&curLon, &curLat,
		&d.EstimatedMinutes, &d.CreatedAt, &d.StartedAt, &d.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	if curLon != nil && curLat != nil {
		d.Current = &domain.GeoPoint{Lon: *curLon, Lat: *curLat}
	}
	return &d, nil
}

// Insert persists a freshly assigned delivery.
func (r *DeliveryRepo) Insert(ctx context.Context, d *domain.Delivery) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO deliveries (
            id, order_id, driver_id, status,
            pickup_lon, pickup_lat, dropoff_lon, dropoff_lat,
            estimated_minutes, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, d.ID, d.OrderID, d.DriverID, string(d.Status),
		d.Pickup.Lon, d.Pickup.Lat, d.Dropoff.Lon, d.Dropoff.Lat,
		d.EstimatedMinutes, d.CreatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("insert delivery for order %q: %w", d.OrderID, apperr.ErrConflict)
		}
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// GetByID returns a delivery by id, or nil when absent.
func (r *DeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	row := r.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id)
	d, err := scanDelivery(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery %q: %w", id, err)
	}
	return d, nil
}

// GetByOrderID returns the delivery created for an order, or nil when absent.
func (r *DeliveryRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Delivery, error) {
	row := r.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE order_id = $1`, orderID)
	d, err := scanDelivery(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery by order %q: %w", orderID, err)
	}
	return d, nil
}

// UpdateLocation overwrites the delivery's current location. Returns
// apperr.ErrNotFound when the delivery does not exist.
func (r *DeliveryRepo) UpdateLocation(ctx context.Context, id string, p domain.GeoPoint) error {
	ct, err := r.db.Exec(ctx, `
        UPDATE deliveries
        SET current_lon = $2, current_lat = $3, updated_at = now()
        WHERE id = $1
    `, id, p.Lon, p.Lat)
	if err != nil {
		return fmt.Errorf("update delivery location %q: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// WithTx opens a transaction and executes fn within it.
func (r *DeliveryRepo) WithTx(ctx context.Context, fn func(tx deliverytx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &TxRepo{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// TxRepo is the transactional view of the delivery store.
type TxRepo struct {
	tx pgx.Tx
}

// GetForUpdate loads a delivery row with a row lock, or nil when absent.
func (r *TxRepo) GetForUpdate(ctx context.Context, id string) (*domain.Delivery, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1 FOR UPDATE`, id)
	d, err := scanDelivery(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery for update %q: %w", id, err)
	}
	return d, nil
}

// SetStatus writes the delivery's status, lifecycle timestamps and, when
// present, its current location.
func (r *TxRepo) SetStatus(ctx context.Context, d *domain.Delivery) error {
	var curLon, curLat *float64
	if d.Current != nil {
		curLon, curLat = &d.Current.Lon, &d.Current.Lat
	}
	ct, err := r.tx.Exec(ctx, `
        UPDATE deliveries
        SET status = $2,
            current_lon = COALESCE($3, current_lon),
            current_lat = COALESCE($4, current_lat),
            started_at = COALESCE($5, started_at),
            delivered_at = COALESCE($6, delivered_at),
            updated_at = now()
        WHERE id = $1
    `, d.ID, string(d.Status), curLon, curLat, d.StartedAt, d.DeliveredAt)
	if err != nil {
		return fmt.Errorf("set delivery status %q: %w", d.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delivery %q not found", d.ID)
	}
	return nil
}
