package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/example/ride-dashboards/internal/models"
)

// Postgres reads offers and pending requests from the ride_offers and
// ride_requests tables. Reports come from the fallback provider.
type Postgres struct {
	db       *sql.DB
	fallback Provider
}

func NewPostgres(ctx context.Context, dsn string, fallback Provider) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db, fallback: fallback}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) Offers(ctx context.Context) ([]models.RideOffer, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, driver_name, rating, vehicle, plate, eta_label, duration_label, distance_label, price, category
		FROM ride_offers WHERE active ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query offers: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	var out []models.RideOffer
	for rows.Next() {
		var o models.RideOffer
		var cat string
		if err := rows.Scan(&o.ID, &o.DriverName, &o.Rating, &o.Vehicle, &o.Plate, &o.ETALabel, &o.DurationLabel, &o.DistanceLabel, &o.Price, &cat); err != nil {
			return nil, err
		}
		o.Category = models.Category(cat)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) PendingRequests(ctx context.Context) ([]models.RideRequest, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, pickup, dropoff, distance_label, duration_label, fare, passenger_rating
		FROM ride_requests WHERE status = 'pending' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query requests: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	var out []models.RideRequest
	for rows.Next() {
		var r models.RideRequest
		if err := rows.Scan(&r.ID, &r.Pickup, &r.Dropoff, &r.DistanceLabel, &r.DurationLabel, &r.Fare, &r.PassengerRating); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) DriverReport(ctx context.Context) (models.DriverReport, error) {
	return p.fallback.DriverReport(ctx)
}

func (p *Postgres) ManagerReport(ctx context.Context) (models.ManagerReport, error) {
	return p.fallback.ManagerReport(ctx)
}

func (p *Postgres) RegulatorReport(ctx context.Context) (models.RegulatorReport, error) {
	return p.fallback.RegulatorReport(ctx)
}
