//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/ports/deliverytx"
	"delivery-dispatch/internal/repository"
)

type DeliveryRepositorySuite struct {
	suite.Suite
	pool *pgxpool.Pool
	repo *repository.DeliveryRepo
}

// SetupSuite attaches to the pool TestMain opened against the postgres
// testcontainer. The pool belongs to TestMain; the suite never closes it.
func (s *DeliveryRepositorySuite) SetupSuite() {
	s.Require().NotNil(tcPool)
	s.pool = tcPool
	s.repo = repository.NewDeliveryRepo(tcPool)
}

func (s *DeliveryRepositorySuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE deliveries`)
	s.Require().NoError(err)
}

func (s *DeliveryRepositorySuite) newDelivery(orderID string) *domain.Delivery {
	return &domain.Delivery{
		ID:               uuid.NewString(),
		OrderID:          orderID,
		DriverID:         "drv-1",
		Status:           domain.StatusAssigned,
		Pickup:           domain.GeoPoint{Lon: 79.86, Lat: 6.92},
		Dropoff:          domain.GeoPoint{Lon: 79.90, Lat: 6.95},
		EstimatedMinutes: 17,
		CreatedAt:        time.Now().UTC().Truncate(time.Millisecond),
	}
}

func (s *DeliveryRepositorySuite) TestInsertAndGet() {
	ctx := context.Background()
	d := s.newDelivery("O1")
	s.Require().NoError(s.repo.Insert(ctx, d))

	got, err := s.repo.GetByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(d.OrderID, got.OrderID)
	s.Equal(domain.StatusAssigned, got.Status)
	s.Nil(got.Current)
	s.Nil(got.StartedAt)

	byOrder, err := s.repo.GetByOrderID(ctx, "O1")
	s.Require().NoError(err)
	s.Require().NotNil(byOrder)
	s.Equal(d.ID, byOrder.ID)
}

func (s *DeliveryRepositorySuite) TestInsert_DuplicateOrder() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Insert(ctx, s.newDelivery("O2")))

	err := s.repo.Insert(ctx, s.newDelivery("O2"))
	s.Require().Error(err)
	s.ErrorIs(err, apperr.ErrConflict)
}

func (s *DeliveryRepositorySuite) TestUpdateLocation() {
	ctx := context.Background()
	d := s.newDelivery("O3")
	s.Require().NoError(s.repo.Insert(ctx, d))

	err := s.repo.UpdateLocation(ctx, d.ID, domain.GeoPoint{Lon: 79.87, Lat: 6.93})
	s.Require().NoError(err)

	got, err := s.repo.GetByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Current)
	s.Equal(79.87, got.Current.Lon)

	err = s.repo.UpdateLocation(ctx, uuid.NewString(), domain.GeoPoint{})
	s.Require().Error(err)
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *DeliveryRepositorySuite) TestWithTx_SetStatus() {
	ctx := context.Background()
	d := s.newDelivery("O4")
	s.Require().NoError(s.repo.Insert(ctx, d))

	started := time.Now().UTC()
	err := s.repo.WithTx(ctx, func(tx deliverytx.Repository) error {
		cur, err := tx.GetForUpdate(ctx, d.ID)
		s.Require().NoError(err)
		s.Require().NotNil(cur)

		cur.Status = domain.StatusPickedUp
		cur.StartedAt = &started
		return tx.SetStatus(ctx, cur)
	})
	s.Require().NoError(err)

	got, err := s.repo.GetByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusPickedUp, got.Status)
	s.Require().NotNil(got.StartedAt)
}

func TestDeliveryRepositorySuite(t *testing.T) {
	suite.Run(t, new(DeliveryRepositorySuite))
}
