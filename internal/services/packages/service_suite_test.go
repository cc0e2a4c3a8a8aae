package packages

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	cachemocks "github.com/BearBump/ParcelBox/internal/cache/mocks"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	packagesmocks "github.com/BearBump/ParcelBox/internal/services/packages/mocks"
)

type ServiceSuite struct {
	suite.Suite

	repo  *packagesmocks.MockRepository
	cache *cachemocks.MockBytesCache
	feed  *packagesmocks.MockChangeFeed
	svc   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.repo = &packagesmocks.MockRepository{}
	s.cache = &cachemocks.MockBytesCache{}
	s.feed = &packagesmocks.MockChangeFeed{}
	s.svc = New(s.repo, s.cache, s.feed, time.Minute)
}

func u64(v uint64) *uint64 { return &v }

func (s *ServiceSuite) TestCreate_DefaultsAndValidation() {
	ctx := context.Background()

	_, err := s.svc.Create(ctx, &models.Package{CustomerID: 1})
	s.Require().ErrorIs(err, apperr.ErrValidation)

	_, err = s.svc.Create(ctx, &models.Package{TrackingCode: "PB-1", CustomerID: 1, Freight: decimal.NewFromInt(-1)})
	s.Require().ErrorIs(err, apperr.ErrValidation)

	s.repo.On("CreatePackage", mock.Anything, mock.MatchedBy(func(p *models.Package) bool {
		return p.Status == models.PackageStatusReceived && p.Currency == models.CurrencyUSD
	})).Return(&models.Package{ID: 1, TripID: u64(3)}, nil).Once()
	s.feed.On("Committed", mock.Anything, "", []pgparcels.PackageChange(nil),
		[]string{"packages:all", "candidates:all", "candidates:trip:3", "trip:3:packages"}).Once()

	p, err := s.svc.Create(ctx, &models.Package{TrackingCode: " PB-1 ", CustomerID: 1})
	s.Require().NoError(err)
	s.Require().Equal(uint64(1), p.ID)
	s.feed.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestMoveToWarehouse() {
	s.repo.On("GetPackage", mock.Anything, uint64(1)).
		Return(&models.Package{ID: 1, Status: models.PackageStatusReceived}, nil).Once()
	s.repo.On("ApplyPackageTransition", mock.Anything, pgparcels.PackageTransition{
		PackageID: 1,
		From:      models.PackageStatusReceived,
		Path:      []models.PackageStatus{models.PackageStatusWarehouse},
		Actor:     "ops",
		Message:   "moved to warehouse",
	}).Return([]pgparcels.PackageChange{{PackageID: 1}}, nil).Once()
	s.feed.On("Committed", mock.Anything, "ops", []pgparcels.PackageChange{{PackageID: 1}}, []string(nil)).Once()

	changed, err := s.svc.MoveToWarehouse(context.Background(), 1, "ops")
	s.Require().NoError(err)
	s.Require().True(changed)
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestMoveToWarehouse_IllegalIsPrecondition() {
	s.repo.On("GetPackage", mock.Anything, uint64(1)).
		Return(&models.Package{ID: 1, Status: models.PackageStatusInTransit}, nil).Once()

	_, err := s.svc.MoveToWarehouse(context.Background(), 1, "ops")
	s.Require().ErrorIs(err, apperr.ErrPrecondition)
	s.repo.AssertNotCalled(s.T(), "ApplyPackageTransition", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestMarkDelivered_TwiceIsNoop() {
	s.repo.On("GetPackage", mock.Anything, uint64(1)).
		Return(&models.Package{ID: 1, Status: models.PackageStatusDelivered}, nil).Once()

	changed, err := s.svc.MarkDelivered(context.Background(), 1, "courier")
	s.Require().NoError(err)
	s.Require().False(changed)
	s.repo.AssertNotCalled(s.T(), "ApplyPackageTransition", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestMarkDelivered_SetsDeliveredBy() {
	s.repo.On("GetPackage", mock.Anything, uint64(1)).
		Return(&models.Package{ID: 1, Status: models.PackageStatusArrived}, nil).Once()
	s.repo.On("ApplyPackageTransition", mock.Anything, mock.MatchedBy(func(tr pgparcels.PackageTransition) bool {
		return tr.DeliveredBy != nil && *tr.DeliveredBy == "courier" && tr.Path[0] == models.PackageStatusDelivered
	})).Return([]pgparcels.PackageChange{{PackageID: 1}}, nil).Once()
	s.feed.On("Committed", mock.Anything, "courier", mock.Anything, mock.Anything).Once()

	changed, err := s.svc.MarkDelivered(context.Background(), 1, "courier")
	s.Require().NoError(err)
	s.Require().True(changed)

	_, err = s.svc.MarkDelivered(context.Background(), 1, " ")
	s.Require().ErrorIs(err, apperr.ErrValidation)
}

func (s *ServiceSuite) TestMove_DeletedPackage() {
	now := time.Now()
	s.repo.On("GetPackage", mock.Anything, uint64(1)).
		Return(&models.Package{ID: 1, Status: models.PackageStatusReceived, DeletedAt: &now}, nil).Once()

	_, err := s.svc.MoveToWarehouse(context.Background(), 1, "")
	s.Require().ErrorIs(err, apperr.ErrPrecondition)
}

func (s *ServiceSuite) TestReschedule_DropsPendingDispatchLink() {
	s.repo.On("GetPackage", mock.Anything, uint64(1)).Return(&models.Package{
		ID: 1, Status: models.PackageStatusProcessed, TripID: u64(3), DispatchID: u64(9),
	}, nil).Once()
	s.repo.On("GetTrip", mock.Anything, uint64(4)).
		Return(&models.Trip{ID: 4, Status: models.TripStatusScheduled}, nil).Once()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s.repo.On("GetDispatch", mock.Anything, uint64(9)).
		Return(&models.Dispatch{ID: 9, Status: models.DispatchStatusPending, DispatchDate: day}, nil).Once()
	s.repo.On("ReschedulePackage", mock.Anything, pgparcels.PackageReschedule{
		PackageID: 1, ExpectedStatus: models.PackageStatusProcessed, TripID: u64(4), DispatchID: u64(9), Actor: "ops",
	}).Return(&pgparcels.PackageChange{PackageID: 1, To: models.PackageStatusReceived}, nil).Once()
	s.feed.On("Committed", mock.Anything, "ops", mock.Anything, mock.MatchedBy(func(keys []string) bool {
		var hasOld, hasNew, hasDate bool
		for _, k := range keys {
			hasOld = hasOld || k == "trip:3:packages"
			hasNew = hasNew || k == "trip:4:packages"
			hasDate = hasDate || k == "dispatches:date:2026-03-02"
		}
		return hasOld && hasNew && hasDate
	})).Once()

	changed, err := s.svc.Reschedule(context.Background(), 1, u64(4), "ops")
	s.Require().NoError(err)
	s.Require().True(changed)
	s.repo.AssertExpectations(s.T())
	s.feed.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestReschedule_Preconditions() {
	ctx := context.Background()

	s.repo.On("GetPackage", mock.Anything, uint64(1)).
		Return(&models.Package{ID: 1, Status: models.PackageStatusInTransit}, nil).Once()
	_, err := s.svc.Reschedule(ctx, 1, u64(4), "")
	s.Require().ErrorIs(err, apperr.ErrPrecondition)

	s.repo.On("GetPackage", mock.Anything, uint64(2)).
		Return(&models.Package{ID: 2, Status: models.PackageStatusProcessed, DispatchID: u64(9)}, nil).Once()
	s.repo.On("GetDispatch", mock.Anything, uint64(9)).
		Return(&models.Dispatch{ID: 9, Status: models.DispatchStatusDispatched}, nil).Once()
	_, err = s.svc.Reschedule(ctx, 2, nil, "")
	s.Require().ErrorIs(err, apperr.ErrPrecondition)

	s.repo.On("GetPackage", mock.Anything, uint64(3)).
		Return(&models.Package{ID: 3, Status: models.PackageStatusReceived}, nil).Once()
	s.repo.On("GetTrip", mock.Anything, uint64(5)).
		Return(&models.Trip{ID: 5, Status: models.TripStatusCompleted}, nil).Once()
	_, err = s.svc.Reschedule(ctx, 3, u64(5), "")
	s.Require().ErrorIs(err, apperr.ErrPrecondition)

	// уже received на том же рейсе: ничего не делаем
	s.repo.On("GetPackage", mock.Anything, uint64(4)).
		Return(&models.Package{ID: 4, Status: models.PackageStatusReceived, TripID: u64(5)}, nil).Once()
	changed, err := s.svc.Reschedule(ctx, 4, u64(5), "")
	s.Require().NoError(err)
	s.Require().False(changed)

	s.repo.AssertNotCalled(s.T(), "ReschedulePackage", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestSoftDeleteAndRestore() {
	ctx := context.Background()
	p := &models.Package{ID: 1, Status: models.PackageStatusReceived, TripID: u64(3)}
	s.repo.On("GetPackage", mock.Anything, uint64(1)).Return(p, nil)

	s.repo.On("SetPackageDeleted", mock.Anything, uint64(1), true).Return(true, nil).Once()
	s.feed.On("Committed", mock.Anything, "ops", []pgparcels.PackageChange(nil), mock.Anything).Twice()
	changed, err := s.svc.SoftDelete(ctx, 1, "ops")
	s.Require().NoError(err)
	s.Require().True(changed)

	s.repo.On("SetPackageDeleted", mock.Anything, uint64(1), true).Return(false, nil).Once()
	changed, err = s.svc.SoftDelete(ctx, 1, "ops")
	s.Require().NoError(err)
	s.Require().False(changed)

	s.repo.On("SetPackageDeleted", mock.Anything, uint64(1), false).Return(true, nil).Once()
	changed, err = s.svc.Restore(ctx, 1, "ops")
	s.Require().NoError(err)
	s.Require().True(changed)
	s.feed.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestList_GlobalListIsCached() {
	ctx := context.Background()
	b, _ := json.Marshal([]*models.Package{{ID: 5}})
	s.cache.On("Get", mock.Anything, "packages:all").Return(b, true, nil).Once()

	out, err := s.svc.List(ctx, models.PackageFilter{})
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.repo.AssertNotCalled(s.T(), "ListPackages", mock.Anything, mock.Anything)

	st := models.PackageStatusDelivered
	s.repo.On("ListPackages", mock.Anything, models.PackageFilter{Status: &st}).Return([]*models.Package{}, nil).Once()
	_, err = s.svc.List(ctx, models.PackageFilter{Status: &st})
	s.Require().NoError(err)
	s.cache.AssertExpectations(s.T())
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
