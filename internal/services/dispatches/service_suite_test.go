package dispatches

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	cachemocks "github.com/BearBump/ParcelBox/internal/cache/mocks"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	dispatchesmocks "github.com/BearBump/ParcelBox/internal/services/dispatches/mocks"
)

type ServiceSuite struct {
	suite.Suite

	repo  *dispatchesmocks.MockRepository
	cache *cachemocks.MockBytesCache
	feed  *dispatchesmocks.MockChangeFeed
	svc   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.repo = &dispatchesmocks.MockRepository{}
	s.cache = &cachemocks.MockBytesCache{}
	s.feed = &dispatchesmocks.MockChangeFeed{}
	s.svc = New(s.repo, s.cache, s.feed, 10*time.Minute)
}

func u64(v uint64) *uint64 { return &v }

func pkg(id uint64, st models.PackageStatus, trip *uint64) *models.Package {
	return &models.Package{
		ID:       id,
		Status:   st,
		TripID:   trip,
		Currency: models.CurrencyUSD,
		Freight:  decimal.NewFromInt(int64(id) * 100),
		WeightKg: float64(id),
	}
}

func (s *ServiceSuite) TestCreateDispatch_Validation() {
	ctx := context.Background()

	_, err := s.svc.CreateDispatch(ctx, models.DispatchCreateInput{Date: time.Now()})
	s.Require().ErrorIs(err, apperr.ErrValidation)

	_, err = s.svc.CreateDispatch(ctx, models.DispatchCreateInput{PackageIDs: []uint64{1}})
	s.Require().ErrorIs(err, apperr.ErrValidation)

	s.repo.AssertNotCalled(s.T(), "GetPackagesByIDs", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCreateDispatch_FiltersIneligibleAndDedups() {
	ctx := context.Background()
	now := time.Now()
	linked := pkg(4, models.PackageStatusReceived, nil)
	linked.DispatchID = u64(99)
	deleted := pkg(5, models.PackageStatusReceived, nil)
	deleted.DeletedAt = &now

	p1 := pkg(1, models.PackageStatusReceived, u64(7))
	p2 := pkg(2, models.PackageStatusWarehouse, u64(7))
	s.repo.On("GetPackagesByIDs", mock.Anything, []uint64{1, 2, 3, 4, 5}).
		Return([]*models.Package{p1, p2, pkg(3, models.PackageStatusInTransit, nil), linked, deleted}, nil).
		Once()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s.repo.On("CreateDispatch", mock.Anything, mock.MatchedBy(func(d pgparcels.DispatchDraft) bool {
		return len(d.Packages) == 2 && d.Packages[0].ID == 1 && d.Packages[1].ID == 2 &&
			d.Date.Equal(day) && d.Actor == "ops"
	})).Return(&models.Dispatch{ID: 10, Totals: models.DispatchTotals{PackageCount: 2}}, []pgparcels.PackageChange{{PackageID: 1}}, nil).
		Once()
	s.feed.On("Committed", mock.Anything, "ops", []pgparcels.PackageChange{{PackageID: 1}},
		mock.MatchedBy(func(keys []string) bool {
			return contains(keys, "dispatches:date:2026-03-02") && contains(keys, "candidates:trip:7") && contains(keys, "packages:all")
		})).Once()

	d, err := s.svc.CreateDispatch(ctx, models.DispatchCreateInput{
		Date:       time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC),
		PackageIDs: []uint64{1, 2, 2, 3, 4, 5},
		Actor:      "ops",
	})
	s.Require().NoError(err)
	s.Require().Equal(uint64(10), d.ID)
	s.repo.AssertExpectations(s.T())
	s.feed.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestCreateDispatch_NoEligible() {
	s.repo.On("GetPackagesByIDs", mock.Anything, []uint64{3}).
		Return([]*models.Package{pkg(3, models.PackageStatusDelivered, nil)}, nil).Once()

	_, err := s.svc.CreateDispatch(context.Background(), models.DispatchCreateInput{Date: time.Now(), PackageIDs: []uint64{3}})
	s.Require().ErrorIs(err, apperr.ErrValidation)
	s.Require().Contains(err.Error(), "no eligible packages")
	s.repo.AssertNotCalled(s.T(), "CreateDispatch", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCreateDispatch_LoadFailsBeforeWrites() {
	want := errors.New("db down")
	s.repo.On("GetPackagesByIDs", mock.Anything, mock.Anything).Return(nil, want).Once()

	_, err := s.svc.CreateDispatch(context.Background(), models.DispatchCreateInput{Date: time.Now(), PackageIDs: []uint64{1}})
	s.Require().ErrorIs(err, want)
	s.repo.AssertNotCalled(s.T(), "CreateDispatch", mock.Anything, mock.Anything)
	s.feed.AssertNotCalled(s.T(), "Committed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestMarkInTransit_OnlyDispatchedPackagesOfThisDispatch() {
	ctx := context.Background()
	now := time.Now()
	gone := pkg(4, models.PackageStatusProcessed, u64(7))
	gone.DeletedAt = &now

	s.repo.On("GetDispatch", mock.Anything, uint64(10)).
		Return(&models.Dispatch{ID: 10, Status: models.DispatchStatusPending}, nil).Once()
	s.repo.On("ListPackagesByDispatch", mock.Anything, uint64(10)).Return([]*models.Package{
		pkg(1, models.PackageStatusProcessed, u64(7)),
		pkg(2, models.PackageStatusDespatched, u64(7)),
		pkg(3, models.PackageStatusReceived, u64(7)),
		gone,
	}, nil).Once()

	s.repo.On("ApplyDispatchTransition", mock.Anything, mock.MatchedBy(func(tr pgparcels.DispatchTransition) bool {
		return tr.DispatchID == 10 &&
			tr.ExpectedStatus == models.DispatchStatusPending &&
			tr.NextStatus == models.DispatchStatusInTransit &&
			tr.PackageTo == models.PackageStatusInTransit &&
			tr.TripEffect == pgparcels.TripEffectStart &&
			len(tr.Packages) == 2 && tr.Packages[0].ID == 1 && tr.Packages[1].ID == 2 &&
			len(tr.TripIDs) == 1 && tr.TripIDs[0] == 7
	})).Return(&pgparcels.DispatchTransitionResult{
		Changes:      []pgparcels.PackageChange{{PackageID: 1}, {PackageID: 2}},
		TripStatuses: map[uint64]models.TripStatus{7: models.TripStatusInProgress},
	}, nil).Once()
	s.feed.On("Committed", mock.Anything, "ops", mock.Anything, mock.Anything).Once()

	n, err := s.svc.MarkInTransit(ctx, 10, "ops")
	s.Require().NoError(err)
	s.Require().Equal(2, n)
	s.repo.AssertExpectations(s.T())
	s.feed.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestMarkInTransit_SecondCallHasNothingToDo() {
	s.repo.On("GetDispatch", mock.Anything, uint64(10)).
		Return(&models.Dispatch{ID: 10, Status: models.DispatchStatusInTransit}, nil).Once()
	s.repo.On("ListPackagesByDispatch", mock.Anything, uint64(10)).Return([]*models.Package{
		pkg(1, models.PackageStatusInTransit, nil),
		pkg(2, models.PackageStatusInTransit, nil),
	}, nil).Once()

	_, err := s.svc.MarkInTransit(context.Background(), 10, "")
	s.Require().ErrorIs(err, apperr.ErrPrecondition)
	s.Require().EqualError(err, "no eligible packages")
	s.repo.AssertNotCalled(s.T(), "ApplyDispatchTransition", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestMarkInTransit_NotFound() {
	s.repo.On("GetDispatch", mock.Anything, uint64(404)).Return(nil, apperr.NotFound("dispatch 404 not found")).Once()

	_, err := s.svc.MarkInTransit(context.Background(), 404, "")
	s.Require().ErrorIs(err, apperr.ErrNotFound)
}

func (s *ServiceSuite) TestMarkInTransit_ConcurrentUpdateIsConflict() {
	s.repo.On("GetDispatch", mock.Anything, uint64(10)).
		Return(&models.Dispatch{ID: 10, Status: models.DispatchStatusPending}, nil).Once()
	s.repo.On("ListPackagesByDispatch", mock.Anything, uint64(10)).
		Return([]*models.Package{pkg(1, models.PackageStatusProcessed, nil)}, nil).Once()
	s.repo.On("ApplyDispatchTransition", mock.Anything, mock.Anything).Return(nil, pgparcels.ErrConcurrentUpdate).Once()

	_, err := s.svc.MarkInTransit(context.Background(), 10, "")
	s.Require().ErrorIs(err, apperr.ErrConflict)
	s.feed.AssertNotCalled(s.T(), "Committed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestMarkArrived_RequiresInTransit() {
	s.repo.On("GetDispatch", mock.Anything, uint64(10)).
		Return(&models.Dispatch{ID: 10, Status: models.DispatchStatusPending}, nil).Once()

	_, err := s.svc.MarkArrived(context.Background(), 10, "")
	s.Require().ErrorIs(err, apperr.ErrPrecondition)
	s.Require().EqualError(err, "dispatch must be in transit")
	s.repo.AssertNotCalled(s.T(), "ListPackagesByDispatch", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestMarkArrived_ChecksTripCompletion() {
	s.repo.On("GetDispatch", mock.Anything, uint64(10)).
		Return(&models.Dispatch{ID: 10, Status: models.DispatchStatusInTransit}, nil).Once()
	s.repo.On("ListPackagesByDispatch", mock.Anything, uint64(10)).Return([]*models.Package{
		pkg(1, models.PackageStatusInTransit, u64(7)),
		pkg(2, models.PackageStatusArrived, u64(7)),
	}, nil).Once()
	s.repo.On("ApplyDispatchTransition", mock.Anything, mock.MatchedBy(func(tr pgparcels.DispatchTransition) bool {
		return tr.ExpectedStatus == models.DispatchStatusInTransit &&
			tr.NextStatus == models.DispatchStatusArrived &&
			tr.PackageTo == models.PackageStatusArrived &&
			tr.TripEffect == pgparcels.TripEffectComplete &&
			len(tr.Packages) == 1 && tr.Packages[0].ID == 1
	})).Return(&pgparcels.DispatchTransitionResult{Changes: []pgparcels.PackageChange{{PackageID: 1}}}, nil).Once()
	s.feed.On("Committed", mock.Anything, "", mock.Anything, mock.Anything).Once()

	n, err := s.svc.MarkArrived(context.Background(), 10, "")
	s.Require().NoError(err)
	s.Require().Equal(1, n)
}

func (s *ServiceSuite) TestConfirmDispatch() {
	s.repo.On("GetDispatch", mock.Anything, uint64(10)).
		Return(&models.Dispatch{ID: 10, Status: models.DispatchStatusPending}, nil).Once()
	s.repo.On("ListPackagesByDispatch", mock.Anything, uint64(10)).
		Return([]*models.Package{pkg(1, models.PackageStatusProcessed, nil)}, nil).Once()
	s.repo.On("ApplyDispatchTransition", mock.Anything, mock.MatchedBy(func(tr pgparcels.DispatchTransition) bool {
		return tr.NextStatus == models.DispatchStatusDispatched && tr.PackageTo == models.PackageStatusDespatched &&
			tr.TripEffect == pgparcels.TripEffectNone
	})).Return(&pgparcels.DispatchTransitionResult{Changes: []pgparcels.PackageChange{{PackageID: 1}}}, nil).Once()
	s.feed.On("Committed", mock.Anything, "ops", mock.Anything, mock.Anything).Once()

	n, err := s.svc.ConfirmDispatch(context.Background(), 10, "ops")
	s.Require().NoError(err)
	s.Require().Equal(1, n)

	s.repo.On("GetDispatch", mock.Anything, uint64(11)).
		Return(&models.Dispatch{ID: 11, Status: models.DispatchStatusArrived}, nil).Once()
	_, err = s.svc.ConfirmDispatch(context.Background(), 11, "ops")
	s.Require().ErrorIs(err, apperr.ErrPrecondition)
}

func (s *ServiceSuite) TestGetDispatch_CacheHit_NoDB() {
	d := &models.Dispatch{ID: 7, Status: models.DispatchStatusPending}
	b, _ := json.Marshal(d)
	s.cache.On("Get", mock.Anything, "dispatch:7").Return(b, true, nil).Once()

	got, err := s.svc.GetDispatch(context.Background(), 7)
	s.Require().NoError(err)
	s.Require().Equal(uint64(7), got.ID)
	s.repo.AssertNotCalled(s.T(), "GetDispatch", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestGetDispatch_CacheMiss_SetsCache() {
	s.cache.On("Get", mock.Anything, "dispatch:7").Return(nil, false, nil).Once()
	s.repo.On("GetDispatch", mock.Anything, uint64(7)).Return(&models.Dispatch{ID: 7}, nil).Once()
	s.cache.On("Set", mock.Anything, "dispatch:7", mock.Anything, 10*time.Minute).Return(nil).Once()

	got, err := s.svc.GetDispatch(context.Background(), 7)
	s.Require().NoError(err)
	s.Require().Equal(uint64(7), got.ID)
	s.cache.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestListDispatchesByDate_NormalizesKey() {
	s.cache.On("Get", mock.Anything, "dispatches:date:2026-03-02").Return(nil, false, errors.New("redis down")).Once()
	s.repo.On("ListDispatchesByDate", mock.Anything, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)).
		Return([]*models.Dispatch{{ID: 1}}, nil).Once()
	s.cache.On("Set", mock.Anything, "dispatches:date:2026-03-02", mock.Anything, mock.Anything).
		Return(errors.New("redis down")).Once()

	got, err := s.svc.ListDispatchesByDate(context.Background(), time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().Len(got, 1)
}

func contains(keys []string, k string) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
