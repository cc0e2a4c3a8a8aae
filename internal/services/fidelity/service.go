package fidelity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
	"github.com/google/uuid"
)

//go:generate mockery --name Repository --output ./mocks --outpkg mocks --structname MockRepository --filename Repository.go

type Repository interface {
	ListDeliveredPaidPackages(ctx context.Context, since *time.Time) ([]*models.Package, error)
	ListCustomers(ctx context.Context, ids []uint64) ([]*models.Customer, error)
	GetCustomer(ctx context.Context, id uint64) (*models.Customer, error)
	RedeemedPoints(ctx context.Context) (map[uint64]int64, error)
	CreateRedemption(ctx context.Context, d pgparcels.RedemptionDraft) (*models.PointRedemption, error)
}

type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

func New(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// Ranking returns customers ordered by points earned in the period.
func (s *Service) Ranking(ctx context.Context, period Period) ([]Record, error) {
	pkgs, err := s.repo.ListDeliveredPaidPackages(ctx, period.Start(s.now(), s.loc))
	if err != nil {
		return nil, err
	}
	out := Rank(pkgs, s.loc)
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]uint64, 0, len(out))
	for _, r := range out {
		ids = append(ids, r.CustomerID)
	}
	customers, err := s.repo.ListCustomers(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uint64]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}
	for i := range out {
		out[i].Name = names[out[i].CustomerID]
	}
	return out, nil
}

type PointsBalance struct {
	CustomerID uint64 `json:"customer_id"`
	Earned     int64  `json:"earned"`
	Redeemed   int64  `json:"redeemed"`
	Available  int64  `json:"available"`
}

func (s *Service) Balance(ctx context.Context, customerID uint64) (*PointsBalance, error) {
	earned, err := s.earned(ctx, customerID)
	if err != nil {
		return nil, err
	}
	redeemed, err := s.repo.RedeemedPoints(ctx)
	if err != nil {
		return nil, err
	}
	r := redeemed[customerID]
	return &PointsBalance{CustomerID: customerID, Earned: earned, Redeemed: r, Available: earned - r}, nil
}

// Redeem exchanges points for a reward and issues a code. The code is sent by the notification pipeline.
func (s *Service) Redeem(ctx context.Context, customerID uint64, points int64, reward string) (*models.PointRedemption, error) {
	reward = strings.TrimSpace(reward)
	if points <= 0 {
		return nil, apperr.Validation("points must be positive")
	}
	if reward == "" {
		return nil, apperr.Validation("reward is required")
	}
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	earned, err := s.earned(ctx, customerID)
	if err != nil {
		return nil, err
	}
	r, err := s.repo.CreateRedemption(ctx, pgparcels.RedemptionDraft{
		CustomerID: customerID,
		Points:     points,
		Reward:     reward,
		Code:       newCode(),
		Earned:     earned,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("points redeemed", "customer_id", customerID, "points", points, "redemption_id", r.ID)
	return r, nil
}

func (s *Service) earned(ctx context.Context, customerID uint64) (int64, error) {
	pkgs, err := s.repo.ListDeliveredPaidPackages(ctx, nil)
	if err != nil {
		return 0, err
	}
	own := pkgs[:0:0]
	for _, p := range pkgs {
		if p.CustomerID == customerID {
			own = append(own, p)
		}
	}
	recs := Rank(own, s.loc)
	if len(recs) == 0 {
		return 0, nil
	}
	return recs[0].Points, nil
}

func newCode() string {
	return "PB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
