package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

//go:generate mockery --name Repository --output ./mocks --outpkg mocks --structname MockRepository --filename Repository.go

type Repository interface {
	ListArrivalCandidates(ctx context.Context, limit int) ([]*models.Package, error)
	GetCustomer(ctx context.Context, id uint64) (*models.Customer, error)
	ListCustomers(ctx context.Context, ids []uint64) ([]*models.Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)

	CreateNotifications(ctx context.Context, ns []*models.Notification) (int, error)
	CreateCampaign(ctx context.Context, c *models.Campaign, ns []*models.Notification) (*models.Campaign, error)
	GetCampaign(ctx context.Context, id uint64) (*models.Campaign, error)
	GetNotification(ctx context.Context, id uint64) (*models.Notification, error)
	ListNotifications(ctx context.Context, f models.NotificationFilter) ([]*models.Notification, error)
	ApproveNotifications(ctx context.Context, ids []uint64) (int, error)

	ClaimNotification(ctx context.Context, id uint64, from []models.NotificationStatus, lease time.Duration) (*models.Notification, error)
	MarkNotificationSent(ctx context.Context, id uint64, providerMessageID string) error
	MarkNotificationFailed(ctx context.Context, id uint64, errMsg string) error
	ResetFailed(ctx context.Context, ids []uint64) ([]uint64, error)

	ApplyDeliveryStatus(ctx context.Context, upd pgparcels.DeliveryUpdate) (uint64, error)
	SaveIncomingMessage(ctx context.Context, m *models.IncomingMessage) (bool, error)
	ListIncomingMessages(ctx context.Context, limit int) ([]*models.IncomingMessage, error)

	GetRedemption(ctx context.Context, id uint64) (*models.PointRedemption, error)
	SetRedemptionStatus(ctx context.Context, id uint64, st models.RedemptionStatus) error
}

//go:generate mockery --name RateLimiter --output ./mocks --outpkg mocks --structname MockRateLimiter --filename RateLimiter.go

type RateLimiter interface {
	Wait(ctx context.Context, bucket string, limit int64, window time.Duration) error
}

//go:generate mockery --name Responder --output ./mocks --outpkg mocks --structname MockResponder --filename Responder.go

type Responder interface {
	Reply(ctx context.Context, message string) (string, error)
}

type Config struct {
	// Пустой шаблон: уведомление о прибытии уходит обычным текстом.
	ArrivalTemplate  string
	TemplateLanguage string

	SendRatePerMinute int64
	ClaimLease        time.Duration
	LookupConcurrency int

	// Повторы записи статуса sent после того, как провайдер уже принял сообщение.
	MarkRetries int
	MarkBackoff time.Duration

	AutoReply bool
	Greeting  string
}

const (
	defaultGreeting = "¡Hola! Gracias por escribirnos. En breve un agente te responderá."
	sendBucket      = "whatsapp:send"
	arrivalBatch    = 500
)

type Service struct {
	repo      Repository
	wa        whatsapp.Client
	rl        RateLimiter
	responder Responder
	cfg       Config
}

func New(repo Repository, wa whatsapp.Client, rl RateLimiter, responder Responder, cfg Config) *Service {
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = 2 * time.Minute
	}
	if cfg.MarkRetries <= 0 {
		cfg.MarkRetries = 4
	}
	if cfg.MarkBackoff <= 0 {
		cfg.MarkBackoff = 200 * time.Millisecond
	}
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = 8
	}
	if cfg.TemplateLanguage == "" {
		cfg.TemplateLanguage = "es"
	}
	if strings.TrimSpace(cfg.Greeting) == "" {
		cfg.Greeting = defaultGreeting
	}
	return &Service{repo: repo, wa: wa, rl: rl, responder: responder, cfg: cfg}
}

type PrepareResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// PrepareArrivals creates one pending arrival notification per arrived package that has none open yet.
// Contact data is read from the customer record, not from the package.
func (s *Service) PrepareArrivals(ctx context.Context) (*PrepareResult, error) {
	pkgs, err := s.repo.ListArrivalCandidates(ctx, arrivalBatch)
	if err != nil {
		return nil, err
	}
	res := &PrepareResult{}
	if len(pkgs) == 0 {
		return res, nil
	}

	customers, err := s.lookupCustomers(ctx, pkgs)
	if err != nil {
		return nil, err
	}

	var ns []*models.Notification
	for _, p := range pkgs {
		c := customers[p.CustomerID]
		if c == nil || c.ContactPhone() == "" {
			slog.Warn("arrival notification skipped: no valid phone", "package_id", p.ID, "customer_id", p.CustomerID)
			res.Skipped++
			continue
		}
		ns = append(ns, s.arrivalNotification(p, c))
	}

	created, err := s.repo.CreateNotifications(ctx, ns)
	if err != nil {
		return nil, err
	}
	res.Created = created
	res.Skipped += len(ns) - created
	slog.Info("arrival notifications prepared", "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

// lookupCustomers reads every distinct customer in parallel. Missing customers map to nil.
func (s *Service) lookupCustomers(ctx context.Context, pkgs []*models.Package) (map[uint64]*models.Customer, error) {
	out := map[uint64]*models.Customer{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.LookupConcurrency)
	seen := map[uint64]struct{}{}
	for _, p := range pkgs {
		id := p.CustomerID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		g.Go(func() error {
			c, err := s.repo.GetCustomer(gctx, id)
			if errors.Is(err, apperr.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = c
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) arrivalNotification(p *models.Package, c *models.Customer) *models.Notification {
	pid, cid := p.ID, c.ID
	n := &models.Notification{
		Kind:         models.NotificationKindArrival,
		CustomerID:   &cid,
		Phone:        c.ContactPhone(),
		CustomerName: c.Name,
		PackageID:    &pid,
		Status:       models.NotificationStatusPending,
	}
	if s.cfg.ArrivalTemplate != "" {
		n.TemplateName = s.cfg.ArrivalTemplate
		n.TemplateLanguage = s.cfg.TemplateLanguage
		n.TemplateParams = []string{c.Name, p.TrackingCode, p.Destination}
		return n
	}
	n.Body = fmt.Sprintf("Hola %s, tu paquete %s llegó a %s y está listo para retirar.",
		c.Name, p.TrackingCode, p.Destination)
	return n
}

type CampaignInput struct {
	Name        string
	Body        string
	Template    string
	Language    string
	CustomerIDs []uint64
}

// PrepareCampaign creates the campaign with one pending notification per customer with a valid phone.
// Empty CustomerIDs targets every customer. "{name}" in the body is replaced with the customer name.
func (s *Service) PrepareCampaign(ctx context.Context, in CampaignInput) (*models.Campaign, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Body = strings.TrimSpace(in.Body)
	in.Template = strings.TrimSpace(in.Template)
	if in.Name == "" {
		return nil, apperr.Validation("campaign name is required")
	}
	if (in.Body == "") == (in.Template == "") {
		return nil, apperr.Validation("campaign needs either a body or a template")
	}
	lang := in.Language
	if lang == "" {
		lang = s.cfg.TemplateLanguage
	}

	customers, err := s.repo.ListCustomers(ctx, in.CustomerIDs)
	if err != nil {
		return nil, err
	}
	var ns []*models.Notification
	for _, c := range customers {
		phone := c.ContactPhone()
		if phone == "" {
			continue
		}
		cid := c.ID
		n := &models.Notification{
			Kind:         models.NotificationKindCampaign,
			CustomerID:   &cid,
			Phone:        phone,
			CustomerName: c.Name,
			Status:       models.NotificationStatusPending,
		}
		if in.Template != "" {
			n.TemplateName = in.Template
			n.TemplateLanguage = lang
			n.TemplateParams = []string{c.Name}
		} else {
			n.Body = strings.ReplaceAll(in.Body, "{name}", c.Name)
		}
		ns = append(ns, n)
	}
	if len(ns) == 0 {
		return nil, apperr.Validation("no customers with a valid phone")
	}

	camp := &models.Campaign{Name: in.Name, Body: in.Body}
	if in.Template != "" {
		camp.TemplateName = in.Template
		camp.TemplateLanguage = lang
	}
	out, err := s.repo.CreateCampaign(ctx, camp, ns)
	if err != nil {
		return nil, err
	}
	slog.Info("campaign prepared", "campaign_id", out.ID, "recipients", out.Total)
	return out, nil
}

// PrepareRedemption queues the message carrying a redemption code. Returns false when one is already open.
func (s *Service) PrepareRedemption(ctx context.Context, redemptionID uint64) (bool, error) {
	r, err := s.repo.GetRedemption(ctx, redemptionID)
	if err != nil {
		return false, err
	}
	c, err := s.repo.GetCustomer(ctx, r.CustomerID)
	if err != nil {
		return false, err
	}
	phone := c.ContactPhone()
	if phone == "" {
		return false, apperr.Precondition("customer %d has no valid phone", c.ID)
	}

	rid, cid := r.ID, c.ID
	created, err := s.repo.CreateNotifications(ctx, []*models.Notification{{
		Kind:         models.NotificationKindRedemptionCode,
		CustomerID:   &cid,
		Phone:        phone,
		CustomerName: c.Name,
		RedemptionID: &rid,
		Body: fmt.Sprintf("Hola %s, canjeaste %d puntos por %s. Tu código es %s.",
			c.Name, r.Points, r.Reward, r.Code),
		Status: models.NotificationStatusPending,
	}})
	if err != nil {
		return false, err
	}
	return created > 0, nil
}

// Approve is the review step between prepare and execute.
func (s *Service) Approve(ctx context.Context, ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("no notifications selected")
	}
	return s.repo.ApproveNotifications(ctx, ids)
}

func (s *Service) List(ctx context.Context, f models.NotificationFilter) ([]*models.Notification, error) {
	return s.repo.ListNotifications(ctx, f)
}

func (s *Service) GetCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}
