package httpapi

import (
	"encoding/json"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/shopspring/decimal"
)

type packageDTO struct {
	ID              uint64          `json:"id"`
	TrackingCode    string          `json:"tracking_code"`
	CustomerID      uint64          `json:"customer_id"`
	TripID          *uint64         `json:"trip_id,omitempty"`
	DispatchID      *uint64         `json:"dispatch_id,omitempty"`
	Origin          string          `json:"origin,omitempty"`
	Destination     string          `json:"destination,omitempty"`
	WeightKg        float64         `json:"weight_kg"`
	Freight         decimal.Decimal `json:"freight"`
	AmountToCollect decimal.Decimal `json:"amount_to_collect"`
	Currency        models.Currency `json:"currency"`
	Description     string          `json:"description,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	DeliveredBy     *string         `json:"delivered_by,omitempty"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

func toPackages(ps []*models.Package) []packageDTO {
	out := make([]packageDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPackage(p))
	}
	return out
}

func toPackage(p *models.Package) packageDTO {
	return packageDTO{
		ID:              p.ID,
		TrackingCode:    p.TrackingCode,
		CustomerID:      p.CustomerID,
		TripID:          p.TripID,
		DispatchID:      p.DispatchID,
		Origin:          p.Origin,
		Destination:     p.Destination,
		WeightKg:        p.WeightKg,
		Freight:         p.Freight,
		AmountToCollect: p.AmountToCollect,
		Currency:        p.Currency,
		Description:     p.Description,
		Status:          string(p.Status),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		DeliveredAt:     p.DeliveredAt,
		DeliveredBy:     p.DeliveredBy,
		DeletedAt:       p.DeletedAt,
	}
}

type eventDTO struct {
	ID         uint64    `json:"id"`
	PackageID  uint64    `json:"package_id"`
	Status     string    `json:"status"`
	DispatchID *uint64   `json:"dispatch_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEvents(evs []*models.TrackingEvent) []eventDTO {
	out := make([]eventDTO, 0, len(evs))
	for _, e := range evs {
		out = append(out, eventDTO{
			ID:         e.ID,
			PackageID:  e.PackageID,
			Status:     string(e.Status),
			DispatchID: e.DispatchID,
			Message:    e.Message,
			Actor:      e.Actor,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

type totalsDTO struct {
	PackageCount    int                                 `json:"package_count"`
	WeightKg        float64                             `json:"weight_kg"`
	Freight         decimal.Decimal                     `json:"freight"`
	AmountToCollect map[models.Currency]decimal.Decimal `json:"amount_to_collect"`
}

func toTotals(t models.DispatchTotals) totalsDTO {
	amounts := t.AmountToCollect
	if amounts == nil {
		amounts = map[models.Currency]decimal.Decimal{}
	}
	return totalsDTO{
		PackageCount:    t.PackageCount,
		WeightKg:        t.WeightKg,
		Freight:         t.Freight,
		AmountToCollect: amounts,
	}
}

type batchDTO struct {
	ID         uint64    `json:"id"`
	Label      string    `json:"label"`
	PackageIDs []uint64  `json:"package_ids"`
	Totals     totalsDTO `json:"totals"`
}

type dispatchDTO struct {
	ID           uint64     `json:"id"`
	DispatchDate string     `json:"dispatch_date"`
	TripID       *uint64    `json:"trip_id,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Status       string     `json:"status"`
	Totals       totalsDTO  `json:"totals"`
	Batches      []batchDTO `json:"batches,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toDispatches(ds []*models.Dispatch) []dispatchDTO {
	out := make([]dispatchDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDispatch(d))
	}
	return out
}

func toDispatch(d *models.Dispatch) dispatchDTO {
	out := dispatchDTO{
		ID:           d.ID,
		DispatchDate: d.DispatchDate.Format(dateLayout),
		TripID:       d.TripID,
		Notes:        d.Notes,
		Status:       string(d.Status),
		Totals:       toTotals(d.Totals),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	for _, b := range d.Batches {
		out.Batches = append(out.Batches, batchDTO{
			ID:         b.ID,
			Label:      b.Label,
			PackageIDs: b.PackageIDs,
			Totals:     toTotals(b.Totals),
		})
	}
	return out
}

type tripDTO struct {
	ID             uint64          `json:"id"`
	Code           string          `json:"code"`
	Origin         string          `json:"origin,omitempty"`
	Destination    string          `json:"destination,omitempty"`
	FlightNumber   string          `json:"flight_number,omitempty"`
	TripDate       time.Time       `json:"trip_date"`
	Status         string          `json:"status"`
	FlightStatus   json.RawMessage `json:"flight_status,omitempty"`
	FlightFallback bool            `json:"flight_fallback"`
	LastCheckedAt  *time.Time      `json:"last_checked_at,omitempty"`
	NextCheckAt    time.Time       `json:"next_check_at"`
	CheckFailCount int32           `json:"check_fail_count"`
	LastError      *string         `json:"last_error,omitempty"`
}

func toTrip(t *models.Trip) tripDTO {
	return tripDTO{
		ID:             t.ID,
		Code:           t.Code,
		Origin:         t.Origin,
		Destination:    t.Destination,
		FlightNumber:   t.FlightNumber,
		TripDate:       t.TripDate,
		Status:         string(t.Status),
		FlightStatus:   t.FlightStatus,
		FlightFallback: t.FlightFallback,
		LastCheckedAt:  t.LastCheckedAt,
		NextCheckAt:    t.NextCheckAt,
		CheckFailCount: t.CheckFailCount,
		LastError:      t.LastError,
	}
}

type notificationDTO struct {
	ID                uint64     `json:"id"`
	Kind              string     `json:"kind"`
	CustomerID        *uint64    `json:"customer_id,omitempty"`
	Phone             string     `json:"phone"`
	CustomerName      string     `json:"customer_name,omitempty"`
	PackageID         *uint64    `json:"package_id,omitempty"`
	CampaignID        *uint64    `json:"campaign_id,omitempty"`
	RedemptionID      *uint64    `json:"redemption_id,omitempty"`
	Body              string     `json:"body,omitempty"`
	TemplateName      string     `json:"template_name,omitempty"`
	TemplateLanguage  string     `json:"template_language,omitempty"`
	TemplateParams    []string   `json:"template_params,omitempty"`
	Status            string     `json:"status"`
	DeliveryStatus    *string    `json:"delivery_status,omitempty"`
	ProviderMessageID *string    `json:"provider_message_id,omitempty"`
	Error             *string    `json:"error,omitempty"`
	Attempts          int32      `json:"attempts"`
	CreatedAt         time.Time  `json:"created_at"`
	PreparedAt        *time.Time `json:"prepared_at,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	FailedAt          *time.Time `json:"failed_at,omitempty"`
}

func toNotifications(ns []*models.Notification) []notificationDTO {
	out := make([]notificationDTO, 0, len(ns))
	for _, n := range ns {
		out = append(out, toNotification(n))
	}
	return out
}

func toNotification(n *models.Notification) notificationDTO {
	out := notificationDTO{
		ID:                n.ID,
		Kind:              string(n.Kind),
		CustomerID:        n.CustomerID,
		Phone:             n.Phone,
		CustomerName:      n.CustomerName,
		PackageID:         n.PackageID,
		CampaignID:        n.CampaignID,
		RedemptionID:      n.RedemptionID,
		Body:              n.Body,
		TemplateName:      n.TemplateName,
		TemplateLanguage:  n.TemplateLanguage,
		TemplateParams:    n.TemplateParams,
		Status:            string(n.Status),
		ProviderMessageID: n.ProviderMessageID,
		Error:             n.Error,
		Attempts:          n.Attempts,
		CreatedAt:         n.CreatedAt,
		PreparedAt:        n.PreparedAt,
		SentAt:            n.SentAt,
		FailedAt:          n.FailedAt,
	}
	if n.DeliveryStatus != nil {
		ds := string(*n.DeliveryStatus)
		out.DeliveryStatus = &ds
	}
	return out
}

type campaignDTO struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	Body             string    `json:"body,omitempty"`
	TemplateName     string    `json:"template_name,omitempty"`
	TemplateLanguage string    `json:"template_language,omitempty"`
	Total            int       `json:"total"`
	SuccessCount     int       `json:"success_count"`
	FailedCount      int       `json:"failed_count"`
	CreatedAt        time.Time `json:"created_at"`
}

func toCampaign(c *models.Campaign) campaignDTO {
	return campaignDTO{
		ID:               c.ID,
		Name:             c.Name,
		Body:             c.Body,
		TemplateName:     c.TemplateName,
		TemplateLanguage: c.TemplateLanguage,
		Total:            c.Total,
		SuccessCount:     c.SuccessCount,
		FailedCount:      c.FailedCount,
		CreatedAt:        c.CreatedAt,
	}
}

type incomingDTO struct {
	ID                uint64    `json:"id"`
	FromPhone         string    `json:"from_phone"`
	MessageType       string    `json:"message_type"`
	Content           string    `json:"content"`
	CustomerID        *uint64   `json:"customer_id,omitempty"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	ReceivedAt        time.Time `json:"received_at"`
}

func toIncoming(m *models.IncomingMessage) incomingDTO {
	return incomingDTO{
		ID:                m.ID,
		FromPhone:         m.FromPhone,
		MessageType:       m.MessageType,
		Content:           m.Content,
		CustomerID:        m.CustomerID,
		ProviderMessageID: m.ProviderMessageID,
		ReceivedAt:        m.ReceivedAt,
	}
}

type paymentDTO struct {
	ID         uint64          `json:"id"`
	PackageID  uint64          `json:"package_id"`
	CustomerID uint64          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   models.Currency `json:"currency"`
	PaidAt     time.Time       `json:"paid_at"`
}

func toPayment(p *models.Payment) paymentDTO {
	return paymentDTO{
		ID:         p.ID,
		PackageID:  p.PackageID,
		CustomerID: p.CustomerID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		PaidAt:     p.PaidAt,
	}
}

type redemptionDTO struct {
	ID         uint64    `json:"id"`
	CustomerID uint64    `json:"customer_id"`
	Points     int64     `json:"points"`
	Reward     string    `json:"reward"`
	Code       string    `json:"code"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func toRedemption(r *models.PointRedemption) redemptionDTO {
	return redemptionDTO{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Points:     r.Points,
		Reward:     r.Reward,
		Code:       r.Code,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
	}
}
