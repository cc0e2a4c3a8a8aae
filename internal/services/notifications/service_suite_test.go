package notifications

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/pgparcels"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	whatsappmocks "github.com/BearBump/ParcelBox/internal/integrations/whatsapp/mocks"
	notificationsmocks "github.com/BearBump/ParcelBox/internal/services/notifications/mocks"
)

var (
	prepared = []models.NotificationStatus{models.NotificationStatusPrepared}
	pending  = []models.NotificationStatus{models.NotificationStatusPending}
)

type ServiceSuite struct {
	suite.Suite

	repo      *notificationsmocks.MockRepository
	rl        *notificationsmocks.MockRateLimiter
	responder *notificationsmocks.MockResponder
	wa        *whatsappmocks.MockClient
	svc       *Service
}

func (s *ServiceSuite) SetupTest() {
	s.repo = &notificationsmocks.MockRepository{}
	s.rl = &notificationsmocks.MockRateLimiter{}
	s.responder = &notificationsmocks.MockResponder{}
	s.wa = &whatsappmocks.MockClient{}
	s.svc = New(s.repo, s.wa, s.rl, s.responder, Config{SendRatePerMinute: 60, AutoReply: true, MarkBackoff: time.Millisecond})
	s.rl.On("Wait", mock.Anything, sendBucket, int64(60), mock.Anything).Return(nil).Maybe()
}

func u64(v uint64) *uint64 { return &v }

func notif(id uint64, phone string) *models.Notification {
	return &models.Notification{ID: id, Kind: models.NotificationKindArrival, Phone: phone, Body: "hola", Status: models.NotificationStatusPrepared}
}

func (s *ServiceSuite) TestPrepareArrivals_CreatesOnceThenNothing() {
	ctx := context.Background()
	pkg := &models.Package{ID: 1, CustomerID: 7, TrackingCode: "PB-1", Destination: "Caracas", Status: models.PackageStatusArrived}

	s.repo.On("ListArrivalCandidates", mock.Anything, arrivalBatch).Return([]*models.Package{pkg}, nil).Once()
	s.repo.On("GetCustomer", mock.Anything, uint64(7)).
		Return(&models.Customer{ID: 7, Name: "Ana", Phone: "+58 (414) 555-0101"}, nil).Once()
	s.repo.On("CreateNotifications", mock.Anything, mock.MatchedBy(func(ns []*models.Notification) bool {
		if len(ns) != 1 {
			return false
		}
		n := ns[0]
		return n.Kind == models.NotificationKindArrival && n.Status == models.NotificationStatusPending &&
			*n.PackageID == 1 && n.Phone == "584145550101" && strings.Contains(n.Body, "PB-1")
	})).Return(1, nil).Once()

	res, err := s.svc.PrepareArrivals(ctx)
	s.Require().NoError(err)
	s.Require().Equal(&PrepareResult{Created: 1}, res)

	// открытое уведомление уже есть, кандидатов больше нет
	s.repo.On("ListArrivalCandidates", mock.Anything, arrivalBatch).Return([]*models.Package{}, nil).Once()
	res, err = s.svc.PrepareArrivals(ctx)
	s.Require().NoError(err)
	s.Require().Equal(0, res.Created)

	s.repo.AssertNumberOfCalls(s.T(), "CreateNotifications", 1)
}

func (s *ServiceSuite) TestPrepareArrivals_SkipsCustomersWithoutPhone() {
	s.repo.On("ListArrivalCandidates", mock.Anything, arrivalBatch).Return([]*models.Package{
		{ID: 1, CustomerID: 1},
		{ID: 2, CustomerID: 2},
		{ID: 3, CustomerID: 3},
		{ID: 4, CustomerID: 3},
	}, nil).Once()
	s.repo.On("GetCustomer", mock.Anything, uint64(1)).Return(&models.Customer{ID: 1, Phone: "123"}, nil).Once()
	s.repo.On("GetCustomer", mock.Anything, uint64(2)).Return(nil, apperr.NotFound("customer 2 not found")).Once()
	s.repo.On("GetCustomer", mock.Anything, uint64(3)).Return(&models.Customer{ID: 3, Phone: "04145550101"}, nil).Once()
	s.repo.On("CreateNotifications", mock.Anything, mock.MatchedBy(func(ns []*models.Notification) bool {
		return len(ns) == 2
	})).Return(1, nil).Once()

	res, err := s.svc.PrepareArrivals(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(1, res.Created)
	s.Require().Equal(3, res.Skipped)
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestPrepareArrivals_LookupErrorAborts() {
	s.repo.On("ListArrivalCandidates", mock.Anything, arrivalBatch).
		Return([]*models.Package{{ID: 1, CustomerID: 1}}, nil).Once()
	s.repo.On("GetCustomer", mock.Anything, uint64(1)).Return(nil, errors.New("db down")).Once()

	_, err := s.svc.PrepareArrivals(context.Background())
	s.Require().Error(err)
	s.repo.AssertNotCalled(s.T(), "CreateNotifications", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestExecute_SecondSendFails() {
	n1, n2 := notif(1, "111111111"), notif(2, "222222222")
	s.repo.On("ListNotifications", mock.Anything, models.NotificationFilter{Statuses: prepared}).
		Return([]*models.Notification{n1, n2}, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(1), prepared, mock.Anything).Return(n1, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(2), prepared, mock.Anything).Return(n2, nil).Once()
	s.wa.On("Send", mock.Anything, whatsapp.Message{To: "111111111", Body: "hola"}).Return("wamid.1", nil).Once()
	s.wa.On("Send", mock.Anything, whatsapp.Message{To: "222222222", Body: "hola"}).
		Return("", errors.New("provider unavailable")).Once()
	s.repo.On("MarkNotificationSent", mock.Anything, uint64(1), "wamid.1").Return(nil).Once()
	s.repo.On("MarkNotificationFailed", mock.Anything, uint64(2), "provider unavailable").Return(nil).Once()

	res, err := s.svc.Execute(context.Background(), ExecuteInput{})
	s.Require().NoError(err)
	s.Require().Equal(1, res.Sent)
	s.Require().Equal(1, res.Failed)
	s.Require().Empty(res.Aborted)
	s.repo.AssertExpectations(s.T())
	s.rl.AssertNumberOfCalls(s.T(), "Wait", 2)
}

func (s *ServiceSuite) TestExecute_MarkSentRetriedAfterProviderAccepted() {
	n1 := notif(1, "111111111")
	s.repo.On("ListNotifications", mock.Anything, models.NotificationFilter{Statuses: prepared}).
		Return([]*models.Notification{n1}, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(1), prepared, mock.Anything).Return(n1, nil).Once()
	s.wa.On("Send", mock.Anything, whatsapp.Message{To: "111111111", Body: "hola"}).Return("wamid.1", nil).Once()
	s.repo.On("MarkNotificationSent", mock.Anything, uint64(1), "wamid.1").Return(errors.New("conn reset")).Twice()
	s.repo.On("MarkNotificationSent", mock.Anything, uint64(1), "wamid.1").Return(nil).Once()

	res, err := s.svc.Execute(context.Background(), ExecuteInput{})
	s.Require().NoError(err)
	s.Require().Equal(1, res.Sent)
	s.repo.AssertNumberOfCalls(s.T(), "MarkNotificationSent", 3)
	s.wa.AssertNumberOfCalls(s.T(), "Send", 1)
}

func (s *ServiceSuite) TestExecute_MarkSentGivesUpButStillCounted() {
	n1 := notif(1, "111111111")
	s.repo.On("ListNotifications", mock.Anything, models.NotificationFilter{Statuses: prepared}).
		Return([]*models.Notification{n1}, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(1), prepared, mock.Anything).Return(n1, nil).Once()
	s.wa.On("Send", mock.Anything, whatsapp.Message{To: "111111111", Body: "hola"}).Return("wamid.1", nil).Once()
	s.repo.On("MarkNotificationSent", mock.Anything, uint64(1), "wamid.1").Return(errors.New("db down"))

	res, err := s.svc.Execute(context.Background(), ExecuteInput{})
	s.Require().NoError(err)
	s.Require().Equal(1, res.Sent)
	// первая попытка и четыре повтора
	s.repo.AssertNumberOfCalls(s.T(), "MarkNotificationSent", 5)
}

func (s *ServiceSuite) TestExecute_TokenExpiredAbortsBatch() {
	list := []*models.Notification{notif(1, "111111111"), notif(2, "222222222"), notif(3, "333333333")}
	kind := models.NotificationKindCampaign
	s.repo.On("ListNotifications", mock.Anything, models.NotificationFilter{
		Kind: &kind, Statuses: []models.NotificationStatus{models.NotificationStatusPrepared, models.NotificationStatusPending},
	}).Return(list, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(1), mock.Anything, mock.Anything).Return(list[0], nil).Once()
	s.wa.On("Send", mock.Anything, mock.Anything).Return("", whatsapp.ErrTokenExpired).Once()
	s.repo.On("MarkNotificationFailed", mock.Anything, uint64(1), whatsapp.ErrTokenExpired.Error()).Return(nil).Once()

	res, err := s.svc.Execute(context.Background(), ExecuteInput{Kind: &kind, IncludePending: true})
	s.Require().NoError(err)
	s.Require().Equal(0, res.Sent)
	s.Require().Equal(1, res.Failed)
	s.Require().Equal(2, res.Skipped)
	s.Require().Contains(res.Aborted, "renew the token")
	s.repo.AssertNumberOfCalls(s.T(), "ClaimNotification", 1)
}

func (s *ServiceSuite) TestExecute_MissingRecipientContinues() {
	n1, n2 := notif(1, ""), notif(2, "222222222")
	s.repo.On("ListNotifications", mock.Anything, mock.Anything).Return([]*models.Notification{n1, n2}, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(1), prepared, mock.Anything).Return(n1, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(2), prepared, mock.Anything).Return(n2, nil).Once()
	s.wa.On("Send", mock.Anything, mock.MatchedBy(func(m whatsapp.Message) bool { return m.To == "" })).
		Return("", whatsapp.ErrMissingRecipient).Once()
	s.wa.On("Send", mock.Anything, mock.MatchedBy(func(m whatsapp.Message) bool { return m.To != "" })).
		Return("wamid.2", nil).Once()
	s.repo.On("MarkNotificationFailed", mock.Anything, uint64(1), whatsapp.ErrMissingRecipient.Error()).Return(nil).Once()
	s.repo.On("MarkNotificationSent", mock.Anything, uint64(2), "wamid.2").Return(nil).Once()

	res, err := s.svc.Execute(context.Background(), ExecuteInput{})
	s.Require().NoError(err)
	s.Require().Equal(&SendResult{Sent: 1, Failed: 1}, res)
}

func (s *ServiceSuite) TestExecute_ClaimedElsewhereIsSkipped() {
	s.repo.On("ListNotifications", mock.Anything, mock.Anything).Return([]*models.Notification{notif(1, "111111111")}, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(1), prepared, mock.Anything).Return(nil, nil).Once()

	res, err := s.svc.Execute(context.Background(), ExecuteInput{})
	s.Require().NoError(err)
	s.Require().Equal(&SendResult{Skipped: 1}, res)
	s.wa.AssertNotCalled(s.T(), "Send", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestExecute_RedemptionMarkedNotified() {
	n := notif(1, "111111111")
	n.Kind = models.NotificationKindRedemptionCode
	n.RedemptionID = u64(9)
	s.repo.On("ListNotifications", mock.Anything, mock.Anything).Return([]*models.Notification{n}, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(1), prepared, mock.Anything).Return(n, nil).Once()
	s.wa.On("Send", mock.Anything, mock.Anything).Return("wamid.1", nil).Once()
	s.repo.On("MarkNotificationSent", mock.Anything, uint64(1), "wamid.1").Return(nil).Once()
	s.repo.On("SetRedemptionStatus", mock.Anything, uint64(9), models.RedemptionStatusNotified).Return(nil).Once()

	res, err := s.svc.Execute(context.Background(), ExecuteInput{})
	s.Require().NoError(err)
	s.Require().Equal(1, res.Sent)
	s.repo.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestRetryFailed() {
	_, err := s.svc.RetryFailed(context.Background(), nil)
	s.Require().ErrorIs(err, apperr.ErrValidation)

	n := notif(1, "111111111")
	n.Status = models.NotificationStatusPending
	s.repo.On("ResetFailed", mock.Anything, []uint64{1, 2}).Return([]uint64{1}, nil).Once()
	s.repo.On("ListNotifications", mock.Anything, models.NotificationFilter{IDs: []uint64{1}, Statuses: pending}).
		Return([]*models.Notification{n}, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(1), pending, mock.Anything).Return(n, nil).Once()
	s.wa.On("Send", mock.Anything, mock.Anything).Return("wamid.9", nil).Once()
	s.repo.On("MarkNotificationSent", mock.Anything, uint64(1), "wamid.9").Return(nil).Once()

	res, err := s.svc.RetryFailed(context.Background(), []uint64{1, 2})
	s.Require().NoError(err)
	s.Require().Equal(&SendResult{Sent: 1, Skipped: 1}, res)
}

func (s *ServiceSuite) TestPrepareCampaign() {
	ctx := context.Background()

	_, err := s.svc.PrepareCampaign(ctx, CampaignInput{Name: "promo"})
	s.Require().ErrorIs(err, apperr.ErrValidation)
	_, err = s.svc.PrepareCampaign(ctx, CampaignInput{Name: "promo", Body: "x", Template: "y"})
	s.Require().ErrorIs(err, apperr.ErrValidation)

	s.repo.On("ListCustomers", mock.Anything, []uint64(nil)).Return([]*models.Customer{
		{ID: 1, Name: "Ana", Phone: "04145550101"},
		{ID: 2, Name: "Sin Teléfono"},
	}, nil).Once()
	s.repo.On("CreateCampaign", mock.Anything, mock.MatchedBy(func(c *models.Campaign) bool {
		return c.Name == "promo"
	}), mock.MatchedBy(func(ns []*models.Notification) bool {
		return len(ns) == 1 && ns[0].Body == "Hola Ana, envío gratis" && ns[0].Kind == models.NotificationKindCampaign
	})).Return(&models.Campaign{ID: 4, Name: "promo", Total: 1}, nil).Once()

	c, err := s.svc.PrepareCampaign(ctx, CampaignInput{Name: " promo ", Body: "Hola {name}, envío gratis"})
	s.Require().NoError(err)
	s.Require().Equal(uint64(4), c.ID)
}

func (s *ServiceSuite) TestPrepareRedemption() {
	s.repo.On("GetRedemption", mock.Anything, uint64(3)).
		Return(&models.PointRedemption{ID: 3, CustomerID: 7, Points: 100, Reward: "taza", Code: "PB-ABC"}, nil).Once()
	s.repo.On("GetCustomer", mock.Anything, uint64(7)).Return(&models.Customer{ID: 7, Name: "Ana", Phone: "04145550101"}, nil).Once()
	s.repo.On("CreateNotifications", mock.Anything, mock.MatchedBy(func(ns []*models.Notification) bool {
		return len(ns) == 1 && *ns[0].RedemptionID == 3 && strings.Contains(ns[0].Body, "PB-ABC")
	})).Return(1, nil).Once()

	created, err := s.svc.PrepareRedemption(context.Background(), 3)
	s.Require().NoError(err)
	s.Require().True(created)
}

func (s *ServiceSuite) TestSendTemplateTest() {
	_, err := s.svc.SendTemplateTest(context.Background(), "12", "hello_world", "")
	s.Require().ErrorIs(err, apperr.ErrValidation)

	s.repo.On("CreateNotifications", mock.Anything, mock.MatchedBy(func(ns []*models.Notification) bool {
		return len(ns) == 1 && ns[0].Kind == models.NotificationKindTemplateTest && ns[0].TemplateLanguage == "es"
	})).Run(func(args mock.Arguments) {
		args.Get(1).([]*models.Notification)[0].ID = 11
	}).Return(1, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(11), prepared, mock.Anything).
		Return(&models.Notification{ID: 11, Phone: "584145550101", TemplateName: "hello_world", TemplateLanguage: "es"}, nil).Once()
	s.wa.On("Send", mock.Anything, whatsapp.Message{To: "584145550101", Template: "hello_world", Language: "es"}).
		Return("wamid.t", nil).Once()
	s.repo.On("MarkNotificationSent", mock.Anything, uint64(11), "wamid.t").Return(nil).Once()
	s.repo.On("GetNotification", mock.Anything, uint64(11)).
		Return(&models.Notification{ID: 11, Status: models.NotificationStatusSent}, nil).Once()

	n, err := s.svc.SendTemplateTest(context.Background(), "+58 414 555 0101", "hello_world", "")
	s.Require().NoError(err)
	s.Require().Equal(models.NotificationStatusSent, n.Status)
}

func (s *ServiceSuite) TestHandleIncoming_ResponderFailureSendsGreeting() {
	s.repo.On("FindCustomerByPhone", mock.Anything, "584145550101").Return(&models.Customer{ID: 7, Name: "Ana"}, nil).Once()
	s.repo.On("SaveIncomingMessage", mock.Anything, mock.MatchedBy(func(m *models.IncomingMessage) bool {
		return m.CustomerID != nil && *m.CustomerID == 7
	})).Return(true, nil).Once()
	s.responder.On("Reply", mock.Anything, "¿llegó mi paquete?").Return("", errors.New("timeout")).Once()
	s.repo.On("CreateNotifications", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).([]*models.Notification)[0].ID = 21
	}).Return(1, nil).Once()
	s.repo.On("ClaimNotification", mock.Anything, uint64(21), prepared, mock.Anything).
		Return(&models.Notification{ID: 21, Phone: "584145550101", Body: defaultGreeting}, nil).Once()
	s.wa.On("Send", mock.Anything, whatsapp.Message{To: "584145550101", Body: defaultGreeting}).Return("wamid.r", nil).Once()
	s.repo.On("MarkNotificationSent", mock.Anything, uint64(21), "wamid.r").Return(nil).Once()

	res, err := s.svc.HandleIncoming(context.Background(), &models.IncomingMessage{
		FromPhone: "+58 414-555-0101", MessageType: "text", Content: "¿llegó mi paquete?", ProviderMessageID: "wamid.in",
	})
	s.Require().NoError(err)
	s.Require().False(res.Duplicate)
	s.Require().Equal(defaultGreeting, res.Reply.Body)
	s.Require().Equal(models.NotificationKindAutoReply, res.Reply.Kind)
	s.wa.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestHandleIncoming_DuplicateIsNotAnswered() {
	s.repo.On("FindCustomerByPhone", mock.Anything, "584145550101").Return(nil, nil).Once()
	s.repo.On("SaveIncomingMessage", mock.Anything, mock.Anything).Return(false, nil).Once()

	res, err := s.svc.HandleIncoming(context.Background(), &models.IncomingMessage{FromPhone: "584145550101", Content: "hola"})
	s.Require().NoError(err)
	s.Require().True(res.Duplicate)
	s.Require().Nil(res.Reply)
	s.responder.AssertNotCalled(s.T(), "Reply", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestApplyWhatsAppEvent() {
	ctx := context.Background()

	s.repo.On("ApplyDeliveryStatus", mock.Anything, pgparcels.DeliveryUpdate{
		MessageID: "wamid.1", Phone: "584145550101", Status: models.DeliveryStatusFailed, Error: "undeliverable",
	}).Return(uint64(5), nil).Once()
	msg := "undeliverable"
	err := s.svc.ApplyWhatsAppEvent(ctx, messages.WhatsAppEvent{
		Envelope: messages.NewEnvelope(messages.TypeWhatsAppStatus),
		Status:   &messages.WhatsAppStatus{MessageID: "wamid.1", Recipient: "584145550101", Status: "failed", Error: &msg},
	})
	s.Require().NoError(err)

	// неизвестный статус не должен блокировать очередь
	err = s.svc.ApplyWhatsAppEvent(ctx, messages.WhatsAppEvent{
		Status: &messages.WhatsAppStatus{MessageID: "wamid.2", Status: "deleted"},
	})
	s.Require().NoError(err)

	s.repo.On("ApplyDeliveryStatus", mock.Anything, mock.Anything).Return(uint64(0), errors.New("db down")).Once()
	err = s.svc.ApplyWhatsAppEvent(ctx, messages.WhatsAppEvent{
		Status: &messages.WhatsAppStatus{MessageID: "wamid.3", Status: "read"},
	})
	s.Require().Error(err)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
