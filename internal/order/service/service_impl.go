package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/orderpay/internal/clock"
	"github.com/railzwaylabs/orderpay/internal/config"
	"github.com/railzwaylabs/orderpay/internal/money"
	"github.com/railzwaylabs/orderpay/internal/observability"
	"github.com/railzwaylabs/orderpay/internal/order/domain"
	"github.com/railzwaylabs/orderpay/internal/order/sequence"
	paymentdomain "github.com/railzwaylabs/orderpay/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxCASAttempts bounds how often a status write is retried after losing a race.
const maxCASAttempts = 3

// PaymentMethods reports which gateways can take payment for an order.
type PaymentMethods interface {
	ProviderExists(provider string) bool
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Sequencer domain.Sequencer
	Methods   PaymentMethods
	Clock     clock.Clock
	Config    config.Config
	Metrics   *observability.Metrics
	Notifier  domain.Notifier `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	seq       domain.Sequencer
	methods   PaymentMethods
	clock     clock.Clock
	metrics   *observability.Metrics
	notifier  domain.Notifier
	prefix    string
	checkSums bool
}

func New(p Params) domain.Service {
	prefix := strings.TrimSpace(p.Config.Orders.NumberPrefix)
	if prefix == "" {
		prefix = "ORD"
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		seq:       p.Sequencer,
		methods:   p.Methods,
		clock:     p.Clock,
		metrics:   metrics,
		notifier:  p.Notifier,
		prefix:    prefix,
		checkSums: p.Config.Orders.VerifyItemSubtotal,
	}
}

func (s *Service) CreateOrder(ctx context.Context, userID string, req domain.CreateOrderRequest) (*domain.CreateOrderResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	req = normalizeCreate(req)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.methods.ProviderExists(req.PaymentMethod) {
		return nil, &domain.ValidationError{Field: "paymentMethod", Reason: "unsupported payment method " + req.PaymentMethod}
	}
	subtotal := money.ToMinor(req.Subtotal)
	if s.checkSums && req.ItemsSubtotal() != subtotal {
		return nil, &domain.ValidationError{Field: "subtotal", Reason: "does not match the sum of item prices"}
	}

	items := make([]domain.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: money.ToMinor(it.Price),
		})
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	shippingJSON, err := json.Marshal(req.ShippingAddress)
	if err != nil {
		return nil, err
	}
	billingJSON, err := json.Marshal(req.BillingAddress)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	n, err := s.seq.Next(ctx, now.Format(sequence.DayLayout))
	if err != nil {
		return nil, err
	}

	var notes *string
	if req.CustomerNotes != "" {
		notes = &req.CustomerNotes
	}

	order := &domain.Order{
		ID:              s.genID.Generate(),
		OrderNumber:     sequence.Format(s.prefix, now, n),
		UserID:          userID,
		Items:           datatypes.JSON(itemsJSON),
		ShippingAddress: datatypes.JSON(shippingJSON),
		BillingAddress:  datatypes.JSON(billingJSON),
		ShippingMethod:  req.ShippingMethod,
		PaymentMethod:   req.PaymentMethod,
		CustomerNotes:   notes,
		Status:          domain.StatusPendingPayment,
		Subtotal:        subtotal,
		Shipping:        money.ToMinor(req.Shipping),
		Tax:             money.ToMinor(req.Tax),
		Total:           money.ToMinor(req.Total),
		Currency:        req.Currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, s.db, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	s.metrics.OrdersCreated.Inc()
	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_method", order.PaymentMethod),
		zap.Int64("total", order.Total),
		zap.String("currency", order.Currency))

	return &domain.CreateOrderResult{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
	}, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID string, status paymentdomain.CanonicalStatus, transactionID string) error {
	id, err := parseID(orderID)
	if err != nil {
		return err
	}
	transactionID = strings.TrimSpace(transactionID)

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		order, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return fmt.Errorf("load order %s: %w", orderID, err)
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}

		next, apply, err := decidePayment(order, status, transactionID)
		if err != nil {
			s.log.Warn("rejected payment status update",
				zap.String("order_id", orderID),
				zap.String("current_status", string(order.Status)),
				zap.String("stored_transaction_id", order.Transaction()),
				zap.String("incoming_status", string(status)),
				zap.String("incoming_transaction_id", transactionID))
			return err
		}
		if !apply {
			return nil
		}

		now := s.clock.Now(ctx)
		change := domain.StatusChange{
			OrderID:     order.ID,
			FromStatus:  order.Status,
			FromVersion: order.Version,
			ToStatus:    next,
			UpdatedAt:   now,
		}
		if transactionID != "" {
			change.TransactionID = &transactionID
		}
		switch next {
		case domain.StatusPaid:
			change.PaidAt = &now
		case domain.StatusFailed:
			change.FailedAt = &now
		}

		ok, err := s.repo.CompareAndSetStatus(ctx, s.db, change)
		if err != nil {
			return fmt.Errorf("update order %s: %w", orderID, err)
		}
		if !ok {
			s.log.Debug("lost status update race, re-evaluating",
				zap.String("order_id", orderID),
				zap.Int("attempt", attempt+1))
			continue
		}

		order.Status = next
		order.Version++
		order.TransactionID = change.TransactionID
		order.PaidAt = change.PaidAt
		order.FailedAt = change.FailedAt
		order.UpdatedAt = now

		s.metrics.PaymentTransitions.WithLabelValues(string(next)).Inc()
		s.log.Info("order payment status updated",
			zap.String("order_id", orderID),
			zap.String("status", string(next)),
			zap.String("transaction_id", transactionID))
		s.notify(ctx, order)
		return nil
	}

	return domain.ErrConcurrentUpdate
}

func (s *Service) AdvanceFulfillment(ctx context.Context, orderID string, to domain.Status) (*domain.Order, error) {
	id, err := parseID(orderID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		order, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, fmt.Errorf("load order %s: %w", orderID, err)
		}
		if order == nil {
			return nil, domain.ErrOrderNotFound
		}

		next, ok := order.Status.NextFulfillment()
		if !ok || next != to {
			return nil, domain.ErrInvalidTransition
		}

		now := s.clock.Now(ctx)
		applied, err := s.repo.CompareAndSetStatus(ctx, s.db, domain.StatusChange{
			OrderID:     order.ID,
			FromStatus:  order.Status,
			FromVersion: order.Version,
			ToStatus:    next,
			UpdatedAt:   now,
		})
		if err != nil {
			return nil, fmt.Errorf("update order %s: %w", orderID, err)
		}
		if !applied {
			continue
		}

		order.Status = next
		order.Version++
		order.UpdatedAt = now
		s.log.Info("order fulfillment advanced",
			zap.String("order_id", orderID),
			zap.String("status", string(next)))
		return order, nil
	}

	return nil, domain.ErrConcurrentUpdate
}

func (s *Service) notify(ctx context.Context, order *domain.Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderSettled(ctx, order); err != nil {
		s.log.Warn("order notification failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}

// decidePayment returns the status to move to and whether a write is needed.
func decidePayment(order *domain.Order, status paymentdomain.CanonicalStatus, transactionID string) (domain.Status, bool, error) {
	if !order.Status.IsTerminal() {
		switch status {
		case paymentdomain.CanonicalSuccess:
			return domain.StatusPaid, true, nil
		case paymentdomain.CanonicalFailed:
			return domain.StatusFailed, true, nil
		case paymentdomain.CanonicalPending:
			return order.Status, false, nil
		default:
			return "", false, domain.ErrInvalidTransition
		}
	}

	// Replays of the settling delivery are acknowledged without side effects.
	if order.Transaction() != transactionID {
		return "", false, domain.ErrInvalidTransition
	}
	switch {
	case status == paymentdomain.CanonicalSuccess && order.Status.Paid():
		return order.Status, false, nil
	case status == paymentdomain.CanonicalFailed && order.Status == domain.StatusFailed:
		return order.Status, false, nil
	default:
		return "", false, domain.ErrInvalidTransition
	}
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed <= 0 {
		return 0, domain.ErrOrderNotFound
	}
	return parsed, nil
}

func normalizeCreate(req domain.CreateOrderRequest) domain.CreateOrderRequest {
	req.ShippingMethod = strings.TrimSpace(req.ShippingMethod)
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	req.CustomerNotes = strings.TrimSpace(req.CustomerNotes)
	req.Currency = paymentdomain.NormalizeCurrency(req.Currency)
	items := make([]domain.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		it.Name = strings.TrimSpace(it.Name)
		it.ProductID = strings.TrimSpace(it.ProductID)
		items[i] = it
	}
	req.Items = items
	return req
}
