package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PaymentSplit is the payment method that spreads the total over installments.
const PaymentSplit = "SPLIT"

// GuestUserID owns the orders of anonymous visitors.
const GuestUserID = "guest"

type DBLayer interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	CreateTransaction(ctx context.Context, tx models.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx models.Transaction) error
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
}

// CheckoutLock keeps a user from running two checkouts at once.
type CheckoutLock interface {
	Acquire(ctx context.Context, userID, txID string) (bool, error)
	Release(ctx context.Context, userID, txID string) error
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order models.Order, previous models.OrderStatus) error
	PublishTransactionUpdated(ctx context.Context, tx models.Transaction) error
}

type SettingsSource interface {
	Get() models.Settings
}

type Auditor interface {
	Record(actor, action, details string, severity models.Severity) models.AuditLogEntry
}

// OrderNotifier pushes order changes to the owner's live feed.
type OrderNotifier interface {
	EmitOrder(order models.Order)
}

type Metrics interface {
	CheckoutResult(outcome string)
	ObserveSettlement(d time.Duration)
	OrderStatusChanged(status, kind string)
	AddRevenue(amount float64)
}

// CartSource is the session cart being checked out. Consume removes what an
// order was built from and leaves anything added since untouched.
type CartSource interface {
	Lines() []models.CartLine
	ActiveCoupon() *models.Coupon
	Consume(lineIDs []string, couponCode string)
}

type CheckoutRequest struct {
	User             models.User
	Cart             CartSource
	DistanceKm       decimal.Decimal
	BookingDate      time.Time
	BookingSlot      string
	Address          string
	PaymentMethod    string
	IncludeInsurance bool
}

type Quote struct {
	Items        []models.OrderItem    `json:"items"`
	Breakdown    models.OrderBreakdown `json:"breakdown"`
	Installments []decimal.Decimal     `json:"installments,omitempty"`
}

type Stats struct {
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	PendingRevenue     decimal.Decimal `json:"pending_revenue"`
	OrderCount         int             `json:"order_count"`
	CompletedCount     int             `json:"completed_count"`
	CancelledCount     int             `json:"cancelled_count"`
	FailedTransactions int             `json:"failed_transactions"`
}

type OrderService struct {
	DB       DBLayer
	Lock     CheckoutLock
	Events   EventPublisher
	Settler  Settler
	Settings SettingsSource
	Audit    Auditor
	Notifier OrderNotifier
	Metrics  Metrics
	Engine   *pricing.Engine

	logger *logger.Logger
	now    func() time.Time
}

func NewOrderService(db DBLayer, lock CheckoutLock, events EventPublisher, settler Settler, settings SettingsSource, audit Auditor, l *logger.Logger) *OrderService {
	return &OrderService{
		DB:       db,
		Lock:     lock,
		Events:   events,
		Settler:  settler,
		Settings: settings,
		Audit:    audit,
		Engine:   pricing.NewEngine(),
		logger:   l,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for timestamps and lead-time checks.
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// ---------------- QUOTE ----------------

// Quote prices the cart for the given booking without any side effect.
func (s *OrderService) Quote(ctx context.Context, req CheckoutRequest) (*Quote, error) {
	return s.quote(req, s.Settings.Get())
}

func (s *OrderService) quote(req CheckoutRequest, settings models.Settings) (*Quote, error) {
	if req.Cart == nil {
		return nil, errors.Wrap(models.ErrEmptyCart, "no cart")
	}
	lines := req.Cart.Lines()

	items := make([]models.OrderItem, 0, len(lines))
	subtotal := decimal.Zero
	for i := range lines {
		line := &lines[i]
		price, err := s.Engine.PriceLine(&line.Service, line.VariantID, line.OptionIDs, line.Quantity)
		if err != nil {
			return nil, errors.WithMessagef(err, "cart line %s", line.ID)
		}
		subtotal = subtotal.Add(price.LineTotal)
		items = append(items, models.OrderItem{
			LineID:      line.ID,
			Service:     line.Service,
			VariantID:   line.VariantID,
			OptionIDs:   line.OptionIDs,
			Quantity:    line.Quantity,
			PricingMode: line.PricingMode,
			Price:       price,
		})
	}

	breakdown, err := s.Engine.ComputeOrderTotals(pricing.OrderInputs{
		Subtotal:         subtotal,
		DistanceKm:       req.DistanceKm,
		PricePerKm:       settings.PricePerKm,
		Coupon:           req.Cart.ActiveCoupon(),
		IsWeekend:        !req.BookingDate.IsZero() && pricing.IsWeekend(req.BookingDate),
		WeekendSurcharge: settings.SurchargeWeekend,
		IncludeInsurance: req.IncludeInsurance,
		InsuranceRate:    settings.InsuranceRate,
		TaxRatePercent:   settings.TaxRateDefault,
	})
	if err != nil {
		return nil, err
	}

	q := &Quote{Items: items, Breakdown: breakdown}
	if req.PaymentMethod == PaymentSplit {
		q.Installments = pricing.Installments(breakdown.Total, settings.Installments)
	}
	return q, nil
}

// ---------------- CHECKOUT ----------------

// Checkout finalizes the cart into a paid order.
//
// The transaction is recorded as PROCESSING before settlement. A declined
// settlement marks it FAILED and leaves the cart untouched. If ctx ends while
// waiting, the transaction stays PROCESSING and no order is created.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	settings := s.Settings.Get()
	if err := s.validateBooking(req, settings); err != nil {
		s.recordCheckout("invalid")
		return nil, err
	}

	q, err := s.quote(req, settings)
	if err != nil {
		s.recordCheckout("invalid")
		return nil, err
	}
	total := q.Breakdown.Total.Round(2)

	userID := req.User.ID
	if userID == "" {
		userID = GuestUserID
	}
	txID := newID("TX")
	orderID := newID("ART")

	ok, err := s.Lock.Acquire(ctx, userID, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout guard: %w", err)
	}
	if !ok {
		s.recordCheckout("conflict")
		return nil, errors.Wrapf(models.ErrCheckoutInProgress, "user %s", userID)
	}
	defer func() {
		if err := s.Lock.Release(context.Background(), userID, txID); err != nil {
			s.logger.Warn("CHECKOUT", fmt.Sprintf("Failed to release checkout guard for %s: %v", userID, err))
		}
	}()

	tx := models.Transaction{
		ID:        txID,
		OrderID:   orderID,
		Amount:    total,
		Method:    req.PaymentMethod,
		Status:    models.TransactionProcessing,
		UserName:  req.User.DisplayName(),
		Timestamp: s.now().UTC(),
	}
	if err := s.DB.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	s.logger.LogCheckout("PROCESSING", txID, fmt.Sprintf("%s %s via %s", total.StringFixed(2), settings.Currency, tx.Method))
	s.publishTransaction(ctx, tx)

	started := time.Now()
	settleErr := s.Settler.Settle(ctx, tx)
	s.observeSettlement(time.Since(started))

	// Persistence after settlement must not be lost to a cancelled request.
	persistCtx := context.WithoutCancel(ctx)

	if settleErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.logger.Warn("CHECKOUT", fmt.Sprintf("Settlement wait for %s abandoned: %v", txID, ctxErr))
			s.recordCheckout("abandoned")
			return nil, fmt.Errorf("checkout %s abandoned: %w", txID, ctxErr)
		}
		return nil, s.failTransaction(persistCtx, tx, settleErr, req.User)
	}

	if err := tx.TransitionTo(models.TransactionSuccess); err != nil {
		return nil, err
	}
	if err := s.DB.UpdateTransaction(persistCtx, tx); err != nil {
		return nil, fmt.Errorf("failed to settle transaction %s: %w", tx.ID, err)
	}

	order := models.Order{
		ID:            orderID,
		UserID:        userID,
		Items:         q.Items,
		Status:        models.OrderPaid,
		CreatedAt:     s.now().UTC(),
		PaymentMethod: req.PaymentMethod,
		BookingDate:   req.BookingDate.Format("2006-01-02"),
		BookingSlot:   req.BookingSlot,
		Address:       strings.TrimSpace(req.Address),
	}
	order.ApplyBreakdown(pricing.Rounded(q.Breakdown))

	if err := s.DB.CreateOrder(persistCtx, order); err != nil {
		s.logger.Error("CHECKOUT", fmt.Sprintf("Transaction %s settled but order %s was not stored: %v", tx.ID, orderID, err))
		return nil, fmt.Errorf("failed to create order %s: %w", orderID, err)
	}

	s.logger.LogOrder("CREATED", order.ID, fmt.Sprintf("paid %s %s, booking %s %s", order.Total.StringFixed(2), settings.Currency, order.BookingDate, order.BookingSlot))
	s.publishTransaction(persistCtx, tx)
	if err := s.Events.PublishOrderCreated(persistCtx, order); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (order created): %v", err))
	}
	s.notify(order)
	s.Audit.Record(req.User.DisplayName(), models.ActionOrder,
		fmt.Sprintf("New order placed: %s (%s %s)", order.ID, order.Total.StringFixed(2), settings.Currency), models.SeverityInfo)
	s.recordCheckout("success")
	if s.Metrics != nil {
		s.Metrics.AddRevenue(order.Total.InexactFloat64())
	}

	lineIDs := make([]string, len(q.Items))
	for i, item := range q.Items {
		lineIDs[i] = item.LineID
	}
	req.Cart.Consume(lineIDs, q.Breakdown.CouponCode)
	return &order, nil
}

func (s *OrderService) failTransaction(ctx context.Context, tx models.Transaction, cause error, user models.User) error {
	if err := tx.TransitionTo(models.TransactionFailed); err != nil {
		return err
	}
	if err := s.DB.UpdateTransaction(ctx, tx); err != nil {
		s.logger.Error("CHECKOUT", fmt.Sprintf("Failed to mark transaction %s as failed: %v", tx.ID, err))
	}
	s.logger.LogCheckout("FAILED", tx.ID, cause.Error())
	s.publishTransaction(ctx, tx)
	s.Audit.Record(user.DisplayName(), models.ActionPayment,
		fmt.Sprintf("Payment declined for transaction %s", tx.ID), models.SeverityWarning)
	s.recordCheckout("declined")

	if errors.Is(cause, models.ErrSettlementFailure) {
		return cause
	}
	return errors.Wrapf(models.ErrSettlementFailure, "transaction %s: %v", tx.ID, cause)
}

func (s *OrderService) validateBooking(req CheckoutRequest, settings models.Settings) error {
	if req.Cart == nil || len(req.Cart.Lines()) == 0 {
		return models.ErrEmptyCart
	}
	if strings.TrimSpace(req.Address) == "" {
		return errors.Wrap(models.ErrInvalidBooking, "an intervention address is required")
	}
	if !settings.HasSlot(req.BookingSlot) {
		return errors.Wrapf(models.ErrInvalidBooking, "slot %q is not offered", req.BookingSlot)
	}
	if req.BookingDate.IsZero() {
		return errors.Wrap(models.ErrInvalidBooking, "a booking date is required")
	}
	earliest := dateOnly(s.now()).AddDate(0, 0, settings.MinLeadDays)
	if dateOnly(req.BookingDate).Before(earliest) {
		return errors.Wrapf(models.ErrInvalidBooking, "earliest booking date is %s", earliest.Format("2006-01-02"))
	}
	if !settings.PaymentMethodEnabled(req.PaymentMethod) {
		return errors.Wrapf(models.ErrInvalidBooking, "payment method %q is not available", req.PaymentMethod)
	}
	return nil
}

// ---------------- LIFECYCLE ----------------

// TransitionTransaction applies a guarded transaction status change.
func (s *OrderService) TransitionTransaction(ctx context.Context, id string, next models.TransactionStatus, actor string) (*models.Transaction, error) {
	tx, err := s.DB.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// SUCCESS always comes with an order, which only checkout settlement creates.
	if next == models.TransactionSuccess {
		return nil, errors.Wrapf(models.ErrInvalidTransition, "transaction %s: %s is only reached through checkout", id, next)
	}
	if err := tx.TransitionTo(next); err != nil {
		return nil, err
	}
	if err := s.DB.UpdateTransaction(ctx, *tx); err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}

	s.logger.LogCheckout(string(next), id, "transaction status changed")
	s.publishTransaction(ctx, *tx)
	s.Audit.Record(actor, models.ActionPayment, fmt.Sprintf("Transaction %s marked %s", id, next), models.SeverityInfo)
	return tx, nil
}

func (s *OrderService) CompleteOrder(ctx context.Context, id, actor string) (*models.Order, error) {
	return s.transitionOrder(ctx, id, models.OrderCompleted, actor)
}

func (s *OrderService) CancelOrder(ctx context.Context, id, actor string) (*models.Order, error) {
	return s.transitionOrder(ctx, id, models.OrderCancelled, actor)
}

func (s *OrderService) transitionOrder(ctx context.Context, id string, next models.OrderStatus, actor string) (*models.Order, error) {
	order, err := s.DB.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	if err := order.TransitionTo(next); err != nil {
		return nil, err
	}
	if err := s.DB.UpdateOrderStatus(ctx, id, next); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}

	severity := models.SeverityInfo
	if next == models.OrderCancelled {
		severity = models.SeverityWarning
	}
	s.afterStatusChange(ctx, order, previous, "transition")
	s.Audit.Record(actor, models.ActionOrder, fmt.Sprintf("Order %s: %s -> %s", id, previous, next), severity)
	return order, nil
}

// OverrideOrderStatus is the operator escape hatch: it sets any known status
// regardless of the lifecycle and of the transaction state.
func (s *OrderService) OverrideOrderStatus(ctx context.Context, id string, status models.OrderStatus, actor string) (*models.Order, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(models.ErrInvalidSelection, "unknown order status %q", status)
	}
	order, err := s.DB.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	if err := s.DB.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to override order %s: %w", id, err)
	}
	order.Status = status

	s.afterStatusChange(ctx, order, previous, "override")
	s.Audit.Record(actor, models.ActionOrder,
		fmt.Sprintf("Manual status override for %s: %s -> %s", id, previous, status), models.SeverityWarning)
	return order, nil
}

func (s *OrderService) afterStatusChange(ctx context.Context, order *models.Order, previous models.OrderStatus, kind string) {
	s.logger.LogOrder(string(order.Status), order.ID, fmt.Sprintf("%s from %s", kind, previous))
	if err := s.Events.PublishOrderStatusChanged(ctx, *order, previous); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (order status): %v", err))
	}
	s.notify(*order)
	if s.Metrics != nil {
		s.Metrics.OrderStatusChanged(string(order.Status), kind)
	}
}

// ---------------- QUERIES ----------------

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.DB.GetOrderByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.DB.ListOrders(ctx)
}

// ListOrdersByUser lists the orders of a user; anonymous visitors share the
// guest identity.
func (s *OrderService) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		userID = GuestUserID
	}
	return s.DB.ListOrdersByUser(ctx, userID)
}

func (s *OrderService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return s.DB.GetTransactionByID(ctx, id)
}

func (s *OrderService) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return s.DB.ListTransactions(ctx)
}

// Stats aggregates revenue from settled transactions and pending revenue from
// those still PROCESSING.
func (s *OrderService) Stats(ctx context.Context) (*Stats, error) {
	txs, err := s.DB.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.DB.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{TotalRevenue: decimal.Zero, PendingRevenue: decimal.Zero, OrderCount: len(orders)}
	for _, tx := range txs {
		switch tx.Status {
		case models.TransactionSuccess:
			st.TotalRevenue = st.TotalRevenue.Add(tx.Amount)
		case models.TransactionProcessing:
			st.PendingRevenue = st.PendingRevenue.Add(tx.Amount)
		case models.TransactionFailed:
			st.FailedTransactions++
		}
	}
	for _, o := range orders {
		switch o.Status {
		case models.OrderCompleted:
			st.CompletedCount++
		case models.OrderCancelled:
			st.CancelledCount++
		}
	}
	return st, nil
}

// ---------------- HELPERS ----------------

func (s *OrderService) publishTransaction(ctx context.Context, tx models.Transaction) {
	if err := s.Events.PublishTransactionUpdated(ctx, tx); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (transaction): %v", err))
	}
}

func (s *OrderService) notify(order models.Order) {
	if s.Notifier != nil {
		s.Notifier.EmitOrder(order)
	}
}

func (s *OrderService) recordCheckout(outcome string) {
	if s.Metrics != nil {
		s.Metrics.CheckoutResult(outcome)
	}
}

func (s *OrderService) observeSettlement(d time.Duration) {
	if s.Metrics != nil {
		s.Metrics.ObserveSettlement(d)
	}
}

func newID(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
