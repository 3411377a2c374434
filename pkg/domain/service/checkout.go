package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

var (
	ErrBasketEmpty            = errors.New("basket is empty")
	ErrIllegalTransition      = errors.New("checkout cannot move to the requested state")
	ErrCustomerInfoLocked     = errors.New("delivery details can only be changed during checkout")
	ErrMissingDeliveryDetails = errors.New("delivery details are incomplete")
	ErrOrderNotSent           = errors.New("order could not be handed to the messaging channel")
	ErrStaleSession           = errors.New("checkout session has changed")
	ErrConfirmInProgress      = errors.New("order is already being sent")
)

// OrderNotSentError reports a sink failure. It matches ErrOrderNotSent and
// unwraps to the sink's own error.
type OrderNotSentError struct {
	Err error
}

func (e *OrderNotSentError) Error() string {
	return ErrOrderNotSent.Error() + ": " + e.Err.Error()
}

func (e *OrderNotSentError) Is(target error) bool { return target == ErrOrderNotSent }

func (e *OrderNotSentError) Unwrap() error { return e.Err }

const DefaultSuccessRevertDelay = 4 * time.Second

type Timer interface {
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func NewRealScheduler() Scheduler { return realScheduler{} }

type BasketView struct {
	Items []model.CartItem `json:"items"`
	Total decimal.Decimal  `json:"total"`
	Lines int              `json:"lines"`
	Units int              `json:"units"`
}

type CheckoutService interface {
	State() model.CheckoutState
	Session() uuid.UUID
	Basket() BasketView
	Customer() model.CustomerInfo

	AddItem(product model.Product)
	AdjustQuantity(productID string, delta int) error
	RemoveItem(productID string)

	Proceed() error
	UpdateCustomer(details model.CustomerDetails) error
	CaptureLocation(ctx context.Context, locator model.Locator) <-chan LocationResult
	ConfirmOrder(ctx context.Context) (model.Order, error)
	Cancel() error

	Close()
}

type CheckoutConfig struct {
	Store       model.StoreIdentity
	RevertDelay time.Duration
	Scheduler   Scheduler
	Location    *LocationCapture
	Now         func() time.Time
}

func NewCheckoutService(cfg CheckoutConfig, sink model.OrderSink, dispatcher EventDispatcher, logger log.FieldLogger) CheckoutService {
	if cfg.RevertDelay <= 0 {
		cfg.RevertDelay = DefaultSuccessRevertDelay
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewRealScheduler()
	}
	if cfg.Location == nil {
		cfg.Location = NewLocationCapture(DefaultLocationTimeout)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &checkoutService{
		state:      model.StateIdle,
		session:    uuid.New(),
		basket:     model.NewBasket(),
		cfg:        cfg,
		sink:       sink,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

type checkoutService struct {
	mu       sync.Mutex
	state    model.CheckoutState
	session  uuid.UUID
	basket   *model.Basket
	customer model.CustomerInfo
	revert   Timer
	sending  bool

	cfg        CheckoutConfig
	sink       model.OrderSink
	dispatcher EventDispatcher
	logger     log.FieldLogger
}

func (c *checkoutService) State() model.CheckoutState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *checkoutService) Session() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *checkoutService) Basket() BasketView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BasketView{
		Items: c.basket.Items(),
		Total: c.basket.Total(),
		Lines: c.basket.Len(),
		Units: c.basket.Units(),
	}
}

func (c *checkoutService) Customer() model.CustomerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyCustomer(c.customer)
}

// AddItem merges product into the basket. Adding while the success screen is
// showing starts the next session straight away.
func (c *checkoutService) AddItem(product model.Product) {
	c.mu.Lock()
	var reset *model.CheckoutReset
	if c.state == model.StateSuccess {
		reset = c.leaveSuccessLocked()
	}
	c.basket.AddItem(product)
	c.mu.Unlock()

	if reset != nil {
		_ = c.dispatcher.Dispatch(*reset)
	}
}

func (c *checkoutService) AdjustQuantity(productID string, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.basket.SetQuantity(productID, delta)
}

func (c *checkoutService) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.basket.RemoveItem(productID)
}

func (c *checkoutService) Proceed() error {
	c.mu.Lock()
	if c.state != model.StateIdle {
		c.mu.Unlock()
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", c.state, model.StateDetails)
	}
	if c.basket.IsEmpty() {
		c.mu.Unlock()
		return ErrBasketEmpty
	}
	c.state = model.StateDetails
	evt := model.CheckoutStarted{SessionID: c.session, Lines: c.basket.Len()}
	c.mu.Unlock()

	_ = c.dispatcher.Dispatch(evt)
	return nil
}

func (c *checkoutService) UpdateCustomer(details model.CustomerDetails) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != model.StateDetails {
		return ErrCustomerInfoLocked
	}
	c.customer.CustomerDetails = details
	return nil
}

// CaptureLocation asks locator for a fix and stores it on the customer if the
// session that requested it is still collecting details when the fix arrives.
func (c *checkoutService) CaptureLocation(ctx context.Context, locator model.Locator) <-chan LocationResult {
	out := make(chan LocationResult, 1)

	c.mu.Lock()
	if c.state != model.StateDetails {
		c.mu.Unlock()
		out <- LocationResult{Err: ErrCustomerInfoLocked}
		close(out)
		return out
	}
	token := c.session
	c.mu.Unlock()

	pending := c.cfg.Location.Capture(ctx, locator)
	go func() {
		defer close(out)
		res := <-pending
		if res.Err != nil {
			c.logger.WithError(res.Err).WithField("session", token).Info("location capture failed")
			out <- res
			return
		}
		if err := c.applyLocation(token, res.Location); err != nil {
			c.logger.WithField("session", token).Info("dropping location for a finished session")
			out <- LocationResult{Location: res.Location, Err: err}
			return
		}
		out <- res
	}()
	return out
}

func (c *checkoutService) applyLocation(token uuid.UUID, loc model.Coordinates) error {
	c.mu.Lock()
	if c.session != token || c.state != model.StateDetails {
		c.mu.Unlock()
		return ErrStaleSession
	}
	c.customer.Location = &loc
	c.mu.Unlock()

	_ = c.dispatcher.Dispatch(model.LocationCaptured{SessionID: token, Location: loc})
	return nil
}

// ConfirmOrder builds the order under the lock and hands it to the sink without
// holding it. Basket lines added while the send is in flight stay in the basket.
func (c *checkoutService) ConfirmOrder(ctx context.Context) (model.Order, error) {
	c.mu.Lock()
	order, err := c.prepareOrderLocked()
	if err != nil {
		c.mu.Unlock()
		return model.Order{}, err
	}
	c.sending = true
	c.mu.Unlock()

	sendErr := c.sink.Send(ctx, order)

	c.mu.Lock()
	c.sending = false
	if sendErr != nil {
		c.mu.Unlock()
		c.logger.WithError(sendErr).WithField("order_id", order.ID).Error("failed to send order")
		return model.Order{}, &OrderNotSentError{Err: sendErr}
	}
	if c.session != order.SessionID || c.state != model.StateDetails {
		c.mu.Unlock()
		c.logger.WithField("order_id", order.ID).Warn("order sent for a session that has moved on")
		return model.Order{}, ErrStaleSession
	}

	for _, item := range order.Items {
		c.basket.RemoveItem(item.ID)
	}
	c.state = model.StateSuccess
	c.session = uuid.New()
	c.customer.Location = nil
	c.scheduleRevertLocked(c.session)
	c.mu.Unlock()

	c.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"lines":    len(order.Items),
		"total":    order.Total.String(),
	}).Info("order placed")
	_ = c.dispatcher.Dispatch(model.OrderPlaced{OrderID: order.ID, SessionID: order.SessionID, Total: order.Total})

	return order, nil
}

func (c *checkoutService) prepareOrderLocked() (model.Order, error) {
	if c.sending {
		return model.Order{}, errors.Wrap(ErrIllegalTransition, ErrConfirmInProgress.Error())
	}
	if c.state != model.StateDetails {
		return model.Order{}, errors.Wrapf(ErrIllegalTransition, "%s -> %s", c.state, model.StateSuccess)
	}
	if c.basket.IsEmpty() {
		return model.Order{}, ErrBasketEmpty
	}
	if missing := missingDetails(c.customer.CustomerDetails); len(missing) > 0 {
		return model.Order{}, errors.Wrapf(ErrMissingDeliveryDetails, "missing %s", strings.Join(missing, ", "))
	}

	items := c.basket.Items()
	customer := copyCustomer(c.customer)
	message := FormatOrderMessage(c.cfg.Store, customer, items)
	return model.Order{
		ID:          uuid.New(),
		SessionID:   c.session,
		Destination: c.cfg.Store.Destination,
		Message:     message,
		Link:        OrderLink(c.cfg.Store, message),
		Total:       c.basket.Total(),
		Items:       items,
		Customer:    customer,
		PlacedAt:    c.cfg.Now().UTC(),
	}, nil
}

// Cancel returns to browsing. Typed delivery details are kept for the next attempt.
func (c *checkoutService) Cancel() error {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return errors.Wrap(ErrIllegalTransition, ErrConfirmInProgress.Error())
	}
	if c.state != model.StateDetails {
		c.mu.Unlock()
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", c.state, model.StateIdle)
	}
	c.state = model.StateIdle
	evt := model.CheckoutCancelled{SessionID: c.session}
	c.mu.Unlock()

	_ = c.dispatcher.Dispatch(evt)
	return nil
}

func (c *checkoutService) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
}

func (c *checkoutService) scheduleRevertLocked(token uuid.UUID) {
	if c.revert != nil {
		c.revert.Stop()
	}
	c.revert = c.cfg.Scheduler.AfterFunc(c.cfg.RevertDelay, func() {
		c.revertToIdle(token)
	})
}

func (c *checkoutService) revertToIdle(token uuid.UUID) {
	c.mu.Lock()
	if c.state != model.StateSuccess || c.session != token {
		c.mu.Unlock()
		return
	}
	c.state = model.StateIdle
	c.revert = nil
	c.mu.Unlock()

	_ = c.dispatcher.Dispatch(model.CheckoutReset{SessionID: token})
}

func (c *checkoutService) leaveSuccessLocked() *model.CheckoutReset {
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
	c.state = model.StateIdle
	return &model.CheckoutReset{SessionID: c.session}
}

func missingDetails(d model.CustomerDetails) []string {
	var missing []string
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(d.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(d.Address) == "" {
		missing = append(missing, "address")
	}
	return missing
}

func copyCustomer(info model.CustomerInfo) model.CustomerInfo {
	if info.Location != nil {
		loc := *info.Location
		info.Location = &loc
	}
	return info
}
