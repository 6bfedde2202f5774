package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	"shopwave/internal/cart"
	"shopwave/internal/identity"
	"shopwave/internal/metrics"
	"shopwave/internal/models"
	"shopwave/internal/repositories"
	"shopwave/pkg/rabbitmq"
)

// OrdersPath is where the customer lands after checkout.
const OrdersPath = "/orders"

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotFound = errors.New("order not found")
)

// ShippingForm is the checkout shipping step.
type ShippingForm struct {
	FullName   string `json:"fullName" validate:"required,min=2"`
	Address    string `json:"address" validate:"required,min=5"`
	City       string `json:"city" validate:"required,min=2"`
	PostalCode string `json:"postalCode" validate:"required,min=4"`
	Country    string `json:"country" validate:"required,min=2"`
	Email      string `json:"email" validate:"required,email"`
}

// PaymentForm is validated and then dropped; card data is never stored.
type PaymentForm struct {
	CardNumber string `json:"cardNumber" validate:"required,cardnumber"`
	ExpiryDate string `json:"expiryDate" validate:"required,expiry"`
	CVV        string `json:"cvv" validate:"required,cvv"`
}

// CheckoutRequest is the body of a checkout.
type CheckoutRequest struct {
	Shipping ShippingForm `json:"shipping"`
	Payment  PaymentForm  `json:"payment"`
}

func (f ShippingForm) toAddress() models.ShippingAddress {
	return models.ShippingAddress(f)
}

// CheckoutCart is the part of a session cart checkout needs.
type CheckoutCart interface {
	Items() []models.CartItem
	ClearCart()
}

// OrderEventPublisher publishes order lifecycle events.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, evt rabbitmq.OrderCreated) error
}

// OrderService handles checkout and order history.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	profileRepo repositories.ProfileRepository
	publisher   OrderEventPublisher // nil when no broker is configured
	validate    *validator.Validate
	metrics     *metrics.AppMetrics
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, profileRepo repositories.ProfileRepository, publisher OrderEventPublisher, m *metrics.AppMetrics) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		profileRepo: profileRepo,
		publisher:   publisher,
		validate:    NewValidator(),
		metrics:     m,
	}
}

// Checkout turns the session cart into a pending order for user, saves changed
// address fields to the profile and clears the cart.
func (s *OrderService) Checkout(ctx context.Context, user *identity.User, sessionCart CheckoutCart, req CheckoutRequest, n cart.Notifier) (*models.Order, error) {
	if err := validateStruct(s.validate, req); err != nil {
		n.Notify(cart.Failure("Information Incomplete", "Please fill all required fields."))
		return nil, err
	}

	items := sessionCart.Items()
	if len(items) == 0 {
		n.Notify(cart.Info("Your cart is empty", "Please add items to your cart before checkout."))
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		UserID:          user.UID,
		Items:           models.OrderItemsFromCart(items),
		TotalAmount:     cart.Total(items),
		ShippingAddress: req.Shipping.toAddress(),
		Status:          models.OrderPending,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		log.Printf("Error placing order for %s: %v", user.UID, err)
		n.Notify(cart.Failure("Order Error", "There was an issue placing your order. Please try again."))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.metrics.RecordOrder(ctx, order.TotalAmount)

	// the order is placed at this point; later failures are logged only
	if err := s.saveAddress(ctx, user.UID, order.ShippingAddress); err != nil {
		log.Printf("Warning: could not save shipping address of order %s to profile: %v", order.ID, err)
	}

	sessionCart.ClearCart()
	s.publishCreated(ctx, user, order)

	n.Notify(cart.Info("Order Placed!", "Thank you for your purchase. Your order is being processed."))
	return order, nil
}

func (s *OrderService) saveAddress(ctx context.Context, uid string, addr models.ShippingAddress) error {
	profile, err := s.profileRepo.Get(ctx, uid)
	if err != nil {
		return err
	}
	if profile == nil {
		profile = &models.UserProfile{}
	}

	var update models.ProfileUpdate
	if profile.Address != addr.Address {
		update.Address = &addr.Address
	}
	if profile.City != addr.City {
		update.City = &addr.City
	}
	if profile.Country != addr.Country {
		update.Country = &addr.Country
	}
	if profile.PostalCode != addr.PostalCode {
		update.PostalCode = &addr.PostalCode
	}
	if update.Empty() {
		return nil
	}
	return s.profileRepo.Merge(ctx, uid, update)
}

func (s *OrderService) publishCreated(ctx context.Context, user *identity.User, order *models.Order) {
	if s.publisher == nil {
		log.Println("RabbitMQ client is not initialized. Skipping message publication.")
		return
	}
	itemCount := 0
	for _, it := range order.Items {
		itemCount += it.Quantity
	}
	evt := rabbitmq.OrderCreated{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		ItemCount:   itemCount,
		Email:       user.Email,
		CreatedAt:   order.CreatedAt,
	}
	if err := s.publisher.PublishOrderCreated(ctx, evt); err != nil {
		log.Printf("Warning: Failed to publish order created event for order %s: %v", order.ID, err)
	}
}

// ListOrders returns the orders of uid, newest first.
func (s *OrderService) ListOrders(ctx context.Context, uid string) ([]models.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns order id when it belongs to uid, ErrOrderNotFound otherwise.
func (s *OrderService) GetOrder(ctx context.Context, uid, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	if order == nil || order.UserID != uid {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
