package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/repository"
	"github.com/ambakhtiar/MediStore-Backend/internal/service"
	transport "github.com/ambakhtiar/MediStore-Backend/internal/transport/http"
	"github.com/ambakhtiar/MediStore-Backend/internal/transport/http/handler"
	"github.com/ambakhtiar/MediStore-Backend/pkg/config"
	outbox "github.com/ambakhtiar/MediStore-Backend/pkg/outbox/repository"
	"github.com/ambakhtiar/MediStore-Backend/pkg/testsuite"
	"github.com/ambakhtiar/MediStore-Backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const testSecret = "transport-test-secret"

type noopCache struct{}

func (noopCache) InvalidateMedicine(context.Context, int64) {}

// every response carries the same two fields
type responseEnvelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type RouterSuite struct {
	testsuite.BaseSuite

	app *fiber.App

	userRepo     repository.UserRepository
	medicineRepo repository.MedicineRepository
	categoryRepo repository.CategoryRepository
	orderRepo    repository.OrderRepository

	cartService  service.CartService
	orderService service.OrderService

	categoryID int64
	userSeq    int
}

func TestRouterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	s.SetupInfrastructure("../../../migrations")

	logger := zap.NewNop()

	s.userRepo = repository.NewUserRepository(s.DbPool, logger)
	s.medicineRepo = repository.NewMedicineRepository(s.DbPool, logger)
	s.categoryRepo = repository.NewCategoryRepository(s.DbPool, logger)
	cartRepo := repository.NewCartRepository(s.DbPool, logger)
	s.orderRepo = repository.NewOrderRepository(s.DbPool, logger)
	reviewRepo := repository.NewReviewRepository(s.DbPool, logger)
	outboxRepo := outbox.NewOutboxRepository(s.DbPool, logger)

	authCfg := config.Auth{AccessTTL: 15 * time.Minute, Secret: testSecret}

	authService := service.NewAuthService(s.userRepo, authCfg, logger)
	medicineService := service.NewMedicineService(s.medicineRepo, logger)
	categoryService := service.NewCategoryService(s.categoryRepo, logger)
	s.cartService = service.NewCartService(cartRepo, logger)
	s.orderService = service.NewOrderService(
		s.DbPool,
		logger,
		s.orderRepo,
		cartRepo,
		s.medicineRepo,
		outboxRepo,
		noopCache{},
	)
	reviewService := service.NewReviewService(reviewRepo, s.medicineRepo, logger)

	s.app = fiber.New()
	transport.RegisterRoutes(s.app, &transport.Handlers{
		Auth:     handler.NewAuthHandler(authService, logger),
		Medicine: handler.NewMedicineHandler(medicineService, logger),
		Category: handler.NewCategoryHandler(categoryService, logger),
		Cart:     handler.NewCartHandler(s.cartService, logger),
		Order:    handler.NewOrderHandler(s.orderService, logger),
		Review:   handler.NewReviewHandler(reviewService, logger),
	}, testSecret)

	category := &domain.Category{Name: "Vitamins"}
	_, err := s.categoryRepo.Create(s.Ctx, category)
	s.Require().NoError(err)
	s.categoryID = category.ID
}

func (s *RouterSuite) TearDownSuite() {
	s.TearDownInfrastructure()
}

func (s *RouterSuite) SetupTest() {
	s.TruncateTable("outbox")
	s.TruncateTable("order_items")
	s.TruncateTable("orders")
	s.TruncateTable("cart_items")
	s.TruncateTable("carts")
	s.TruncateTable("medicines")
}

func (s *RouterSuite) createUser(role domain.Role) int64 {
	s.userSeq++

	user := &domain.User{
		Name:         fmt.Sprintf("http-user-%d", s.userSeq),
		Email:        fmt.Sprintf("http-user-%d@test.local", s.userSeq),
		PasswordHash: "hash",
		Role:         role,
	}

	_, err := s.userRepo.Create(s.Ctx, user)
	s.Require().NoError(err)

	return user.ID
}

func (s *RouterSuite) tokenFor(userID int64, role domain.Role) string {
	token, err := utils.GenerateToken(userID, string(role), testSecret, time.Minute)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) createMedicine(sellerID, price int64, stock int32) int64 {
	medicine := &domain.Medicine{
		SellerID:   sellerID,
		CategoryID: s.categoryID,
		Name:       fmt.Sprintf("http-medicine-%d-%d", sellerID, price),
		Price:      price,
		Stock:      stock,
		IsActive:   true,
	}

	_, err := s.medicineRepo.Create(s.Ctx, medicine)
	s.Require().NoError(err)

	return medicine.ID
}

func (s *RouterSuite) addToCart(userID, medicineID int64, quantity int32) {
	_, err := s.cartService.AddItem(s.Ctx, userID, medicineID, quantity)
	s.Require().NoError(err)
}

func (s *RouterSuite) request(method, path, token string, body any) (int, responseEnvelope) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var env responseEnvelope
	s.Require().NoError(json.Unmarshal(raw, &env), "body is not the {message,data} envelope: %s", raw)
	s.Require().NotEmpty(env.Message)

	return resp.StatusCode, env
}

func (s *RouterSuite) shippingBody() fiber.Map {
	return fiber.Map{
		"shipping_phone":   "+880123456789",
		"shipping_address": "12 Test Street, Dhaka",
	}
}

func (s *RouterSuite) TestPlaceOrder_Created() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	paracetamol := s.createMedicine(seller, 1000, 5)
	ibuprofen := s.createMedicine(seller, 500, 2)

	s.addToCart(customer, paracetamol, 3)
	s.addToCart(customer, ibuprofen, 1)

	status, env := s.request(http.MethodPost, "/api/orders", s.tokenFor(customer, domain.RoleCustomer), s.shippingBody())

	s.Equal(http.StatusCreated, status)
	s.Equal("order placed", env.Message)

	var order domain.Order
	s.Require().NoError(json.Unmarshal(env.Data, &order))
	s.Equal(domain.OrderStatusPlaced, order.Status)
	s.EqualValues(3500, order.TotalSum)
	s.Len(order.Items, 2)
}

func (s *RouterSuite) TestPlaceOrder_EmptyCart() {
	customer := s.createUser(domain.RoleCustomer)

	status, env := s.request(http.MethodPost, "/api/orders", s.tokenFor(customer, domain.RoleCustomer), s.shippingBody())

	s.Equal(http.StatusBadRequest, status)
	s.Equal("cart is empty", env.Message)
}

func (s *RouterSuite) TestPlaceOrder_InsufficientStock() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 5)

	newStock := int32(2)
	s.Require().NoError(s.medicineRepo.Update(s.Ctx, medicine, &domain.UpdateMedicineInput{Stock: &newStock}))

	status, _ := s.request(http.MethodPost, "/api/orders", s.tokenFor(customer, domain.RoleCustomer), s.shippingBody())

	s.Equal(http.StatusConflict, status)
}

func (s *RouterSuite) TestPlaceOrder_SellerForbidden() {
	seller := s.createUser(domain.RoleSeller)

	status, _ := s.request(http.MethodPost, "/api/orders", s.tokenFor(seller, domain.RoleSeller), s.shippingBody())

	s.Equal(http.StatusForbidden, status)
}

func (s *RouterSuite) TestChangeStatus_SellerOutsideOrder() {
	seller := s.createUser(domain.RoleSeller)
	otherSeller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, domain.ShippingDetails{
		Phone:   "+880123456789",
		Address: "12 Test Street, Dhaka",
	})
	s.Require().NoError(err)

	path := fmt.Sprintf("/api/orders/seller/%d/status", order.ID)
	status, _ := s.request(http.MethodPatch, path, s.tokenFor(otherSeller, domain.RoleSeller), fiber.Map{"status": "PROCESSING"})

	s.Equal(http.StatusForbidden, status)

	current, err := s.orderRepo.GetByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPlaced, current.Status)
}

func (s *RouterSuite) TestChangeStatus_UnknownStatusValue() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, domain.ShippingDetails{
		Phone:   "+880123456789",
		Address: "12 Test Street, Dhaka",
	})
	s.Require().NoError(err)

	path := fmt.Sprintf("/api/orders/seller/%d/status", order.ID)
	status, _ := s.request(http.MethodPatch, path, s.tokenFor(seller, domain.RoleSeller), fiber.Map{"status": "REFUNDED"})

	s.Equal(http.StatusBadRequest, status)
}

func (s *RouterSuite) TestCancelOrder_NonOwnerGetsNotFound() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, domain.ShippingDetails{
		Phone:   "+880123456789",
		Address: "12 Test Street, Dhaka",
	})
	s.Require().NoError(err)

	// the cancel route is open to any authenticated role; non-owners fall
	// out of the service's ownership scope as 404, never 403
	path := fmt.Sprintf("/api/orders/%d/cancel", order.ID)
	status, _ := s.request(http.MethodPatch, path, s.tokenFor(seller, domain.RoleSeller), nil)

	s.Equal(http.StatusNotFound, status)

	current, err := s.orderRepo.GetByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPlaced, current.Status)
}

func (s *RouterSuite) TestCancelOrder_Owner() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 2)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, domain.ShippingDetails{
		Phone:   "+880123456789",
		Address: "12 Test Street, Dhaka",
	})
	s.Require().NoError(err)

	path := fmt.Sprintf("/api/orders/%d/cancel", order.ID)
	status, env := s.request(http.MethodPatch, path, s.tokenFor(customer, domain.RoleCustomer), nil)

	s.Equal(http.StatusOK, status)
	s.Equal("order cancelled", env.Message)

	var cancelled domain.Order
	s.Require().NoError(json.Unmarshal(env.Data, &cancelled))
	s.Equal(domain.OrderStatusCancelled, cancelled.Status)
}

func (s *RouterSuite) TestCreateMedicine_ZeroPriceAccepted() {
	seller := s.createUser(domain.RoleSeller)

	status, env := s.request(http.MethodPost, "/api/medicines", s.tokenFor(seller, domain.RoleSeller), fiber.Map{
		"category_id": s.categoryID,
		"name":        "free sample sachet",
		"price":       0,
		"stock":       3,
	})

	s.Equal(http.StatusCreated, status)

	var created struct {
		ID int64 `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &created))

	medicine, err := s.medicineRepo.GetByID(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Zero(medicine.Price)
}

func (s *RouterSuite) TestAuth_MissingAndInvalidToken() {
	status, env := s.request(http.MethodGet, "/api/me", "", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Contains(env.Message, "Unauthorized")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestGetOrder_UnknownID() {
	customer := s.createUser(domain.RoleCustomer)

	status, _ := s.request(http.MethodGet, "/api/orders/999999", s.tokenFor(customer, domain.RoleCustomer), nil)
	s.Equal(http.StatusNotFound, status)
}
