package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/internal/repository"
	"github.com/ambakhtiar/MediStore-Backend/internal/service"
	"github.com/ambakhtiar/MediStore-Backend/pkg/apperr"
	outbox "github.com/ambakhtiar/MediStore-Backend/pkg/outbox/repository"
	"github.com/ambakhtiar/MediStore-Backend/pkg/testsuite"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type noopCache struct{}

func (noopCache) InvalidateMedicine(context.Context, int64) {}

type OrderServiceSuite struct {
	testsuite.BaseSuite

	userRepo     repository.UserRepository
	medicineRepo repository.MedicineRepository
	categoryRepo repository.CategoryRepository
	cartRepo     repository.CartRepository
	orderRepo    repository.OrderRepository

	orderService service.OrderService
	cartService  service.CartService

	categoryID int64
	userSeq    int
}

func TestOrderServiceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupSuite() {
	s.SetupInfrastructure("../../migrations")

	logger := zap.NewNop()

	s.userRepo = repository.NewUserRepository(s.DbPool, logger)
	s.medicineRepo = repository.NewMedicineRepository(s.DbPool, logger)
	s.categoryRepo = repository.NewCategoryRepository(s.DbPool, logger)
	s.cartRepo = repository.NewCartRepository(s.DbPool, logger)
	s.orderRepo = repository.NewOrderRepository(s.DbPool, logger)
	outboxRepo := outbox.NewOutboxRepository(s.DbPool, logger)

	s.orderService = service.NewOrderService(
		s.DbPool,
		logger,
		s.orderRepo,
		s.cartRepo,
		s.medicineRepo,
		outboxRepo,
		noopCache{},
	)
	s.cartService = service.NewCartService(s.cartRepo, logger)

	category := &domain.Category{Name: "Painkillers"}
	_, err := s.categoryRepo.Create(s.Ctx, category)
	s.Require().NoError(err)
	s.categoryID = category.ID
}

func (s *OrderServiceSuite) TearDownSuite() {
	s.TearDownInfrastructure()
}

func (s *OrderServiceSuite) SetupTest() {
	s.TruncateTable("outbox")
	s.TruncateTable("order_items")
	s.TruncateTable("orders")
	s.TruncateTable("cart_items")
	s.TruncateTable("carts")
	s.TruncateTable("medicines")
}

func (s *OrderServiceSuite) createUser(role domain.Role) int64 {
	s.userSeq++

	user := &domain.User{
		Name:         fmt.Sprintf("user-%d", s.userSeq),
		Email:        fmt.Sprintf("user-%d@test.local", s.userSeq),
		PasswordHash: "hash",
		Role:         role,
	}

	_, err := s.userRepo.Create(s.Ctx, user)
	s.Require().NoError(err)

	return user.ID
}

func (s *OrderServiceSuite) createMedicine(sellerID, price int64, stock int32) int64 {
	medicine := &domain.Medicine{
		SellerID:   sellerID,
		CategoryID: s.categoryID,
		Name:       fmt.Sprintf("medicine-%d-%d", sellerID, price),
		Price:      price,
		Stock:      stock,
		IsActive:   true,
	}

	_, err := s.medicineRepo.Create(s.Ctx, medicine)
	s.Require().NoError(err)

	return medicine.ID
}

func (s *OrderServiceSuite) addToCart(userID, medicineID int64, quantity int32) {
	_, err := s.cartService.AddItem(s.Ctx, userID, medicineID, quantity)
	s.Require().NoError(err)
}

func (s *OrderServiceSuite) stockOf(medicineID int64) int32 {
	medicine, err := s.medicineRepo.GetByID(s.Ctx, medicineID)
	s.Require().NoError(err)
	return medicine.Stock
}

func (s *OrderServiceSuite) shipping() domain.ShippingDetails {
	return domain.ShippingDetails{
		Name:    "Test Buyer",
		Phone:   "+880123456789",
		Address: "12 Test Street, Dhaka",
	}
}

func (s *OrderServiceSuite) TestPlaceOrder_FreezesPricesAndReservesStock() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	paracetamol := s.createMedicine(seller, 1000, 5)
	ibuprofen := s.createMedicine(seller, 500, 2)

	s.addToCart(customer, paracetamol, 3)
	s.addToCart(customer, ibuprofen, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	s.Equal(domain.OrderStatusPlaced, order.Status)
	s.EqualValues(3500, order.TotalSum)
	s.Len(order.Items, 2)

	s.EqualValues(2, s.stockOf(paracetamol))
	s.EqualValues(1, s.stockOf(ibuprofen))

	cart, err := s.cartRepo.View(s.Ctx, customer)
	s.Require().NoError(err)
	s.Empty(cart.Items)

	var outboxCount int
	err = s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM outbox WHERE event_type = 'OrderPlaced'").Scan(&outboxCount)
	s.Require().NoError(err)
	s.Equal(1, outboxCount)
}

func (s *OrderServiceSuite) TestPlaceOrder_PriceChangeAfterAddToCart() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 2)

	newPrice := int64(1500)
	s.Require().NoError(s.medicineRepo.Update(s.Ctx, medicine, &domain.UpdateMedicineInput{Price: &newPrice}))

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	s.EqualValues(3000, order.TotalSum)
	s.EqualValues(1500, order.Items[0].Price)
}

func (s *OrderServiceSuite) TestPlaceOrder_EmptyCart() {
	customer := s.createUser(domain.RoleCustomer)

	_, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().Error(err)
	s.Equal(apperr.Validation, apperr.KindOf(err))
}

func (s *OrderServiceSuite) TestPlaceOrder_InsufficientStock() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 5)

	newStock := int32(2)
	s.Require().NoError(s.medicineRepo.Update(s.Ctx, medicine, &domain.UpdateMedicineInput{Stock: &newStock}))

	_, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().Error(err)
	s.Equal(apperr.Conflict, apperr.KindOf(err))

	s.EqualValues(2, s.stockOf(medicine))

	var orderCount int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM orders").Scan(&orderCount))
	s.Zero(orderCount)

	cart, err := s.cartRepo.View(s.Ctx, customer)
	s.Require().NoError(err)
	s.Len(cart.Items, 1)
}

func (s *OrderServiceSuite) TestPlaceOrder_DelistedMedicine() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	inactive := false
	s.Require().NoError(s.medicineRepo.Update(s.Ctx, medicine, &domain.UpdateMedicineInput{IsActive: &inactive}))

	_, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().Error(err)
	s.Equal(apperr.NotFound, apperr.KindOf(err))
}

func (s *OrderServiceSuite) TestPlaceOrder_ConcurrentLastUnit() {
	seller := s.createUser(domain.RoleSeller)
	alice := s.createUser(domain.RoleCustomer)
	bob := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 1)
	s.addToCart(alice, medicine, 1)
	s.addToCart(bob, medicine, 1)

	var wg sync.WaitGroup
	results := make([]error, 2)

	for i, buyer := range []int64{alice, bob} {
		wg.Add(1)
		go func(i int, buyer int64) {
			defer wg.Done()
			_, results[i] = s.orderService.PlaceOrder(s.Ctx, buyer, s.shipping())
		}(i, buyer)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if apperr.KindOf(err) == apperr.Conflict {
			conflicted++
		}
	}

	s.Equal(1, succeeded)
	s.Equal(1, conflicted)
	s.Zero(s.stockOf(medicine))
}

func (s *OrderServiceSuite) TestCancelOwnOrder_RestoresStock() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 3)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)
	s.EqualValues(2, s.stockOf(medicine))

	cancelled, err := s.orderService.CancelOwnOrder(s.Ctx, customer, order.ID)
	s.Require().NoError(err)

	s.Equal(domain.OrderStatusCancelled, cancelled.Status)
	s.EqualValues(5, s.stockOf(medicine))
}

func (s *OrderServiceSuite) TestCancelOwnOrder_OnlyFromPlaced() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	sellerActor := domain.Actor{UserID: seller, Role: domain.RoleSeller}
	_, err = s.orderService.ChangeStatus(s.Ctx, sellerActor, order.ID, domain.OrderStatusProcessing)
	s.Require().NoError(err)

	_, err = s.orderService.CancelOwnOrder(s.Ctx, customer, order.ID)
	s.Require().Error(err)
	s.Equal(apperr.Validation, apperr.KindOf(err))

	current, err := s.orderRepo.GetByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusProcessing, current.Status)
	s.EqualValues(4, s.stockOf(medicine))
}

func (s *OrderServiceSuite) TestCancelOwnOrder_StrangerGetsNotFound() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)
	stranger := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	_, err = s.orderService.CancelOwnOrder(s.Ctx, stranger, order.ID)
	s.Require().Error(err)
	s.Equal(apperr.NotFound, apperr.KindOf(err))
}

func (s *OrderServiceSuite) TestChangeStatus_FullLifecycle() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	sellerActor := domain.Actor{UserID: seller, Role: domain.RoleSeller}

	for _, target := range []domain.OrderStatus{
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		updated, err := s.orderService.ChangeStatus(s.Ctx, sellerActor, order.ID, target)
		s.Require().NoError(err)
		s.Equal(target, updated.Status)
	}

	var eventCount int
	err = s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM outbox WHERE event_type = 'OrderStatusChanged'").Scan(&eventCount)
	s.Require().NoError(err)
	s.Equal(3, eventCount)
}

func (s *OrderServiceSuite) TestChangeStatus_IllegalTransition() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	sellerActor := domain.Actor{UserID: seller, Role: domain.RoleSeller}

	_, err = s.orderService.ChangeStatus(s.Ctx, sellerActor, order.ID, domain.OrderStatusDelivered)
	s.Require().Error(err)
	s.Equal(apperr.IllegalTransition, apperr.KindOf(err))

	current, err := s.orderRepo.GetByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPlaced, current.Status)
}

func (s *OrderServiceSuite) TestChangeStatus_CancelAfterShipmentRejected() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	sellerActor := domain.Actor{UserID: seller, Role: domain.RoleSeller}

	_, err = s.orderService.ChangeStatus(s.Ctx, sellerActor, order.ID, domain.OrderStatusProcessing)
	s.Require().NoError(err)
	_, err = s.orderService.ChangeStatus(s.Ctx, sellerActor, order.ID, domain.OrderStatusShipped)
	s.Require().NoError(err)

	_, err = s.orderService.ChangeStatus(s.Ctx, sellerActor, order.ID, domain.OrderStatusCancelled)
	s.Require().Error(err)
	s.Equal(apperr.IllegalTransition, apperr.KindOf(err))
	s.EqualValues(4, s.stockOf(medicine))
}

func (s *OrderServiceSuite) TestChangeStatus_CancelRestocks() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)
	admin := s.createUser(domain.RoleAdmin)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 2)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	sellerActor := domain.Actor{UserID: seller, Role: domain.RoleSeller}
	_, err = s.orderService.ChangeStatus(s.Ctx, sellerActor, order.ID, domain.OrderStatusProcessing)
	s.Require().NoError(err)

	adminActor := domain.Actor{UserID: admin, Role: domain.RoleAdmin}
	cancelled, err := s.orderService.ChangeStatus(s.Ctx, adminActor, order.ID, domain.OrderStatusCancelled)
	s.Require().NoError(err)

	s.Equal(domain.OrderStatusCancelled, cancelled.Status)
	s.EqualValues(5, s.stockOf(medicine))
}

func (s *OrderServiceSuite) TestChangeStatus_SellerOutsideOrderForbidden() {
	seller := s.createUser(domain.RoleSeller)
	otherSeller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	outsider := domain.Actor{UserID: otherSeller, Role: domain.RoleSeller}
	_, err = s.orderService.ChangeStatus(s.Ctx, outsider, order.ID, domain.OrderStatusProcessing)
	s.Require().Error(err)
	s.Equal(apperr.Forbidden, apperr.KindOf(err))
}

func (s *OrderServiceSuite) TestChangeStatus_SameStatusIsNoop() {
	seller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	sellerActor := domain.Actor{UserID: seller, Role: domain.RoleSeller}
	updated, err := s.orderService.ChangeStatus(s.Ctx, sellerActor, order.ID, domain.OrderStatusPlaced)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPlaced, updated.Status)
}

func (s *OrderServiceSuite) TestListOrders_RoleScoped() {
	sellerA := s.createUser(domain.RoleSeller)
	sellerB := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)
	otherCustomer := s.createUser(domain.RoleCustomer)
	admin := s.createUser(domain.RoleAdmin)

	medicineA := s.createMedicine(sellerA, 1000, 10)
	medicineB := s.createMedicine(sellerB, 2000, 10)

	s.addToCart(customer, medicineA, 1)
	_, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	s.addToCart(otherCustomer, medicineB, 1)
	_, err = s.orderService.PlaceOrder(s.Ctx, otherCustomer, s.shipping())
	s.Require().NoError(err)

	customerOrders, total, err := s.orderService.ListOrders(s.Ctx, domain.Actor{UserID: customer, Role: domain.RoleCustomer}, 10, 0)
	s.Require().NoError(err)
	s.Len(customerOrders, 1)
	s.EqualValues(1, total)

	sellerOrders, total, err := s.orderService.ListOrders(s.Ctx, domain.Actor{UserID: sellerA, Role: domain.RoleSeller}, 10, 0)
	s.Require().NoError(err)
	s.Len(sellerOrders, 1)
	s.EqualValues(1, total)

	adminOrders, total, err := s.orderService.ListOrders(s.Ctx, domain.Actor{UserID: admin, Role: domain.RoleAdmin}, 10, 0)
	s.Require().NoError(err)
	s.Len(adminOrders, 2)
	s.EqualValues(2, total)
}

func (s *OrderServiceSuite) TestGetOrder_OutOfScopeIsNotFound() {
	seller := s.createUser(domain.RoleSeller)
	otherSeller := s.createUser(domain.RoleSeller)
	customer := s.createUser(domain.RoleCustomer)
	stranger := s.createUser(domain.RoleCustomer)

	medicine := s.createMedicine(seller, 1000, 5)
	s.addToCart(customer, medicine, 1)

	order, err := s.orderService.PlaceOrder(s.Ctx, customer, s.shipping())
	s.Require().NoError(err)

	_, err = s.orderService.GetOrder(s.Ctx, domain.Actor{UserID: customer, Role: domain.RoleCustomer}, order.ID)
	s.Require().NoError(err)

	_, err = s.orderService.GetOrder(s.Ctx, domain.Actor{UserID: stranger, Role: domain.RoleCustomer}, order.ID)
	s.Require().Error(err)
	s.Equal(apperr.NotFound, apperr.KindOf(err))

	_, err = s.orderService.GetOrder(s.Ctx, domain.Actor{UserID: otherSeller, Role: domain.RoleSeller}, order.ID)
	s.Require().Error(err)
	s.Equal(apperr.NotFound, apperr.KindOf(err))

	status, err := s.orderService.TrackOrder(s.Ctx, domain.Actor{UserID: customer, Role: domain.RoleCustomer}, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPlaced, status)
}
