package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"qr-order-api/apperrors"
	"qr-order-api/authz"
	"qr-order-api/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

type fixture struct {
	db       *gorm.DB
	svc      *OrderService
	owner    models.User
	customer models.User
	rest     models.Restaurant
	bibimbap models.MenuItem
	kimchi   models.MenuItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{db: db}
	f.owner = models.User{Username: "owner", Email: "owner@example.com", PasswordHash: "x", Name: "Owner A", Role: models.RoleOwner}
	f.customer = models.User{Username: "cust", Email: "cust@example.com", PasswordHash: "x", Name: "Customer B", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&f.owner).Error)
	require.NoError(t, db.Create(&f.customer).Error)

	f.rest = models.Restaurant{OwnerID: f.owner.ID, Name: "Different, Together"}
	require.NoError(t, db.Create(&f.rest).Error)

	f.bibimbap = models.MenuItem{RestaurantID: f.rest.ID, Name: "Bibimbap", Price: 10000, IsAvailable: true}
	f.kimchi = models.MenuItem{RestaurantID: f.rest.ID, Name: "Kimchi Jjigae", Price: 8000, IsAvailable: true}
	require.NoError(t, db.Create(&f.bibimbap).Error)
	require.NoError(t, db.Create(&f.kimchi).Error)

	f.svc = NewOrderService(db, authz.NewResolver(db), slog.Default())
	return f
}

func (f *fixture) callerOwner() authz.Identity {
	return authz.Identity{UserID: f.owner.ID, Role: f.owner.Role}
}

func (f *fixture) callerCustomer() authz.Identity {
	return authz.Identity{UserID: f.customer.ID, Role: f.customer.Role}
}

func (f *fixture) salesOf(t *testing.T, itemID uint) int {
	t.Helper()
	var item models.MenuItem
	require.NoError(t, f.db.First(&item, itemID).Error)
	return item.TotalSales
}

func TestPlaceOrderComputesTotalAndSnapshots(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 2},
		{MenuItemID: f.kimchi.ID, Quantity: 1},
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, 28000, order.TotalAmount)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.NotEmpty(t, order.OrderNumber)

	var persisted models.Order
	require.NoError(t, f.db.Preload("Items").First(&persisted, order.ID).Error)
	require.Len(t, persisted.Items, 2)

	sum := 0
	for _, it := range persisted.Items {
		sum += it.Price * it.Quantity
	}
	assert.Equal(t, persisted.TotalAmount, sum)

	// Price snapshot survives later menu price changes
	require.NoError(t, f.db.Model(&models.MenuItem{}).Where("id = ?", f.bibimbap.ID).Update("price", 99999).Error)
	var snap models.OrderItem
	require.NoError(t, f.db.Where("order_id = ? AND menu_item_id = ?", order.ID, f.bibimbap.ID).First(&snap).Error)
	assert.Equal(t, 10000, snap.Price)
	assert.Equal(t, "Bibimbap", snap.Name)
}

func TestPlaceOrderIncrementsSalesCounter(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 2},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, f.salesOf(t, f.bibimbap.ID))

	// Increments accumulate across orders: q1 + q2
	_, err = f.svc.PlaceOrder(context.Background(), f.owner.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 3},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, f.salesOf(t, f.bibimbap.ID))
}

func TestConcurrentPlaceOrdersBothCount(t *testing.T) {
	f := newFixture(t)

	// Two orders against the same menu item racing each other: both must
	// commit and both increments must land (no lost update).
	quantities := []int{2, 3}
	errs := make([]error, len(quantities))
	var wg sync.WaitGroup
	for i, q := range quantities {
		wg.Add(1)
		go func(i, q int) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
				{MenuItemID: f.bibimbap.ID, Quantity: q},
			}, 0)
		}(i, q)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "order %d", i)
	}
	assert.Equal(t, 5, f.salesOf(t, f.bibimbap.ID))

	var orderCount int64
	f.db.Model(&models.Order{}).Count(&orderCount)
	assert.EqualValues(t, 2, orderCount)
}

func TestPlaceOrderDuplicateLinesSumQuantities(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 1},
		{MenuItemID: f.bibimbap.ID, Quantity: 2},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 30000, order.TotalAmount)
	assert.Equal(t, 3, f.salesOf(t, f.bibimbap.ID))
}

func TestPlaceOrderUnknownMenuItemRollsBack(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 2},
		{MenuItemID: 9999, Quantity: 1},
	}, 0)
	assert.ErrorIs(t, err, apperrors.ErrBadReference)

	// Nothing persisted: no order, no items, no counter bump
	var orderCount, itemCount int64
	f.db.Model(&models.Order{}).Count(&orderCount)
	f.db.Model(&models.OrderItem{}).Count(&itemCount)
	assert.Zero(t, orderCount)
	assert.Zero(t, itemCount)
	assert.Zero(t, f.salesOf(t, f.bibimbap.ID))
}

func TestPlaceOrderRejectsForeignMenuItem(t *testing.T) {
	f := newFixture(t)

	other := models.Restaurant{OwnerID: f.owner.ID, Name: "Other Place"}
	require.NoError(t, f.db.Create(&other).Error)
	foreign := models.MenuItem{RestaurantID: other.ID, Name: "Tteokbokki", Price: 5000, IsAvailable: true}
	require.NoError(t, f.db.Create(&foreign).Error)

	_, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: foreign.ID, Quantity: 1},
	}, 0)
	assert.ErrorIs(t, err, apperrors.ErrBadReference)
}

func TestPlaceOrderRejectsUnknownRestaurant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, 9999, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 1},
	}, 0)
	assert.ErrorIs(t, err, apperrors.ErrBadReference)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, nil, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 0},
	}, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPlaceOrderRejectsSoldOutItem(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.MenuItem{}).Where("id = ?", f.kimchi.ID).Update("is_available", false).Error)

	_, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.kimchi.ID, Quantity: 1},
	}, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPlaceOrderRejectsStaleClientPrices(t *testing.T) {
	f := newFixture(t)

	// Stale per-line price
	_, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 1, Price: 9000},
	}, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Stale total
	_, err = f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 2},
	}, 19000)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Matching client prices pass
	order, err := f.svc.PlaceOrder(context.Background(), f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 2, Price: 10000},
	}, 20000)
	require.NoError(t, err)
	assert.Equal(t, 20000, order.TotalAmount)
}

func TestOrderLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// User B orders 2x Bibimbap (10,000) from restaurant owned by user A
	order, err := f.svc.PlaceOrder(ctx, f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 2},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 20000, order.TotalAmount)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 2, f.salesOf(t, f.bibimbap.ID))

	// Owner A drives the full lifecycle
	for _, next := range []models.OrderStatus{
		models.StatusAccepted, models.StatusPreparing, models.StatusReady, models.StatusCompleted,
	} {
		updated, err := f.svc.TransitionOrder(ctx, order.ID, next, f.callerOwner())
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	var final models.Order
	require.NoError(t, f.db.First(&final, order.ID).Error)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.NotNil(t, final.CompletedAt)

	// completed -> pending is rejected and leaves state untouched
	_, err = f.svc.TransitionOrder(ctx, order.ID, models.StatusPending, f.callerOwner())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	require.NoError(t, f.db.First(&final, order.ID).Error)
	assert.Equal(t, models.StatusCompleted, final.Status)
}

func TestCancelScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.kimchi.ID, Quantity: 1},
	}, 0)
	require.NoError(t, err)

	// Placer cancels while pending
	updated, err := f.svc.TransitionOrder(ctx, order.ID, models.StatusCancelled, f.callerCustomer())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	// Second cancellation fails: order is no longer pending
	_, err = f.svc.TransitionOrder(ctx, order.ID, models.StatusCancelled, f.callerCustomer())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestPlacerCannotCancelAfterAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.kimchi.ID, Quantity: 1},
	}, 0)
	require.NoError(t, err)

	_, err = f.svc.TransitionOrder(ctx, order.ID, models.StatusAccepted, f.callerOwner())
	require.NoError(t, err)

	_, err = f.svc.TransitionOrder(ctx, order.ID, models.StatusCancelled, f.callerCustomer())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestPlacerCannotDriveForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.kimchi.ID, Quantity: 1},
	}, 0)
	require.NoError(t, err)

	_, err = f.svc.TransitionOrder(ctx, order.ID, models.StatusAccepted, f.callerCustomer())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestStrangerGetsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stranger := models.User{Username: "other", Email: "other@example.com", PasswordHash: "x", Name: "Other", Role: models.RoleCustomer}
	require.NoError(t, f.db.Create(&stranger).Error)

	order, err := f.svc.PlaceOrder(ctx, f.customer.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.kimchi.ID, Quantity: 1},
	}, 0)
	require.NoError(t, err)

	_, err = f.svc.TransitionOrder(ctx, order.ID, models.StatusAccepted, authz.Identity{UserID: stranger.ID, Role: stranger.Role})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestTransitionUnknownOrderIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.TransitionOrder(context.Background(), 9999, models.StatusAccepted, f.callerOwner())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOwnerCancelsOwnOrderAtOwnRestaurant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Owner orders at their own restaurant, then cancels as the placer
	order, err := f.svc.PlaceOrder(ctx, f.owner.ID, f.rest.ID, []OrderLine{
		{MenuItemID: f.bibimbap.ID, Quantity: 1},
	}, 0)
	require.NoError(t, err)

	updated, err := f.svc.TransitionOrder(ctx, order.ID, models.StatusCancelled, f.callerOwner())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
}
