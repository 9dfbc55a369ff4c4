package service

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/IBM/sarama"
	cartservice "github.com/sakashimaa/go-bookstore/internal/cart/service"
	cartstore "github.com/sakashimaa/go-bookstore/internal/cart/store"
	catalogdomain "github.com/sakashimaa/go-bookstore/internal/catalog/domain"
	catalogrepository "github.com/sakashimaa/go-bookstore/internal/catalog/repository"
	catalogservice "github.com/sakashimaa/go-bookstore/internal/catalog/service"
	discountdomain "github.com/sakashimaa/go-bookstore/internal/discount/domain"
	discountrepository "github.com/sakashimaa/go-bookstore/internal/discount/repository"
	discountservice "github.com/sakashimaa/go-bookstore/internal/discount/service"
	orderdomain "github.com/sakashimaa/go-bookstore/internal/order/domain"
	orderrepository "github.com/sakashimaa/go-bookstore/internal/order/repository"
	stockrepository "github.com/sakashimaa/go-bookstore/internal/stock/repository"
	stockservice "github.com/sakashimaa/go-bookstore/internal/stock/service"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/sakashimaa/go-bookstore/pkg/events"
	"github.com/sakashimaa/go-bookstore/pkg/kafka"
	outboxrepository "github.com/sakashimaa/go-bookstore/pkg/outbox/repository"
	"github.com/sakashimaa/go-bookstore/pkg/outbox/worker"
	"github.com/sakashimaa/go-bookstore/pkg/testsuite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type CheckoutSuite struct {
	testsuite.BaseSuite
	checkout  CheckoutService
	carts     cartservice.CartService
	catalog   catalogservice.CatalogService
	stock     stockservice.StockService
	discounts discountservice.DiscountService
}

func TestCheckoutSuite(t *testing.T) {
	testsuite.SkipIfShort(t)
	suite.Run(t, new(CheckoutSuite))
}

func (s *CheckoutSuite) SetupSuite() {
	s.SetupInfrastructure("../../../migrations")

	logger := zap.NewNop()

	s.catalog = catalogservice.NewCatalogService(
		catalogrepository.NewBookRepository(s.DbPool, logger),
		logger,
	)
	s.stock = stockservice.NewStockService(
		s.DbPool,
		stockrepository.NewStockRepository(s.DbPool),
		logger,
	)
	s.carts = cartservice.NewCartService(
		cartstore.NewRedisStore(s.RedisClient, time.Hour),
		s.catalog,
		logger,
	)
	s.discounts = discountservice.NewDiscountService(
		discountrepository.NewCouponRepository(s.DbPool),
	)

	s.checkout = NewCheckoutService(
		s.DbPool,
		s.carts,
		s.stock,
		orderrepository.NewOrderRepository(s.DbPool),
		s.discounts,
		outboxrepository.NewOutboxRepository(s.DbPool, logger),
		events.NewDispatcher(logger),
		"order_events",
		logger,
	)
}

func (s *CheckoutSuite) TearDownSuite() {
	s.TearDownInfrastructure()
}

func (s *CheckoutSuite) SetupTest() {
	s.TruncateTable("order_lines")
	s.TruncateTable("orders")
	s.TruncateTable("outbox")
	s.TruncateTable("stock_records")
	s.TruncateTable("coupons")
	s.TruncateTable("books")
	s.FlushRedis()
}

// seedBook creates a catalog entry with stock and returns its id.
func (s *CheckoutSuite) seedBook(title, price string, quantity int64) int64 {
	bookID, err := s.catalog.Create(s.Ctx, &catalogdomain.Book{
		Title: title,
		Price: decimal.RequireFromString(price),
	})
	s.Require().NoError(err)
	s.Require().NoError(s.stock.SetQuantity(s.Ctx, bookID, quantity))
	return bookID
}

func (s *CheckoutSuite) fillCart(ownerID int64, items map[int64]int64) {
	for bookID, quantity := range items {
		_, err := s.carts.AddItem(s.Ctx, ownerID, bookID, quantity)
		s.Require().NoError(err)
	}
}

func (s *CheckoutSuite) stockQuantity(bookID int64) int64 {
	record, err := s.stock.GetRecord(s.Ctx, bookID)
	s.Require().NoError(err)
	return record.Quantity
}

func (s *CheckoutSuite) TestCheckout_EndToEnd() {
	first := s.seedBook("First Book", "10.00", 10)
	second := s.seedBook("Second Book", "5.00", 5)
	s.fillCart(7, map[int64]int64{first: 2, second: 1})

	orderID, err := s.checkout.Checkout(s.Ctx, CheckoutInput{
		OwnerID:         7,
		ShippingAddress: "12 Main St",
		PaymentMethod:   "card",
	})
	s.Require().NoError(err)
	s.Require().NotZero(orderID)

	// Order row with snapshot total.
	var status string
	var total decimal.Decimal
	err = s.DbPool.QueryRow(s.Ctx,
		`SELECT status, total FROM orders WHERE id = $1`, orderID).Scan(&status, &total)
	s.Require().NoError(err)
	s.Equal("pending", status)
	s.True(total.Equal(decimal.RequireFromString("25.00")), "got %s", total)

	// Stock moved by exactly the ordered quantities.
	s.EqualValues(8, s.stockQuantity(first))
	s.EqualValues(4, s.stockQuantity(second))

	// Cart cleared.
	cart, err := s.carts.Get(s.Ctx, 7)
	s.Require().NoError(err)
	s.True(cart.IsEmpty())

	// Outbox row committed with the order.
	var eventType string
	var payload []byte
	err = s.DbPool.QueryRow(s.Ctx,
		`SELECT event_type, payload FROM outbox WHERE aggregate_id = $1`,
		strconv.FormatInt(orderID, 10)).Scan(&eventType, &payload)
	s.Require().NoError(err)
	s.Equal("order.created", eventType)

	var created orderdomain.OrderCreated
	s.Require().NoError(json.Unmarshal(payload, &created))
	s.Equal(orderID, created.OrderID)
	s.Len(created.Lines, 2)
}

func (s *CheckoutSuite) TestCheckout_OutboxReachesKafka() {
	first := s.seedBook("Kafka Book", "10.00", 10)
	s.fillCart(8, map[int64]int64{first: 1})

	orderID, err := s.checkout.Checkout(s.Ctx, CheckoutInput{
		OwnerID:         8,
		ShippingAddress: "12 Main St",
		PaymentMethod:   "card",
	})
	s.Require().NoError(err)

	logger := zap.NewNop()
	producer, err := kafka.NewProducer(s.KafkaBrokers)
	s.Require().NoError(err)
	defer producer.Close()

	workerCtx, stopWorker := context.WithCancel(s.Ctx)
	defer stopWorker()

	outboxRepo := outboxrepository.NewOutboxRepository(s.DbPool, logger)
	go worker.NewOutboxProcessor(s.DbPool, outboxRepo, producer, logger).Start(workerCtx)

	messages := make(chan *sarama.ConsumerMessage, 1)
	consumerCtx, stopConsumer := context.WithCancel(s.Ctx)
	defer stopConsumer()

	group := kafka.NewConsumerGroup(
		s.KafkaBrokers,
		"checkout-test",
		[]string{"order_events"},
		func(ctx context.Context, msg *sarama.ConsumerMessage) error {
			select {
			case messages <- msg:
			default:
			}
			return nil
		},
		logger,
	)
	go group.Run(consumerCtx)

	select {
	case msg := <-messages:
		var payload map[string]any
		s.Require().NoError(json.Unmarshal(msg.Value, &payload))
		s.EqualValues(orderID, payload["order_id"])
	case <-time.After(30 * time.Second):
		s.FailNow("timed out waiting for order event on kafka")
	}
}

func (s *CheckoutSuite) TestCheckout_InsufficientStock() {
	first := s.seedBook("Rare Book", "10.00", 1)
	s.fillCart(7, map[int64]int64{first: 3})

	_, err := s.checkout.Checkout(s.Ctx, CheckoutInput{
		OwnerID:         7,
		ShippingAddress: "12 Main St",
		PaymentMethod:   "card",
	})
	s.Require().Error(err)
	s.Equal(apperr.CodeConflict, apperr.CodeOf(err))

	// Nothing happened: stock intact, no orders, cart kept.
	s.EqualValues(1, s.stockQuantity(first))

	var count int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&count))
	s.Zero(count)

	cart, err := s.carts.Get(s.Ctx, 7)
	s.Require().NoError(err)
	s.False(cart.IsEmpty())
}

func (s *CheckoutSuite) TestCheckout_CouponDiscount() {
	first := s.seedBook("Discounted Book", "25.00", 5)
	s.fillCart(7, map[int64]int64{first: 1})

	s.Require().NoError(s.discounts.Create(s.Ctx, &discountdomain.Coupon{
		Code:           "TEN",
		PercentOff:     10,
		ExpiresAt:      time.Now().Add(time.Hour),
		MaxRedemptions: 1,
	}))

	orderID, err := s.checkout.Checkout(s.Ctx, CheckoutInput{
		OwnerID:         7,
		ShippingAddress: "12 Main St",
		PaymentMethod:   "card",
		CouponCode:      "TEN",
	})
	s.Require().NoError(err)

	var total decimal.Decimal
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx,
		`SELECT total FROM orders WHERE id = $1`, orderID).Scan(&total))
	s.True(total.Equal(decimal.RequireFromString("22.50")), "got %s", total)

	// The redemption moved with the order; a second use is rejected.
	second := s.seedBook("Another Book", "10.00", 5)
	s.fillCart(9, map[int64]int64{second: 1})

	_, err = s.checkout.Checkout(s.Ctx, CheckoutInput{
		OwnerID:         9,
		ShippingAddress: "34 Side St",
		PaymentMethod:   "card",
		CouponCode:      "TEN",
	})
	s.Require().Error(err)
	s.Equal(apperr.CodeConflict, apperr.CodeOf(err))
}

func (s *CheckoutSuite) TestCheckout_LastUnitRace() {
	first := s.seedBook("Last Copy", "10.00", 1)
	s.fillCart(1, map[int64]int64{first: 1})
	s.fillCart(2, map[int64]int64{first: 1})

	results := make(chan error, 2)
	for _, ownerID := range []int64{1, 2} {
		go func(ownerID int64) {
			_, err := s.checkout.Checkout(s.Ctx, CheckoutInput{
				OwnerID:         ownerID,
				ShippingAddress: "12 Main St",
				PaymentMethod:   "card",
			})
			results <- err
		}(ownerID)
	}

	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			failures++
			s.Equal(apperr.CodeConflict, apperr.CodeOf(err))
		}
	}

	s.Equal(1, failures, "exactly one checkout should win the last unit")
	s.EqualValues(0, s.stockQuantity(first))
}
