package service

import (
	"sync"
	"testing"

	"github.com/sakashimaa/go-bookstore/internal/stock/domain"
	"github.com/sakashimaa/go-bookstore/internal/stock/repository"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/sakashimaa/go-bookstore/pkg/testsuite"
	"github.com/stretchr/testify/suite"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type StockServiceSuite struct {
	testsuite.BaseSuite
	service StockService
}

func TestStockServiceSuite(t *testing.T) {
	testsuite.SkipIfShort(t)
	suite.Run(t, new(StockServiceSuite))
}

func (s *StockServiceSuite) SetupSuite() {
	s.SetupInfrastructure("../../../migrations")

	repo := repository.NewStockRepository(s.DbPool)
	s.service = NewStockService(s.DbPool, repo, zap.NewNop())
}

func (s *StockServiceSuite) TearDownSuite() {
	s.TearDownInfrastructure()
}

func (s *StockServiceSuite) SetupTest() {
	s.TruncateTable("stock_records")
}

func (s *StockServiceSuite) seed(bookID, quantity int64) {
	s.Require().NoError(s.service.SetQuantity(s.Ctx, bookID, quantity))
}

func (s *StockServiceSuite) quantity(bookID int64) int64 {
	record, err := s.service.GetRecord(s.Ctx, bookID)
	s.Require().NoError(err)
	return record.Quantity
}

func (s *StockServiceSuite) TestDecrease_HappyPath() {
	s.seed(1, 10)
	s.seed(2, 5)

	err := s.service.Decrease(s.Ctx, []domain.Adjustment{
		{BookID: 1, Quantity: 3},
		{BookID: 2, Quantity: 5},
	})
	s.Require().NoError(err)

	s.EqualValues(7, s.quantity(1))
	s.EqualValues(0, s.quantity(2))
}

func (s *StockServiceSuite) TestDecrease_AllOrNothing() {
	s.seed(1, 10)
	s.seed(2, 3)

	err := s.service.Decrease(s.Ctx, []domain.Adjustment{
		{BookID: 1, Quantity: 2},
		{BookID: 2, Quantity: 5},
	})
	s.Require().Error(err)
	s.Equal(apperr.CodeConflict, apperr.CodeOf(err))
	s.Contains(err.Error(), "required 5, available 3")

	// The satisfiable line must not have been applied.
	s.EqualValues(10, s.quantity(1))
	s.EqualValues(3, s.quantity(2))
}

func (s *StockServiceSuite) TestDecrease_ReportsEveryFailure() {
	s.seed(1, 1)

	err := s.service.Decrease(s.Ctx, []domain.Adjustment{
		{BookID: 1, Quantity: 2},
		{BookID: 99, Quantity: 1},
	})
	s.Require().Error(err)
	s.Len(multierr.Errors(err), 2)
}

func (s *StockServiceSuite) TestDecrease_MergesDuplicateLines() {
	s.seed(1, 5)

	// 3+3 exceeds the available 5 even though each line alone fits.
	err := s.service.Decrease(s.Ctx, []domain.Adjustment{
		{BookID: 1, Quantity: 3},
		{BookID: 1, Quantity: 3},
	})
	s.Require().Error(err)
	s.Equal(apperr.CodeConflict, apperr.CodeOf(err))
	s.EqualValues(5, s.quantity(1))
}

func (s *StockServiceSuite) TestDecrease_NeverOversellsUnderContention() {
	s.seed(1, 10)

	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.service.Decrease(s.Ctx, []domain.Adjustment{{BookID: 1, Quantity: 1}})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.Equal(apperr.CodeConflict, apperr.CodeOf(err))
		}
	}

	s.Equal(10, succeeded)
	s.EqualValues(0, s.quantity(1))
}

func (s *StockServiceSuite) TestDecrease_DisjointBatchesBothSucceed() {
	s.seed(1, 10)
	s.seed(2, 10)
	s.seed(3, 10)
	s.seed(4, 10)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	batches := [][]domain.Adjustment{
		{{BookID: 1, Quantity: 4}, {BookID: 2, Quantity: 6}},
		{{BookID: 3, Quantity: 2}, {BookID: 4, Quantity: 8}},
	}
	for _, batch := range batches {
		wg.Add(1)
		go func(batch []domain.Adjustment) {
			defer wg.Done()
			results <- s.service.Decrease(s.Ctx, batch)
		}(batch)
	}
	wg.Wait()
	close(results)

	// No shared rows means no lock queueing; neither batch may fail.
	for err := range results {
		s.Require().NoError(err)
	}

	s.EqualValues(6, s.quantity(1))
	s.EqualValues(4, s.quantity(2))
	s.EqualValues(8, s.quantity(3))
	s.EqualValues(2, s.quantity(4))
}

func (s *StockServiceSuite) TestIncrease_CreatesRecordLazily() {
	_, err := s.service.GetRecord(s.Ctx, 7)
	s.Require().Error(err)
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))

	s.Require().NoError(s.service.Increase(s.Ctx, []domain.Adjustment{{BookID: 7, Quantity: 4}}))
	s.EqualValues(4, s.quantity(7))

	s.Require().NoError(s.service.Increase(s.Ctx, []domain.Adjustment{{BookID: 7, Quantity: 2}}))
	s.EqualValues(6, s.quantity(7))
}

func (s *StockServiceSuite) TestIncrease_ConcurrentFirstRestock() {
	// Both restocks target a book with no record yet; the additive upsert
	// must let both land instead of one losing an insert race.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, quantity := range []int64{3, 4} {
		wg.Add(1)
		go func(quantity int64) {
			defer wg.Done()
			results <- s.service.Increase(s.Ctx, []domain.Adjustment{{BookID: 9, Quantity: quantity}})
		}(quantity)
	}
	wg.Wait()
	close(results)

	for err := range results {
		s.Require().NoError(err)
	}

	s.EqualValues(7, s.quantity(9))
}

func (s *StockServiceSuite) TestSetQuantity_OverwritesExisting() {
	s.seed(1, 10)
	s.seed(1, 2)

	s.EqualValues(2, s.quantity(1))
}

func (s *StockServiceSuite) TestCheckAvailability_ReportsShortages() {
	s.seed(1, 3)

	shortages, err := s.service.CheckAvailability(s.Ctx, []domain.Adjustment{
		{BookID: 1, Quantity: 5},
		{BookID: 42, Quantity: 1},
	})
	s.Require().NoError(err)
	s.Len(shortages, 2)
}

func (s *StockServiceSuite) TestDecrease_RejectsEmptyBatch() {
	err := s.service.Decrease(s.Ctx, nil)
	s.Require().Error(err)
	s.Equal(apperr.CodeValidation, apperr.CodeOf(err))
}
