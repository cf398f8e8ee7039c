package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/shared"
)

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	args := m.Called(ctx, sku)
	return args.Bool(0), args.Error(1)
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a product with cost and thresholds", func(t *testing.T) {
		repo := new(MockProductRepository)
		service := NewProductService(repo)

		repo.On("ExistsBySKU", ctx, "SKU-001").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		minLevel := decimal.NewFromInt(5)
		maxLevel := decimal.NewFromInt(100)
		resp, err := service.Create(ctx, CreateProductRequest{
			SKU:           "SKU-001",
			Name:          "Widget",
			Unit:          "pcs",
			UnitCost:      decimal.NewFromFloat(2.50),
			MinStockLevel: &minLevel,
			MaxStockLevel: &maxLevel,
		})

		require.NoError(t, err)
		assert.Equal(t, "SKU-001", resp.SKU)
		assert.Equal(t, "active", resp.Status)
		assert.True(t, resp.UnitCost.Equal(decimal.NewFromFloat(2.50)))
		assert.True(t, resp.MinStockLevel.Equal(minLevel))
		repo.AssertExpectations(t)
	})

	t.Run("rejects a duplicate SKU", func(t *testing.T) {
		repo := new(MockProductRepository)
		service := NewProductService(repo)

		repo.On("ExistsBySKU", ctx, "SKU-001").Return(true, nil)

		_, err := service.Create(ctx, CreateProductRequest{SKU: "SKU-001", Name: "Widget", Unit: "pcs"})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
		repo.AssertNotCalled(t, "Save")
	})
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates cost without touching the name", func(t *testing.T) {
		repo := new(MockProductRepository)
		service := NewProductService(repo)

		product, err := catalog.NewProduct("SKU-001", "Widget", "pcs")
		require.NoError(t, err)

		repo.On("FindByID", ctx, product.ID).Return(product, nil)
		repo.On("Save", ctx, product).Return(nil)

		cost := decimal.NewFromFloat(3.75)
		resp, err := service.Update(ctx, product.ID, UpdateProductRequest{UnitCost: &cost})

		require.NoError(t, err)
		assert.Equal(t, "Widget", resp.Name)
		assert.True(t, resp.UnitCost.Equal(cost))
		repo.AssertExpectations(t)
	})

	t.Run("rejects min above max", func(t *testing.T) {
		repo := new(MockProductRepository)
		service := NewProductService(repo)

		product, err := catalog.NewProduct("SKU-001", "Widget", "pcs")
		require.NoError(t, err)

		repo.On("FindByID", ctx, product.ID).Return(product, nil)

		minLevel := decimal.NewFromInt(100)
		maxLevel := decimal.NewFromInt(10)
		_, err = service.Update(ctx, product.ID, UpdateProductRequest{
			MinStockLevel: &minLevel,
			MaxStockLevel: &maxLevel,
		})

		require.Error(t, err)
		repo.AssertNotCalled(t, "Save")
	})
}

func TestProductService_StatusChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("discontinuing is permanent", func(t *testing.T) {
		repo := new(MockProductRepository)
		service := NewProductService(repo)

		product, err := catalog.NewProduct("SKU-001", "Widget", "pcs")
		require.NoError(t, err)

		repo.On("FindByID", ctx, product.ID).Return(product, nil)
		repo.On("Save", ctx, product).Return(nil)

		resp, err := service.Discontinue(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, "discontinued", resp.Status)

		// A discontinued product cannot come back
		_, err = service.Activate(ctx, product.ID)
		require.Error(t, err)
	})
}
