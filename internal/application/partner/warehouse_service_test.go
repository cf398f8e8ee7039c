package partner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/partner"
	"github.com/wms/backend/internal/domain/shared"
)

func TestWarehouseService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a warehouse", func(t *testing.T) {
		repo := new(MockWarehouseRepository)
		service := NewWarehouseService(repo)

		repo.On("ExistsByCode", ctx, "WH001").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*partner.Warehouse")).Return(nil)

		resp, err := service.Create(ctx, CreateWarehouseRequest{Code: "WH001", Name: "Main Warehouse"})

		require.NoError(t, err)
		assert.Equal(t, "WH001", resp.Code)
		assert.False(t, resp.IsDefault)
		repo.AssertExpectations(t)
	})

	t.Run("creating the first default skips clearing", func(t *testing.T) {
		repo := new(MockWarehouseRepository)
		service := NewWarehouseService(repo)

		repo.On("ExistsByCode", ctx, "WH001").Return(false, nil)
		repo.On("FindDefault", ctx).Return(nil, shared.ErrNotFound)
		repo.On("Save", ctx, mock.AnythingOfType("*partner.Warehouse")).Return(nil)

		resp, err := service.Create(ctx, CreateWarehouseRequest{
			Code:      "WH001",
			Name:      "Main Warehouse",
			IsDefault: true,
		})

		require.NoError(t, err)
		assert.True(t, resp.IsDefault)
		repo.AssertExpectations(t)
	})

	t.Run("rejects a duplicate code", func(t *testing.T) {
		repo := new(MockWarehouseRepository)
		service := NewWarehouseService(repo)

		repo.On("ExistsByCode", ctx, "WH001").Return(true, nil)

		_, err := service.Create(ctx, CreateWarehouseRequest{Code: "WH001", Name: "Main Warehouse"})

		require.Error(t, err)
		repo.AssertNotCalled(t, "Save")
	})
}

func TestWarehouseService_SetDefault(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the default flag to the new warehouse", func(t *testing.T) {
		repo := new(MockWarehouseRepository)
		service := NewWarehouseService(repo)

		oldDefault, err := partner.NewWarehouse("WH001", "Main Warehouse")
		require.NoError(t, err)
		oldDefault.SetDefault(true)

		newDefault, err := partner.NewWarehouse("WH002", "East Warehouse")
		require.NoError(t, err)

		repo.On("FindByID", ctx, newDefault.ID).Return(newDefault, nil)
		repo.On("FindDefault", ctx).Return(oldDefault, nil)
		repo.On("Save", ctx, oldDefault).Return(nil)
		repo.On("Save", ctx, newDefault).Return(nil)

		resp, err := service.SetDefault(ctx, newDefault.ID)

		require.NoError(t, err)
		assert.True(t, resp.IsDefault)
		assert.False(t, oldDefault.IsDefault)
		repo.AssertExpectations(t)
	})

	t.Run("rejects an inactive warehouse", func(t *testing.T) {
		repo := new(MockWarehouseRepository)
		service := NewWarehouseService(repo)

		warehouse, err := partner.NewWarehouse("WH003", "Cold Storage")
		require.NoError(t, err)
		require.NoError(t, warehouse.Disable())

		repo.On("FindByID", ctx, warehouse.ID).Return(warehouse, nil)

		_, err = service.SetDefault(ctx, warehouse.ID)
		require.Error(t, err)
		repo.AssertNotCalled(t, "Save")
	})
}

func TestWarehouseService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses to delete the default warehouse", func(t *testing.T) {
		repo := new(MockWarehouseRepository)
		service := NewWarehouseService(repo)

		warehouse, err := partner.NewWarehouse("WH001", "Main Warehouse")
		require.NoError(t, err)
		warehouse.SetDefault(true)

		repo.On("FindByID", ctx, warehouse.ID).Return(warehouse, nil)

		err = service.Delete(ctx, warehouse.ID)
		require.Error(t, err)
		repo.AssertNotCalled(t, "Delete")
	})

	t.Run("deletes a non-default warehouse", func(t *testing.T) {
		repo := new(MockWarehouseRepository)
		service := NewWarehouseService(repo)

		warehouse, err := partner.NewWarehouse("WH002", "East Warehouse")
		require.NoError(t, err)

		repo.On("FindByID", ctx, warehouse.ID).Return(warehouse, nil)
		repo.On("Delete", ctx, warehouse.ID).Return(nil)

		require.NoError(t, service.Delete(ctx, warehouse.ID))
		repo.AssertExpectations(t)
	})
}

func TestWarehouseService_Disable(t *testing.T) {
	ctx := context.Background()

	repo := new(MockWarehouseRepository)
	service := NewWarehouseService(repo)

	warehouse, err := partner.NewWarehouse("WH002", "East Warehouse")
	require.NoError(t, err)
	warehouse.SetDefault(true)

	repo.On("FindByID", ctx, warehouse.ID).Return(warehouse, nil)

	// The default warehouse must stay enabled
	_, err = service.Disable(ctx, warehouse.ID)
	require.Error(t, err)
	repo.AssertNotCalled(t, "Save")
}
