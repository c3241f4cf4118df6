package services

import (
	"testing"

	"DoceApp/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSaleAppliesPromotionAndDepletesStock(t *testing.T) {
	ts := newTestServices(t)
	productID := ts.createTruffleBatch(t, "brigadeiro", 10)

	sale, err := ts.sales.CreateSale(SaleInput{
		Customer:      "Maria",
		Status:        models.SaleStatusPaid,
		PaymentMethod: "pix",
		Items:         []SaleItemInput{{ProductID: productID, Quantity: 5}},
	})
	require.NoError(t, err)

	// One group of 3 at 4.50 plus 2 at 5.00
	assert.InDelta(t, 23.50, sale.TotalPrice, 0.001)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 3, sale.Items[0].DiscountedQty)
	assert.Equal(t, 2, sale.Items[0].FullPriceQty)
	assert.Equal(t, "trufa", sale.Items[0].ProductType)
	assert.Equal(t, "brigadeiro", sale.Items[0].ProductFlavor)

	product, err := ts.batches.GetProduct(productID)
	require.NoError(t, err)
	assert.Equal(t, 5, product.SoldQty)
	assert.Equal(t, 5, product.Available())

	movements, err := ts.batches.GetStockMovements(productID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, MovementSale, movements[0].Type)
	assert.Equal(t, 5, movements[0].Quantity)
}

func TestCreateSalePoolsAcrossFlavors(t *testing.T) {
	ts := newTestServices(t)
	brigadeiro := ts.createTruffleBatch(t, "brigadeiro", 10)
	limao := ts.createTruffleBatch(t, "limão", 10)

	sale, err := ts.sales.CreateSale(SaleInput{
		Customer: "Ana",
		Status:   models.SaleStatusPaid,
		Items: []SaleItemInput{
			{ProductID: brigadeiro, Quantity: 2},
			{ProductID: limao, Quantity: 2},
		},
	})
	require.NoError(t, err)

	// 4 truffles pool into one promotional group of 3
	assert.InDelta(t, 18.50, sale.TotalPrice, 0.001)
	assert.InDelta(t, 9.00, sale.Items[0].Subtotal, 0.001)
	assert.InDelta(t, 9.50, sale.Items[1].Subtotal, 0.001)
}

func TestCreateSaleInsufficientStockRollsBackEverything(t *testing.T) {
	ts := newTestServices(t)
	plenty := ts.createTruffleBatch(t, "brigadeiro", 10)
	scarce := ts.createTruffleBatch(t, "limão", 2)

	_, err := ts.sales.CreateSale(SaleInput{
		Customer: "Pedro",
		Status:   models.SaleStatusPaid,
		Items: []SaleItemInput{
			{ProductID: plenty, Quantity: 3},
			{ProductID: scarce, Quantity: 5},
		},
	})
	require.Error(t, err)

	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce, stockErr.ProductID)
	assert.Equal(t, 2, stockErr.Available)

	// Nothing stuck: no sale rows, first item's reservation rolled back
	var saleCount int64
	require.NoError(t, ts.db.Model(&models.Sale{}).Count(&saleCount).Error)
	assert.Zero(t, saleCount)

	product, err := ts.batches.GetProduct(plenty)
	require.NoError(t, err)
	assert.Equal(t, 0, product.SoldQty)

	_, err = ts.customers.GetCustomerByName("Pedro")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateSaleValidation(t *testing.T) {
	ts := newTestServices(t)
	productID := ts.createTruffleBatch(t, "brigadeiro", 10)

	_, err := ts.sales.CreateSale(SaleInput{
		Customer: "   ",
		Items:    []SaleItemInput{{ProductID: productID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = ts.sales.CreateSale(SaleInput{Customer: "Maria"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = ts.sales.CreateSale(SaleInput{
		Customer: "Maria",
		Items:    []SaleItemInput{{ProductID: productID, Quantity: 0}},
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = ts.sales.CreateSale(SaleInput{
		Customer: "Maria",
		Status:   "CANCELADO",
		Items:    []SaleItemInput{{ProductID: productID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = ts.sales.CreateSale(SaleInput{
		Customer: "Maria",
		Items:    []SaleItemInput{{ProductID: 9999, Quantity: 1}},
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteSaleRestoresStockAndCustomer(t *testing.T) {
	ts := newTestServices(t)
	productID := ts.createTruffleBatch(t, "brigadeiro", 10)

	sale, err := ts.sales.CreateSale(SaleInput{
		Customer: "Maria",
		Status:   models.SaleStatusPending,
		Items:    []SaleItemInput{{ProductID: productID, Quantity: 4}},
	})
	require.NoError(t, err)

	require.NoError(t, ts.sales.DeleteSale(sale.ID))

	product, err := ts.batches.GetProduct(productID)
	require.NoError(t, err)
	assert.Equal(t, 10, product.Available())

	movements, err := ts.batches.GetStockMovements(productID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, MovementReversal, movements[0].Type)
	assert.Equal(t, -4, movements[0].Quantity)

	// The customer record stays but its aggregates reset
	customer, err := ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)
	assert.Zero(t, customer.TotalPurchased)
	assert.Zero(t, customer.TotalOwed)
	assert.Zero(t, customer.PurchaseCount)
	assert.Equal(t, models.CustomerStatusCurrent, customer.Status)
	assert.Empty(t, customer.SaleIDList())
}

func TestUpdateSaleReplacesItems(t *testing.T) {
	ts := newTestServices(t)
	brigadeiro := ts.createTruffleBatch(t, "brigadeiro", 10)
	limao := ts.createTruffleBatch(t, "limão", 10)

	sale, err := ts.sales.CreateSale(SaleInput{
		Customer: "Maria",
		Status:   models.SaleStatusPaid,
		Items:    []SaleItemInput{{ProductID: brigadeiro, Quantity: 6}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 27.00, sale.TotalPrice, 0.001)

	updated, err := ts.sales.UpdateSale(sale.ID, SaleUpdateInput{
		Items: []SaleItemInput{{ProductID: limao, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 13.50, updated.TotalPrice, 0.001)

	old, err := ts.batches.GetProduct(brigadeiro)
	require.NoError(t, err)
	assert.Equal(t, 0, old.SoldQty)

	current, err := ts.batches.GetProduct(limao)
	require.NoError(t, err)
	assert.Equal(t, 3, current.SoldQty)

	reloaded, err := ts.sales.GetSale(sale.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "limão", reloaded.Items[0].ProductFlavor)
}

func TestUpdateSaleRenameSyncsBothCustomers(t *testing.T) {
	ts := newTestServices(t)
	productID := ts.createTruffleBatch(t, "brigadeiro", 10)

	sale, err := ts.sales.CreateSale(SaleInput{
		Customer: "Maria",
		Status:   models.SaleStatusPending,
		Items:    []SaleItemInput{{ProductID: productID, Quantity: 2}},
	})
	require.NoError(t, err)

	newName := "Mariana"
	_, err = ts.sales.UpdateSale(sale.ID, SaleUpdateInput{Customer: &newName})
	require.NoError(t, err)

	old, err := ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)
	assert.Zero(t, old.TotalOwed)
	assert.Zero(t, old.PurchaseCount)

	renamed, err := ts.customers.GetCustomerByName("Mariana")
	require.NoError(t, err)
	assert.InDelta(t, 10.00, renamed.TotalOwed, 0.001)
	assert.Equal(t, 1, renamed.PurchaseCount)
}

func TestUpdateStatusClearsDebt(t *testing.T) {
	ts := newTestServices(t)
	productID := ts.createTruffleBatch(t, "brigadeiro", 10)

	sale, err := ts.sales.CreateSale(SaleInput{
		Customer: "Maria",
		Status:   models.SaleStatusPending,
		Items:    []SaleItemInput{{ProductID: productID, Quantity: 3}},
	})
	require.NoError(t, err)

	customer, err := ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusDebtor, customer.Status)
	assert.InDelta(t, 13.50, customer.TotalOwed, 0.001)

	_, err = ts.sales.UpdateStatus(sale.ID, models.SaleStatusPaid)
	require.NoError(t, err)

	customer, err = ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)
	assert.Equal(t, models.CustomerStatusCurrent, customer.Status)
	assert.Zero(t, customer.TotalOwed)
	assert.InDelta(t, 13.50, customer.TotalPurchased, 0.001)

	_, err = ts.sales.UpdateStatus(sale.ID, "QUITADO")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSaleQueries(t *testing.T) {
	ts := newTestServices(t)
	productID := ts.createTruffleBatch(t, "brigadeiro", 30)

	fixtures := []SaleInput{
		{Customer: "Maria", Date: "2026-03-01T09:00:00Z", Status: models.SaleStatusPaid,
			Items: []SaleItemInput{{ProductID: productID, Quantity: 3}}},
		{Customer: "João", Date: "2026-03-02T10:00:00Z", Status: models.SaleStatusPending,
			Items: []SaleItemInput{{ProductID: productID, Quantity: 2}}},
		{Customer: "Maria", Date: "2026-03-05T11:00:00Z", Status: models.SaleStatusPaid,
			Items: []SaleItemInput{{ProductID: productID, Quantity: 6}}},
	}
	for _, input := range fixtures {
		_, err := ts.sales.CreateSale(input)
		require.NoError(t, err)
	}

	period, err := ts.sales.GetSalesByPeriod("2026-03-01", "2026-03-02")
	require.NoError(t, err)
	assert.Len(t, period, 2)

	sold, err := ts.sales.GetTotalSoldByPeriod("2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.InDelta(t, 13.50+27.00, sold, 0.001)

	pending, err := ts.sales.GetTotalPendingByPeriod("2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.InDelta(t, 10.00, pending, 0.001)

	recent, err := ts.sales.GetRecentSales(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2026-03-05T11:00:00Z", recent[0].Date)

	byProduct, err := ts.sales.GetSalesByProduct(productID)
	require.NoError(t, err)
	assert.Len(t, byProduct, 3)

	byCustomer, err := ts.sales.GetSalesByCustomer("Maria")
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)
}
