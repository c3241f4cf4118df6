package services

import (
	"testing"

	"DoceApp/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCustomerSales(t *testing.T, ts *testServices, name string) (paidID, pendingID uint) {
	t.Helper()
	productID := ts.createTruffleBatch(t, "brigadeiro", 50)

	paid, err := ts.sales.CreateSale(SaleInput{
		Customer: name,
		Date:     "2026-03-01T09:00:00Z",
		Status:   models.SaleStatusPaid,
		Items:    []SaleItemInput{{ProductID: productID, Quantity: 3}},
	})
	require.NoError(t, err)

	pending, err := ts.sales.CreateSale(SaleInput{
		Customer: name,
		Date:     "2026-03-04T15:00:00Z",
		Status:   models.SaleStatusPending,
		Items:    []SaleItemInput{{ProductID: productID, Quantity: 2}},
	})
	require.NoError(t, err)

	return paid.ID, pending.ID
}

func TestSyncBuildsAggregatesFromHistory(t *testing.T) {
	ts := newTestServices(t)
	paidID, pendingID := seedCustomerSales(t, ts, "Maria")

	customer, err := ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)

	assert.InDelta(t, 23.50, customer.TotalPurchased, 0.001)
	assert.InDelta(t, 10.00, customer.TotalOwed, 0.001)
	assert.Equal(t, 2, customer.PurchaseCount)
	assert.Equal(t, models.CustomerStatusDebtor, customer.Status)
	assert.Equal(t, "2026-03-04T15:00:00Z", customer.LastPurchase)
	assert.Equal(t, "2026-03-01T09:00:00Z", customer.RegisteredAt)
	assert.Equal(t, []uint{paidID, pendingID}, customer.SaleIDList())
}

func TestSyncIsIdempotent(t *testing.T) {
	ts := newTestServices(t)
	seedCustomerSales(t, ts, "Maria")

	before, err := ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)

	require.NoError(t, ts.customers.SyncCustomerFromSale("Maria"))
	require.NoError(t, ts.customers.SyncCustomerFromSale("Maria"))

	after, err := ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)

	assert.Equal(t, before.TotalPurchased, after.TotalPurchased)
	assert.Equal(t, before.TotalOwed, after.TotalOwed)
	assert.Equal(t, before.PurchaseCount, after.PurchaseCount)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.SaleIDList(), after.SaleIDList())
	assert.Equal(t, before.RegisteredAt, after.RegisteredAt)
}

func TestSyncUnknownNameWithoutSalesIsNoop(t *testing.T) {
	ts := newTestServices(t)

	require.NoError(t, ts.customers.SyncCustomerFromSale("Ninguém"))
	_, err := ts.customers.GetCustomerByName("Ninguém")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, ts.customers.SyncCustomerFromSale(" "), models.ErrValidation)
}

func TestSyncAllCustomersRepairsDrift(t *testing.T) {
	ts := newTestServices(t)
	seedCustomerSales(t, ts, "Maria")
	seedCustomerSales(t, ts, "João")

	// Corrupt the aggregates behind the service's back
	require.NoError(t, ts.db.Model(&models.Customer{}).
		Where("name = ?", "Maria").
		Updates(map[string]interface{}{"total_owed": 999.0, "status": models.CustomerStatusCurrent}).Error)

	require.NoError(t, ts.customers.SyncAllCustomers())

	maria, err := ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)
	assert.InDelta(t, 10.00, maria.TotalOwed, 0.001)
	assert.Equal(t, models.CustomerStatusDebtor, maria.Status)
}

func TestDebtorsAndStats(t *testing.T) {
	ts := newTestServices(t)
	productID := ts.createTruffleBatch(t, "brigadeiro", 50)

	_, err := ts.sales.CreateSale(SaleInput{
		Customer: "Maria", Status: models.SaleStatusPending,
		Items: []SaleItemInput{{ProductID: productID, Quantity: 6}},
	})
	require.NoError(t, err)
	_, err = ts.sales.CreateSale(SaleInput{
		Customer: "João", Status: models.SaleStatusPending,
		Items: []SaleItemInput{{ProductID: productID, Quantity: 2}},
	})
	require.NoError(t, err)
	_, err = ts.sales.CreateSale(SaleInput{
		Customer: "Ana", Status: models.SaleStatusPaid,
		Items: []SaleItemInput{{ProductID: productID, Quantity: 3}},
	})
	require.NoError(t, err)

	debtors, err := ts.customers.GetDebtors()
	require.NoError(t, err)
	require.Len(t, debtors, 2)
	assert.Equal(t, "Maria", debtors[0].Name)
	assert.Equal(t, "João", debtors[1].Name)

	stats, err := ts.customers.GetCustomerStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalCustomers)
	assert.Equal(t, int64(2), stats.TotalDebtors)
	assert.InDelta(t, 37.00, stats.TotalOwed, 0.001)
	assert.InDelta(t, 50.50, stats.TotalPurchased, 0.001)
}

func TestSearchCustomers(t *testing.T) {
	ts := newTestServices(t)
	seedCustomerSales(t, ts, "Maria Silva")
	seedCustomerSales(t, ts, "Mariana Souza")
	seedCustomerSales(t, ts, "Pedro Alves")

	matches, err := ts.customers.SearchCustomers("Mari")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Maria Silva", matches[0].Name)

	empty, err := ts.customers.SearchCustomers("   ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteCustomerReappearsOnSync(t *testing.T) {
	ts := newTestServices(t)
	seedCustomerSales(t, ts, "Maria")

	customer, err := ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)
	require.NoError(t, ts.customers.DeleteCustomer(customer.ID))

	_, err = ts.customers.GetCustomerByName("Maria")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, ts.customers.SyncAllCustomers())
	restored, err := ts.customers.GetCustomerByName("Maria")
	require.NoError(t, err)
	assert.Equal(t, 2, restored.PurchaseCount)

	assert.ErrorIs(t, ts.customers.DeleteCustomer(9999), models.ErrNotFound)
}
