package services

import (
	"testing"

	"DoceApp/app/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testServices bundles the service graph over one in-memory database.
type testServices struct {
	db        *gorm.DB
	batches   *BatchService
	sales     *SalesService
	customers *CustomerService
	config    *ConfigService
	reports   *ReportsService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db, err := database.InitializeForTest()
	require.NoError(t, err)

	sales := NewSalesService(nil)
	sales.SetDB(db)

	batches := NewBatchService()
	batches.SetDB(db)

	customers := NewCustomerService()
	customers.SetDB(db)

	config := NewConfigService()
	config.SetDB(db)

	reports := NewReportsService(sales)
	reports.SetDB(db)

	return &testServices{
		db:        db,
		batches:   batches,
		sales:     sales,
		customers: customers,
		config:    config,
		reports:   reports,
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// createTruffleBatch creates a batch with a single truffle product:
// 5.00 base, 4.50 each in groups of 3, the given starting quantity.
func (ts *testServices) createTruffleBatch(t *testing.T, flavor string, qty int) uint {
	t.Helper()

	batch, err := ts.batches.CreateBatch(BatchInput{
		Date: "2026-03-01",
		Products: []ProductInput{{
			Type:       "trufa",
			Flavor:     flavor,
			InitialQty: qty,
			UnitCost:   floatPtr(2.50),
			BasePrice:  floatPtr(5.00),
			PromoPrice: floatPtr(4.50),
			PromoQty:   intPtr(3),
		}},
	})
	require.NoError(t, err)
	require.Len(t, batch.Products, 1)
	return batch.Products[0].ID
}
