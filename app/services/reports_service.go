package services

import (
	"DoceApp/app/database"
	"DoceApp/app/models"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Report period presets
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// ReportsService builds period summaries and the dashboard snapshot
type ReportsService struct {
	*BaseService
	salesSvc  *SalesService
	configSvc *ConfigService
}

// NewReportsService creates a new reports service
func NewReportsService(salesSvc *SalesService) *ReportsService {
	return &ReportsService{
		BaseService: &BaseService{db: database.GetDB()},
		salesSvc:    salesSvc,
		configSvc:   NewConfigService(),
	}
}

// SetDB sets the database connection on the service and its dependencies
func (s *ReportsService) SetDB(db *gorm.DB) {
	s.BaseService.SetDB(db)
	s.configSvc.SetDB(db)
}

// ProductSalesSummary is one row of a report's product ranking
type ProductSalesSummary struct {
	ProductType   string  `json:"product_type"`
	ProductFlavor string  `json:"product_flavor"`
	QuantitySold  int     `json:"quantity_sold"`
	Revenue       float64 `json:"revenue"`
}

// PeriodReport summarizes sales activity over a date range
type PeriodReport struct {
	StartDate      string                `json:"start_date"`
	EndDate        string                `json:"end_date"`
	TotalSold      float64               `json:"total_sold"`
	TotalPending   float64               `json:"total_pending"`
	QuantitySold   int                   `json:"quantity_sold"`
	ProductionCost float64               `json:"production_cost"`
	Profit         float64               `json:"profit"`
	TopProducts    []ProductSalesSummary `json:"top_products"`
}

// DashboardStats is the landing-screen snapshot
type DashboardStats struct {
	TodayTotal     float64          `json:"today_total"`
	TodayQuantity  int              `json:"today_quantity"`
	YesterdayTotal float64          `json:"yesterday_total"`
	GrowthPercent  float64          `json:"growth_percent"`
	PendingCount   int64            `json:"pending_count"`
	PendingTotal   float64          `json:"pending_total"`
	AverageTicket  float64          `json:"average_ticket"`
	DailyGoal      float64          `json:"daily_goal"`
	GoalProgress   float64          `json:"goal_progress"`
	LowStock       []models.Product `json:"low_stock"`
	RecentSales    []models.Sale    `json:"recent_sales"`
}

// ResolvePeriod turns a preset into an inclusive [start, end] date range.
// Unknown presets fall through to the explicit dates.
func (s *ReportsService) ResolvePeriod(period, start, end string) (string, string, error) {
	today := time.Now()
	switch period {
	case PeriodDay:
		d := today.Format("2006-01-02")
		return d, d, nil
	case PeriodWeek:
		return today.AddDate(0, 0, -6).Format("2006-01-02"), today.Format("2006-01-02"), nil
	case PeriodMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return first.Format("2006-01-02"), today.Format("2006-01-02"), nil
	default:
		if start == "" || end == "" {
			return "", "", models.ValidationError("custom period needs start and end dates")
		}
		if end < start {
			return "", "", models.ValidationError("period end before start")
		}
		return start, end, nil
	}
}

// GetPeriodReport summarizes the period: paid and pending revenue, units
// sold, production cost of the paid units and the resulting profit, plus the
// five best-selling products. Costs come from the product's unit cost; items
// whose product was deleted fall back to the seeded default cost for their
// type.
func (s *ReportsService) GetPeriodReport(start, end string) (*PeriodReport, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	sales, err := s.salesSvc.GetSalesByPeriod(start, end)
	if err != nil {
		return nil, err
	}

	report := &PeriodReport{StartDate: start, EndDate: end}
	ranking := make(map[string]*ProductSalesSummary)

	costOf := func(item models.SaleItem) float64 {
		if item.ProductID != nil {
			var product models.Product
			if err := s.db.First(&product, *item.ProductID).Error; err == nil {
				return product.UnitCost
			}
		}
		return s.configSvc.DefaultUnitCost(item.ProductType)
	}

	for _, sale := range sales {
		switch sale.Status {
		case models.SaleStatusPaid:
			report.TotalSold += sale.TotalPrice
		case models.SaleStatusPending:
			report.TotalPending += sale.TotalPrice
		}

		if sale.Status != models.SaleStatusPaid {
			continue
		}

		for _, item := range sale.Items {
			report.QuantitySold += item.Quantity
			report.ProductionCost += float64(item.Quantity) * costOf(item)

			key := item.ProductType + "|" + item.ProductFlavor
			entry, ok := ranking[key]
			if !ok {
				entry = &ProductSalesSummary{
					ProductType:   item.ProductType,
					ProductFlavor: item.ProductFlavor,
				}
				ranking[key] = entry
			}
			entry.QuantitySold += item.Quantity
			entry.Revenue += item.Subtotal
		}
	}

	report.Profit = report.TotalSold - report.ProductionCost

	top := make([]ProductSalesSummary, 0, len(ranking))
	for _, entry := range ranking {
		top = append(top, *entry)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].QuantitySold != top[j].QuantitySold {
			return top[i].QuantitySold > top[j].QuantitySold
		}
		return top[i].Revenue > top[j].Revenue
	})
	if len(top) > 5 {
		top = top[:5]
	}
	report.TopProducts = top

	return report, nil
}

// GetDashboardStats builds the landing-screen snapshot: today's revenue
// against yesterday's, outstanding debt, goal progress and what is running
// low in the active batches.
func (s *ReportsService) GetDashboardStats() (*DashboardStats, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	today := time.Now().Format("2006-01-02")
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	stats := &DashboardStats{}

	todaySales, err := s.salesSvc.GetSalesByPeriod(today, today)
	if err != nil {
		return nil, err
	}
	for _, sale := range todaySales {
		if sale.Status != models.SaleStatusPaid {
			continue
		}
		stats.TodayTotal += sale.TotalPrice
		for _, item := range sale.Items {
			stats.TodayQuantity += item.Quantity
		}
	}

	stats.YesterdayTotal, err = s.salesSvc.GetTotalSoldByPeriod(yesterday, yesterday)
	if err != nil {
		return nil, err
	}
	if stats.YesterdayTotal > 0 {
		stats.GrowthPercent = (stats.TodayTotal - stats.YesterdayTotal) / stats.YesterdayTotal * 100
	}

	if err := s.db.Model(&models.Sale{}).
		Where("status = ?", models.SaleStatusPending).
		Count(&stats.PendingCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending sales: %w", err)
	}
	if err := s.db.Model(&models.Sale{}).
		Where("status = ?", models.SaleStatusPending).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&stats.PendingTotal).Error; err != nil {
		return nil, fmt.Errorf("failed to sum pending sales: %w", err)
	}

	if paidToday := countPaid(todaySales); paidToday > 0 {
		stats.AverageTicket = stats.TodayTotal / float64(paidToday)
	}

	stats.DailyGoal = s.configSvc.GetFloat(ConfigDailyGoal, 0)
	if stats.DailyGoal > 0 {
		stats.GoalProgress = stats.TodayTotal / stats.DailyGoal * 100
	}

	if err := s.db.
		Joins("JOIN batches ON batches.id = products.batch_id").
		Where("batches.active = ? AND products.initial_qty - products.sold_qty BETWEEN 1 AND 5", true).
		Order("products.initial_qty - products.sold_qty").
		Limit(10).
		Find(&stats.LowStock).Error; err != nil {
		return nil, fmt.Errorf("failed to get low stock products: %w", err)
	}

	stats.RecentSales, err = s.salesSvc.GetRecentSales(5)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func countPaid(sales []models.Sale) int {
	count := 0
	for _, sale := range sales {
		if sale.Status == models.SaleStatusPaid {
			count++
		}
	}
	return count
}
