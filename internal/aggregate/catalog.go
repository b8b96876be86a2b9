package aggregate

import (
	"fmt"

	"retailetl/internal/domain"
	"retailetl/internal/storage"
)

// Transformation is one named, versioned mart definition: a SELECT over the
// raw store whose result fully replaces Target.
type Transformation struct {
	Name    string
	Version int
	Target  string
	Columns []string
	// Query renders the SELECT for d; its output columns align with Columns.
	Query func(d storage.Dialect) string
}

// Catalog returns the built-in transformations in execution order.
func Catalog() []Transformation {
	return []Transformation{
		{
			Name:    "daily_metrics",
			Version: 1,
			Target:  domain.DailyMetricsTable,
			Columns: domain.DailyMetricColumns,
			Query:   dailyMetricsQuery,
		},
		{
			Name:    "top_products_daily",
			Version: 1,
			Target:  domain.TopProductsDailyTable,
			Columns: domain.TopProductDailyColumns,
			Query:   topProductsDailyQuery,
		},
		{
			Name:    "customer_features_quarterly",
			Version: 1,
			Target:  domain.CustomerFeaturesTable,
			Columns: domain.CustomerFeatureColumns,
			Query:   customerFeaturesQuery,
		},
	}
}

func dailyMetricsQuery(d storage.Dialect) string {
	return fmt.Sprintf(`SELECT %[1]s AS day,
       COUNT(DISTINCT invoice) AS total_invoices,
       SUM(quantity) AS total_items,
       SUM(quantity * price) AS total_revenue
FROM %[2]s
WHERE invoicedate IS NOT NULL
GROUP BY %[1]s
ORDER BY day`, d.Day("invoicedate"), d.Quote(domain.RawTable))
}

// topProductsDailyQuery ranks products within each day by revenue; equal
// revenue is broken by stockcode so the kept set is deterministic.
func topProductsDailyQuery(d storage.Dialect) string {
	return fmt.Sprintf(`SELECT day, stockcode, units_sold, revenue
FROM (
  SELECT day, stockcode, units_sold, revenue,
         ROW_NUMBER() OVER (PARTITION BY day ORDER BY revenue DESC, stockcode ASC) AS rn
  FROM (
    SELECT %[1]s AS day,
           stockcode,
           SUM(quantity) AS units_sold,
           SUM(quantity * price) AS revenue
    FROM %[2]s
    WHERE invoicedate IS NOT NULL
    GROUP BY %[1]s, stockcode
  ) product_day
) ranked
WHERE rn <= %[3]d
ORDER BY day, revenue DESC, stockcode`, d.Day("invoicedate"), d.Quote(domain.RawTable), domain.TopProductsPerDay)
}

// customerFeaturesQuery collapses lines to one value per (customer, invoice)
// before aggregating per customer.
func customerFeaturesQuery(d storage.Dialect) string {
	return fmt.Sprintf(`SELECT customer_id,
       COUNT(*) AS order_count,
       SUM(invoice_value) AS total_spent,
       AVG(invoice_value) AS avg_basket_value,
       MAX(invoice_date) AS last_purchase
FROM (
  SELECT customer_id,
         invoice,
         MAX(invoicedate) AS invoice_date,
         SUM(quantity * price) AS invoice_value
  FROM %[1]s
  WHERE customer_id IS NOT NULL
    AND customer_id <> '%[2]s'
    AND invoicedate IS NOT NULL
  GROUP BY customer_id, invoice
) invoices
GROUP BY customer_id`, d.Quote(domain.RawTable), domain.CustomerIDMissing)
}
