package domain

// Mart table names.
const (
	DailyMetricsTable     = "daily_metrics"
	TopProductsDailyTable = "top_products_daily"
	CustomerFeaturesTable = "customer_features_quarterly"
)

// TopProductsPerDay bounds the number of ranked products kept per day.
const TopProductsPerDay = 10

// Column orders of the marts, as written by the aggregation catalog.
var (
	DailyMetricColumns     = []string{"day", "total_invoices", "total_items", "total_revenue"}
	TopProductDailyColumns = []string{"day", "stockcode", "units_sold", "revenue"}
	CustomerFeatureColumns = []string{"customer_id", "order_count", "total_spent", "avg_basket_value", "last_purchase"}
)
