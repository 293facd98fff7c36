package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	domana "github.com/kailas-cloud/catalogd/internal/domain/analytics"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
)

// Window bounds a report: Since inclusive, Until exclusive. Zero means open.
type Window struct {
	Since time.Time `json:"since,omitzero"`
	Until time.Time `json:"until,omitzero"`
}

// Sale is one purchase as shown in report listings.
type Sale struct {
	EventID      string          `json:"event_id"`
	ModelID      string          `json:"model_id"`
	ModelName    string          `json:"model_name"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	Status       event.Status    `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
}

// SalesReport summarizes a seller's purchases by model.
// Revenue counts completed purchases only.
type SalesReport struct {
	SellerID        string          `json:"seller_id,omitempty"`
	Window          Window          `json:"window"`
	Models          []domana.Row    `json:"models"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	CompletedSales  int             `json:"completed_sales"`
	PendingSales    int             `json:"pending_sales"`
	RefundedSales   int             `json:"refunded_sales"`
	AverageSale     decimal.Decimal `json:"average_sale"`
	UniqueCustomers int             `json:"unique_customers"`
	RecentSales     []Sale          `json:"recent_sales"`
}

// CustomerReport summarizes a seller's completed purchases by customer.
type CustomerReport struct {
	SellerID      string          `json:"seller_id,omitempty"`
	Window        Window          `json:"window"`
	Customers     []domana.Row    `json:"customers"`
	CustomerCount int             `json:"customer_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	AverageSpend  decimal.Decimal `json:"average_spend"`
}

// CustomerDetail is one customer's purchase history with a seller.
type CustomerDetail struct {
	CustomerID    string          `json:"customer_id"`
	Name          string          `json:"name"`
	Email         string          `json:"email,omitempty"`
	Known         bool            `json:"known"`
	Purchases     []Sale          `json:"purchases"`
	Models        []domana.Row    `json:"models"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	PurchaseCount int             `json:"purchase_count"`
	AverageSpend  decimal.Decimal `json:"average_spend"`
	FirstPurchase time.Time       `json:"first_purchase,omitzero"`
	LastPurchase  time.Time       `json:"last_purchase,omitzero"`
}

// RevenueSeries is a gap-free daily revenue series.
type RevenueSeries struct {
	SellerID string          `json:"seller_id,omitempty"`
	Days     int             `json:"days"`
	Timezone string          `json:"timezone"`
	Series   []domana.Row    `json:"series"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}
