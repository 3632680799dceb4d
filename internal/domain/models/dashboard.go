package models

import "time"

// DashboardSummary mirrors the store dashboard returned by the billing API.
type DashboardSummary struct {
	StoreID          string `json:"store_id" bson:"store_id"`
	TotalSales       string `json:"total_sales" bson:"total_sales"`
	TotalPurchases   string `json:"total_purchases" bson:"total_purchases"`
	InvoiceCount     int    `json:"invoice_count" bson:"invoice_count"`
	PurchaseCount    int    `json:"purchase_count" bson:"purchase_count"`
	CustomerCount    int    `json:"customer_count" bson:"customer_count"`
	ProductCount     int    `json:"product_count" bson:"product_count"`
	LowStockProducts int    `json:"low_stock_products" bson:"low_stock_products"`
}

// DashboardSnapshot is a dated copy of a summary kept for reporting.
type DashboardSnapshot struct {
	Store     Store            `bson:"store" json:"store"`
	Summary   DashboardSummary `bson:"summary" json:"summary"`
	TakenAt   time.Time        `bson:"taken_at" json:"taken_at"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
}
