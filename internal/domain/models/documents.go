package models

import "time"

// DocumentLine is a persisted line of an invoice or purchase.
type DocumentLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

// Invoice is a sale to a customer.
type Invoice struct {
	ID             string         `json:"id,omitempty"`
	Number         string         `json:"invoice_number,omitempty"`
	StoreID        string         `json:"store_id"`
	CustomerID     string         `json:"customer_id"`
	Date           string         `json:"invoice_date,omitempty"`
	Items          []DocumentLine `json:"invoice_items_attributes"`
	DiscountType   string         `json:"discount_type,omitempty"`
	DiscountValue  string         `json:"discount_value,omitempty"`
	DiscountAmount string         `json:"discount_amount"`
	Roundoff       string         `json:"roundoff"`
	Subtotal       string         `json:"subtotal"`
	GrandTotal     string         `json:"grand_total"`
	Notes          string         `json:"notes,omitempty"`
	CreatedAt      *time.Time     `json:"created_at,omitempty"`
}

// Purchase is a stock intake from a vendor.
type Purchase struct {
	ID             string         `json:"id,omitempty"`
	Number         string         `json:"purchase_number,omitempty"`
	StoreID        string         `json:"store_id"`
	VendorID       string         `json:"vendor_id"`
	Date           string         `json:"purchase_date,omitempty"`
	Items          []DocumentLine `json:"purchase_items_attributes"`
	DiscountType   string         `json:"discount_type,omitempty"`
	DiscountValue  string         `json:"discount_value,omitempty"`
	DiscountAmount string         `json:"discount_amount"`
	Roundoff       string         `json:"roundoff"`
	Subtotal       string         `json:"subtotal"`
	GrandTotal     string         `json:"grand_total"`
	Notes          string         `json:"notes,omitempty"`
	CreatedAt      *time.Time     `json:"created_at,omitempty"`
}
