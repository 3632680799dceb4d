package models

// Product is a sellable item of a store.
type Product struct {
	ID           string `json:"id,omitempty"`
	StoreID      string `json:"store_id,omitempty"`
	Name         string `json:"name" binding:"required"`
	SKU          string `json:"sku,omitempty"`
	Unit         string `json:"unit,omitempty"`
	Price        string `json:"price"`
	CostPrice    string `json:"cost_price,omitempty"`
	Stock        int    `json:"stock"`
	ReorderLevel int    `json:"reorder_level,omitempty"`
}

// Vendor supplies products through purchases.
type Vendor struct {
	ID      string `json:"id,omitempty"`
	StoreID string `json:"store_id,omitempty"`
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
}

// Customer is billed through invoices.
type Customer struct {
	ID      string `json:"id,omitempty"`
	StoreID string `json:"store_id,omitempty"`
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}
