package models

// Store is a billing location under an organization. It scopes customers,
// invoices and purchases.
type Store struct {
	ID             string `json:"id" bson:"id"`
	Name           string `json:"name" bson:"name"`
	Code           string `json:"code" bson:"code"`
	OrganizationID string `json:"organization_id" bson:"organization_id"`
}
