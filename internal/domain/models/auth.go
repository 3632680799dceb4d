package models

// Credentials are submitted on login.
type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// OnboardingStatus tells whether the organization finished onboarding.
type OnboardingStatus struct {
	Onboarded bool `json:"onboarded"`
}

// OnboardRequest creates an organization, its first store and its admin.
type OnboardRequest struct {
	OrganizationName string `json:"organization_name" binding:"required"`
	StoreName        string `json:"store_name" binding:"required"`
	StoreCode        string `json:"store_code"`
	AdminName        string `json:"admin_name" binding:"required"`
	AdminEmail       string `json:"admin_email" binding:"required"`
	Password         string `json:"password" binding:"required"`
}
