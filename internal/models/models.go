package models

import "time"

// Collection names for the two submission kinds.
const (
	CollectionProducts = "products"
	CollectionModels   = "models"
)

// Submission status values.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Product categories accepted at intake.
const (
	CategoryElectronics = "electronics"
	CategoryFurniture   = "furniture"
	CategoryClothing    = "clothing"
	CategoryToys        = "toys"
	CategoryOther       = "other"
)

// ValidStatus reports whether s is a known submission status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Product represents a product submission record
type Product struct {
	ID            string    `json:"id"`
	Token         string    `json:"token"`
	ProductName   string    `json:"productName"`
	Category      string    `json:"category"`
	SellerName    string    `json:"sellerName"`
	SellerContact string    `json:"sellerContact"`
	SellerEmail   string    `json:"sellerEmail"`
	ImageURL      string    `json:"imageUrl"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Model represents a 3D model submission record
type Model struct {
	ID           string    `json:"id"`
	SellerEmail  string    `json:"sellerEmail"`
	ModelURL     string    `json:"modelUrl"`
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	FileSize     int64     `json:"fileSize"`
	Status       string    `json:"status"`
	UploadDate   time.Time `json:"uploadDate"`
}
