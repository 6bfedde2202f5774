package repositories

import (
	"time"

	"shopwave/internal/models"
)

// productRecord is the products table row.
type productRecord struct {
	ID            string `gorm:"primaryKey;size:64"`
	Name          string `gorm:"not null"`
	NameLowercase string `gorm:"index"`
	Description   string
	Price         float64
	ImageURL      string
	Images        []string `gorm:"serializer:json"`
	Category      string   `gorm:"index"`
	Featured      bool     `gorm:"index"`
	Stock         int
	Condition     string `gorm:"size:16;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (productRecord) TableName() string { return "products" }

// productSearchKeyRecord is one entry of the product name search index.
type productSearchKeyRecord struct {
	SearchKey string `gorm:"primaryKey"`
	ProductID string `gorm:"primaryKey;size:64;index"`
}

func (productSearchKeyRecord) TableName() string { return "product_search_keys" }

type profileRecord struct {
	UID         string `gorm:"primaryKey;size:128"`
	Email       string
	DisplayName string
	PhotoURL    string
	Address     string
	City        string
	PostalCode  string
	Country     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (profileRecord) TableName() string { return "user_profiles" }

type cartItemRecord struct {
	UserID    string `gorm:"primaryKey;size:128"`
	ProductID string `gorm:"primaryKey;size:64"`
	Name      string
	Price     float64
	ImageURL  string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (cartItemRecord) TableName() string { return "cart_items" }

type orderItemRecord struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"imageUrl"`
}

type shippingAddressRecord struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Email      string `json:"email"`
}

type orderRecord struct {
	ID              string            `gorm:"primaryKey;size:64"`
	UserID          string            `gorm:"size:128;index"`
	Items           []orderItemRecord `gorm:"serializer:json"`
	TotalAmount     float64
	ShippingAddress shippingAddressRecord `gorm:"serializer:json"`
	Status          string                `gorm:"size:16"`
	CreatedAt       time.Time             `gorm:"index"`
}

func (orderRecord) TableName() string { return "orders" }

type credentialRecord struct {
	UID             string `gorm:"primaryKey;size:128"`
	Email           string `gorm:"uniqueIndex;size:320"`
	DisplayName     string
	PasswordHash    string
	Admin           bool
	TokenGeneration int
	CreatedAt       time.Time
}

func (credentialRecord) TableName() string { return "credentials" }

// GORMModels lists the record types the GORM store needs migrated.
func GORMModels() []interface{} {
	return []interface{}{
		&productRecord{},
		&productSearchKeyRecord{},
		&profileRecord{},
		&cartItemRecord{},
		&orderRecord{},
		&credentialRecord{},
	}
}

func productRecordFromModel(p models.Product) productRecord {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productRecord{
		ID:            p.ID,
		Name:          p.Name,
		NameLowercase: p.NameLowercase,
		Description:   p.Description,
		Price:         p.Price,
		ImageURL:      p.ImageURL,
		Images:        append([]string{}, images...),
		Category:      p.Category,
		Featured:      p.Featured,
		Stock:         p.Stock,
		Condition:     string(p.Condition),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r productRecord) toModel() models.Product {
	images := append([]string{}, r.Images...)
	return models.Product{
		ID:            r.ID,
		Name:          r.Name,
		NameLowercase: r.NameLowercase,
		Description:   r.Description,
		Price:         r.Price,
		ImageURL:      r.ImageURL,
		Images:        images,
		Category:      r.Category,
		Featured:      r.Featured,
		Stock:         r.Stock,
		Condition:     models.Condition(r.Condition).OrDefault(),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func profileRecordFromModel(p models.UserProfile) profileRecord {
	return profileRecord{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		Address:     p.Address,
		City:        p.City,
		PostalCode:  p.PostalCode,
		Country:     p.Country,
	}
}

func (r profileRecord) toModel() models.UserProfile {
	return models.UserProfile{
		UID:         r.UID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		PhotoURL:    r.PhotoURL,
		Address:     r.Address,
		City:        r.City,
		PostalCode:  r.PostalCode,
		Country:     r.Country,
	}
}

func cartItemRecordFromModel(userID string, it models.CartItem) cartItemRecord {
	return cartItemRecord{
		UserID:    userID,
		ProductID: it.ID,
		Name:      it.Name,
		Price:     it.Price,
		ImageURL:  it.ImageURL,
		Quantity:  it.Quantity,
	}
}

func (r cartItemRecord) toModel() models.CartItem {
	return models.CartItem{
		ID:       r.ProductID,
		Name:     r.Name,
		Price:    r.Price,
		ImageURL: r.ImageURL,
		Quantity: r.Quantity,
	}
}

func orderRecordFromModel(o models.Order) orderRecord {
	items := make([]orderItemRecord, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemRecord(it))
	}
	return orderRecord{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: shippingAddressRecord(o.ShippingAddress),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
	}
}

func (r orderRecord) toModel() models.Order {
	items := make([]models.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, models.OrderItem(it))
	}
	return models.Order{
		ID:              r.ID,
		UserID:          r.UserID,
		Items:           items,
		TotalAmount:     r.TotalAmount,
		ShippingAddress: models.ShippingAddress(r.ShippingAddress),
		Status:          models.OrderStatus(r.Status),
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

func credentialRecordFromModel(c models.Credential) credentialRecord {
	return credentialRecord(c)
}

func (r credentialRecord) toModel() models.Credential {
	return models.Credential(r)
}
