package repositories

import (
	"time"

	"cloud.google.com/go/firestore"

	"shopwave/internal/models"
)

// Firestore DTOs. Domain structs are never written directly so stored field names
// stay stable when the domain types change.

type productDoc struct {
	Name          string    `firestore:"name"`
	NameLowercase string    `firestore:"name_lowercase"`
	Description   string    `firestore:"description"`
	Price         float64   `firestore:"price"`
	ImageURL      string    `firestore:"imageUrl"`
	Images        []string  `firestore:"images"`
	Category      string    `firestore:"category"`
	Featured      bool      `firestore:"featured"`
	Stock         int       `firestore:"stock"`
	Condition     string    `firestore:"condition"`
	CreatedAt     time.Time `firestore:"createdAt,serverTimestamp"`
	UpdatedAt     time.Time `firestore:"updatedAt,serverTimestamp"`
}

type searchKeyDoc struct {
	Key       string `firestore:"key"`
	ProductID string `firestore:"productId"`
}

type profileDoc struct {
	UID         string `firestore:"uid"`
	Email       string `firestore:"email"`
	DisplayName string `firestore:"displayName"`
	PhotoURL    string `firestore:"photoURL,omitempty"`
	Address     string `firestore:"address,omitempty"`
	City        string `firestore:"city,omitempty"`
	PostalCode  string `firestore:"postalCode,omitempty"`
	Country     string `firestore:"country,omitempty"`
}

type cartItemDoc struct {
	ID       string  `firestore:"id"`
	Name     string  `firestore:"name"`
	Price    float64 `firestore:"price"`
	ImageURL string  `firestore:"imageUrl"`
	Quantity int     `firestore:"quantity"`
}

type orderItemDoc struct {
	ProductID string  `firestore:"productId"`
	Name      string  `firestore:"name"`
	Quantity  int     `firestore:"quantity"`
	Price     float64 `firestore:"price"`
	ImageURL  string  `firestore:"imageUrl"`
}

type shippingAddressDoc struct {
	FullName   string `firestore:"fullName"`
	Address    string `firestore:"address"`
	City       string `firestore:"city"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
	Email      string `firestore:"email"`
}

type orderDoc struct {
	UserID          string             `firestore:"userId"`
	Items           []orderItemDoc     `firestore:"items"`
	TotalAmount     float64            `firestore:"totalAmount"`
	ShippingAddress shippingAddressDoc `firestore:"shippingAddress"`
	Status          string             `firestore:"status"`
	CreatedAt       time.Time          `firestore:"createdAt,serverTimestamp"`
}

type credentialDoc struct {
	Email           string    `firestore:"email"`
	DisplayName     string    `firestore:"displayName"`
	PasswordHash    string    `firestore:"passwordHash"`
	Admin           bool      `firestore:"admin"`
	TokenGeneration int       `firestore:"tokenGeneration"`
	CreatedAt       time.Time `firestore:"createdAt,serverTimestamp"`
}

func productDocFromModel(p models.Product) productDoc {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productDoc{
		Name:          p.Name,
		NameLowercase: p.NameLowercase,
		Description:   p.Description,
		Price:         p.Price,
		ImageURL:      p.ImageURL,
		Images:        images,
		Category:      p.Category,
		Featured:      p.Featured,
		Stock:         p.Stock,
		Condition:     string(p.Condition),
	}
}

func productFromSnapshot(snap *firestore.DocumentSnapshot) (models.Product, error) {
	var d productDoc
	if err := snap.DataTo(&d); err != nil {
		return models.Product{}, err
	}
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return models.Product{
		ID:            snap.Ref.ID,
		Name:          d.Name,
		NameLowercase: d.NameLowercase,
		Description:   d.Description,
		Price:         d.Price,
		ImageURL:      d.ImageURL,
		Images:        images,
		Category:      d.Category,
		Featured:      d.Featured,
		Stock:         d.Stock,
		Condition:     models.Condition(d.Condition).OrDefault(),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}, nil
}

// productUpdates lists the field paths of a partial product write.
func productUpdates(u models.ProductUpdate) []firestore.Update {
	var ups []firestore.Update
	if u.Name != nil {
		ups = append(ups,
			firestore.Update{Path: "name", Value: *u.Name},
			firestore.Update{Path: "name_lowercase", Value: models.LowercaseName(*u.Name)},
		)
	}
	if u.Description != nil {
		ups = append(ups, firestore.Update{Path: "description", Value: *u.Description})
	}
	if u.Price != nil {
		ups = append(ups, firestore.Update{Path: "price", Value: *u.Price})
	}
	if u.ImageURL != nil {
		ups = append(ups, firestore.Update{Path: "imageUrl", Value: *u.ImageURL})
	}
	if u.Images != nil {
		images := *u.Images
		if images == nil {
			images = []string{}
		}
		ups = append(ups, firestore.Update{Path: "images", Value: images})
	}
	if u.Category != nil {
		ups = append(ups, firestore.Update{Path: "category", Value: *u.Category})
	}
	if u.Featured != nil {
		ups = append(ups, firestore.Update{Path: "featured", Value: *u.Featured})
	}
	if u.Stock != nil {
		ups = append(ups, firestore.Update{Path: "stock", Value: *u.Stock})
	}
	if u.Condition != nil {
		ups = append(ups, firestore.Update{Path: "condition", Value: string(*u.Condition)})
	}
	return append(ups, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})
}

func profileDocFromModel(p models.UserProfile) profileDoc {
	return profileDoc(p)
}

func (d profileDoc) toModel() models.UserProfile {
	return models.UserProfile(d)
}

// profileMergeFields maps the present fields of u to document fields.
func profileMergeFields(uid string, u models.ProfileUpdate) map[string]interface{} {
	fields := map[string]interface{}{"uid": uid}
	add := func(field string, v *string) {
		if v != nil {
			fields[field] = *v
		}
	}
	add("email", u.Email)
	add("displayName", u.DisplayName)
	add("photoURL", u.PhotoURL)
	add("address", u.Address)
	add("city", u.City)
	add("postalCode", u.PostalCode)
	add("country", u.Country)
	return fields
}

func cartItemDocFromModel(it models.CartItem) cartItemDoc {
	return cartItemDoc(it)
}

func (d cartItemDoc) toModel() models.CartItem {
	return models.CartItem(d)
}

func orderDocFromModel(o models.Order) orderDoc {
	items := make([]orderItemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDoc(it))
	}
	return orderDoc{
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: shippingAddressDoc(o.ShippingAddress),
		Status:          string(o.Status),
	}
}

func orderFromSnapshot(snap *firestore.DocumentSnapshot) (models.Order, error) {
	var d orderDoc
	if err := snap.DataTo(&d); err != nil {
		return models.Order{}, err
	}
	items := make([]models.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, models.OrderItem(it))
	}
	return models.Order{
		ID:              snap.Ref.ID,
		UserID:          d.UserID,
		Items:           items,
		TotalAmount:     d.TotalAmount,
		ShippingAddress: models.ShippingAddress(d.ShippingAddress),
		Status:          models.OrderStatus(d.Status),
		CreatedAt:       d.CreatedAt.UTC(),
	}, nil
}

func credentialFromSnapshot(snap *firestore.DocumentSnapshot) (models.Credential, error) {
	var d credentialDoc
	if err := snap.DataTo(&d); err != nil {
		return models.Credential{}, err
	}
	return models.Credential{
		UID:             snap.Ref.ID,
		Email:           d.Email,
		DisplayName:     d.DisplayName,
		PasswordHash:    d.PasswordHash,
		Admin:           d.Admin,
		TokenGeneration: d.TokenGeneration,
		CreatedAt:       d.CreatedAt.UTC(),
	}, nil
}
