package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type Category struct {
	ID   string `gorm:"type:uuid;primaryKey" json:"id"`
	Name string `gorm:"unique;not null"      json:"name"`
	Icon string `json:"icon"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Medicine struct {
	ID                   string          `gorm:"type:uuid;primaryKey"        json:"id"`
	Name                 string          `gorm:"not null;index"              json:"name"`
	GenericName          string          `json:"generic_name"`
	Manufacturer         string          `json:"manufacturer"`
	CategoryID           *string         `gorm:"type:uuid;index"             json:"category_id"`
	Dosage               string          `json:"dosage"`
	Form                 string          `json:"form"`
	PackSize             string          `json:"pack_size"`
	Price                decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	MRP                  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"mrp"`
	Stock                int             `gorm:"not null;default:0"          json:"stock"`
	RequiresPrescription bool            `gorm:"default:false"               json:"requires_prescription"`
	IsScheduleH          bool            `gorm:"default:false"               json:"is_schedule_h"`
	Description          string          `json:"description"`
	ImageURL             string          `json:"image_url"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (m *Medicine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Prescription statuses: pending, processed, verified.
type Prescription struct {
	ID                 string    `gorm:"type:uuid;primaryKey"    json:"id"`
	UserID             uint      `gorm:"index"                   json:"user_id"`
	ImageURL           string    `gorm:"not null"                json:"image_url"`
	OCRText            string    `json:"ocr_text"`
	ExtractedMedicines string    `gorm:"type:text"               json:"extracted_medicines"`
	Status             string    `gorm:"default:pending"         json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

func (p *Prescription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusProcessing     = "processing"
	OrderStatusReady          = "ready"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

const (
	DeliveryTypePickup   = "pickup"
	DeliveryTypeDelivery = "delivery"
)

type Order struct {
	ID              string          `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderNumber     string          `gorm:"uniqueIndex;not null"        json:"order_number"`
	UserID          *uint           `gorm:"index"                       json:"user_id"`
	CustomerName    string          `gorm:"not null"                    json:"customer_name"`
	CustomerPhone   string          `gorm:"not null"                    json:"customer_phone"`
	CustomerEmail   string          `json:"customer_email"`
	PrescriptionID  *string         `gorm:"type:uuid"                   json:"prescription_id"`
	DeliveryType    string          `gorm:"not null"                    json:"delivery_type"`
	DeliveryAddress string          `json:"delivery_address"`
	Status          string          `gorm:"not null;default:pending"    json:"status"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	DeliveryFee     decimal.Decimal `gorm:"type:decimal(10,2)"          json:"delivery_fee"`
	Total           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderItem keeps a denormalized copy of the medicine name and price so
// historical orders stay readable after later catalog edits.
type OrderItem struct {
	ID           string          `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderID      string          `gorm:"type:uuid;index;not null"    json:"order_id"`
	MedicineID   string          `gorm:"type:uuid;not null"          json:"medicine_id"`
	MedicineName string          `gorm:"not null"                    json:"medicine_name"`
	Quantity     int             `gorm:"not null"                    json:"quantity"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Total        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

var statusTransitions = map[string][]string{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:          {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
// Transitions are forward-only; cancelled is reachable from any non-terminal
// status, delivered and cancelled are terminal.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusReady, OrderStatusOutForDelivery, OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	}
	return false
}
