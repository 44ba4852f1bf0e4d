package repository

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"homecheff/internal/catalog"
	"homecheff/internal/commission"
	"homecheff/internal/geo"
)

type Role string

const (
	RoleBuyer     Role = "buyer"
	RoleSeller    Role = "seller"
	RoleCourier   Role = "courier"
	RoleAffiliate Role = "affiliate"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r may be chosen at registration. Admins are seeded.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleCourier, RoleAffiliate:
		return true
	}
	return false
}

type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	Address        *string
	Location       *geo.Point
	TelegramChatID *int64
	CreatedAt      time.Time
}

// Registration is a new account plus the referral links created with it.
type Registration struct {
	User User
	// ReferralCode links the new user to the affiliate owning the code.
	ReferralCode string
	// ParentAffiliateID makes a new affiliate a sub-affiliate.
	ParentAffiliateID *string
}

type SellerProfile struct {
	UserID            string
	DisplayName       string
	Location          *geo.Point
	SubscriptionUntil *time.Time
}

// SellerDashboard aggregates a seller's orders.
type SellerDashboard struct {
	Products        int   `json:"products"`
	PendingOrders   int   `json:"pending_orders"`
	PaidOrders      int   `json:"paid_orders"`
	DeliveredOrders int   `json:"delivered_orders"`
	RevenueCents    int64 `json:"revenue_cents"`
}

type DeliveryProfile struct {
	UserID         string
	Online         bool
	GPSTracking    bool
	MaxDistanceKm  float64
	Home           *geo.Point
	Live           *geo.Point
	LiveUpdatedAt  *time.Time
	TelegramChatID *int64
}

type CourierSettings struct {
	GPSTracking    bool
	MaxDistanceKm  float64
	Home           *geo.Point
	TelegramChatID *int64
}

type Product struct {
	ID          string
	SellerID    string
	Title       string
	Description string
	PriceCents  int64
	Stock       int
	Recipe      json.RawMessage
	GrowingLog  json.RawMessage
	CreatedAt   time.Time
}

// Detail resolves the stored recipe and growing log into the product's
// catalog variant.
func (p Product) Detail() (catalog.Detail, error) {
	return catalog.Resolve(catalog.Product{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Title:       p.Title,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
	}, p.Recipe, p.GrowingLog)
}

type DeliveryMode string

const (
	ModePickup  DeliveryMode = "pickup"
	ModeSeller  DeliveryMode = "seller"
	ModeCourier DeliveryMode = "courier"
)

func (m DeliveryMode) Valid() bool {
	return m == ModePickup || m == ModeSeller || m == ModeCourier
}

type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

type Order struct {
	ID               string       `json:"id"`
	Number           string       `json:"order_number"`
	BuyerID          string       `json:"buyer_id"`
	SellerID         string       `json:"seller_id"`
	Mode             DeliveryMode `json:"delivery_mode"`
	SubtotalCents    int64        `json:"subtotal_cents"`
	DeliveryFeeCents int64        `json:"delivery_fee_cents"`
	PlatformFeeCents int64        `json:"platform_fee_cents"`
	TotalCents       int64        `json:"total_cents"`
	Status           OrderStatus  `json:"status"`
	Items            []OrderItem  `json:"items"`
	CreatedAt        time.Time    `json:"created_at"`
	PaidAt           *time.Time   `json:"paid_at,omitempty"`
}

type OrderItem struct {
	ProductID      string `json:"product_id"`
	Title          string `json:"title"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Payment references carry a prefix telling which table they settle.
const (
	OrderRefPrefix        = "ORD-"
	SubscriptionRefPrefix = "SUB-"
)

// NewReference builds a unique payment reference with the given prefix.
func NewReference(prefix string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}

// NewAffiliateCode builds a short referral code.
func NewAffiliateCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

type CandidateStatus string

const (
	CandidatePending   CandidateStatus = "pending"
	CandidateOpen      CandidateStatus = "open"
	CandidateClaimed   CandidateStatus = "claimed"
	CandidateDelivered CandidateStatus = "delivered"
	CandidateCancelled CandidateStatus = "cancelled"
)

type Affiliate struct {
	ID        string
	UserID    string
	Code      string
	ParentID  *string
	Overrides commission.Overrides
	CreatedAt time.Time
}

// Calc is the view of the affiliate the commission calculator works on.
func (a Affiliate) Calc() commission.Affiliate {
	return commission.Affiliate{ID: a.ID, Overrides: a.Overrides}
}

type ReferralKind string

const (
	ReferralUser     ReferralKind = "user"
	ReferralBusiness ReferralKind = "business"
)

type CommissionEvent struct {
	ID             string
	ReferredUserID string
	Type           commission.EventType
	AmountCents    int64
	SourceRef      string
}

type PayoutRecord struct {
	ID          string            `json:"id"`
	AffiliateID string            `json:"affiliate_id"`
	Level       commission.Level  `json:"level"`
	Rate        decimal.Decimal   `json:"rate"`
	AmountCents int64             `json:"amount_cents"`
	Status      commission.Status `json:"status"`
	SourceRef   string            `json:"source_ref"`
	CreatedAt   time.Time         `json:"created_at"`
}

// PayoutBatch summarises payouts moved in one status change.
type PayoutBatch struct {
	Count      int   `json:"count"`
	TotalCents int64 `json:"total_cents"`
}

type AffiliateSummary struct {
	Code               string `json:"code"`
	ReferredUsers      int    `json:"referred_users"`
	ReferredBusinesses int    `json:"referred_businesses"`
	SubAffiliates      int    `json:"sub_affiliates"`
	PendingCents       int64  `json:"pending_cents"`
	AvailableCents     int64  `json:"available_cents"`
	PaidCents          int64  `json:"paid_cents"`
}

type Subscription struct {
	ID          string
	SellerID    string
	PaymentRef  string
	AmountCents int64
	Status      string
	PeriodEnd   *time.Time
}

type Conversation struct {
	ID       string
	OrderID  *string
	BuyerID  string
	SellerID string
}

// Has reports whether userID takes part in the conversation.
func (c Conversation) Has(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
