package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	RoleBuyer    = "buyer"
	RoleBusiness = "business"
	RoleAgency   = "agency"
	RoleAdmin    = "admin"
)

const (
	CryptoStatusPending   = "pending"
	CryptoStatusCompleted = "completed"
	AddressStatusActive   = "active"
)

type User struct {
	ID                  string     `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Username            *string    `db:"username" json:"username"`
	Nickname            *string    `db:"nickname" json:"nickname"`
	Role                string     `db:"role" json:"role"`
	Name                *string    `db:"name" json:"name"`
	Bio                 *string    `db:"bio" json:"bio"`
	AvatarURL           *string    `db:"avatar_url" json:"avatarUrl"`
	Phone               *string    `db:"phone" json:"phone"`
	TelegramID          *int64     `db:"telegram_id" json:"-"`
	TelegramUsername    *string    `db:"telegram_username" json:"telegramUsername"`
	Verified            bool       `db:"verified" json:"verified"`
	IsPremium           bool       `db:"is_premium" json:"isPremium"`
	AgencyID            *string    `db:"agency_id" json:"agencyId"`
	AgencyName          *string    `db:"agency_name" json:"agencyName"`
	BusinessType        *string    `db:"business_type" json:"businessType"`
	ReferralCode        *string    `db:"referral_code" json:"referralCode"`
	ReferredBy          *string    `db:"referred_by" json:"-"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
}

type WalletBalance struct {
	UserID    string          `db:"user_id" json:"-"`
	Currency  string          `db:"currency" json:"currency"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

type DepositAddress struct {
	ID        string    `db:"id" json:"-"`
	UserID    string    `db:"user_id" json:"-"`
	Currency  string    `db:"currency" json:"currency"`
	Address   string    `db:"address" json:"address"`
	Tag       *string   `db:"tag" json:"tag"`
	InvoiceID string    `db:"invoice_id" json:"invoice_id"`
	Status    string    `db:"status" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CatalogItem struct {
	ID            string           `db:"id" json:"id"`
	UserID        string           `db:"user_id" json:"userId"`
	AgencyID      *string          `db:"agency_id" json:"agencyId"`
	AgencyName    *string          `db:"agency_name" json:"agencyName"`
	Title         string           `db:"title" json:"title"`
	Description   *string          `db:"description" json:"description"`
	Price         decimal.Decimal  `db:"price" json:"price"`
	Category      *string          `db:"category" json:"category"`
	Age           *int             `db:"age" json:"age"`
	Height        *int             `db:"height" json:"height"`
	BodyType      *string          `db:"body_type" json:"bodyType"`
	Country       *string          `db:"country" json:"country"`
	Location      *string          `db:"location" json:"location"`
	ImageURL      *string          `db:"image_url" json:"imageUrl"`
	AvatarURL     *string          `db:"avatar_url" json:"avatarUrl"`
	Images        pq.StringArray   `db:"images" json:"images"`
	IsActive      bool             `db:"is_active" json:"isActive"`
	IsVerified    bool             `db:"is_verified" json:"isVerified"`
	WorkSchedule  *json.RawMessage `db:"work_schedule" json:"workSchedule"`
	ViewsCount    int              `db:"views_count" json:"viewsCount"`
	BookingsCount int              `db:"bookings_count" json:"bookingsCount"`
	Rating        decimal.Decimal  `db:"rating" json:"rating"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updatedAt"`
}

type ServiceProgram struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Unit        *string         `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

type BusinessService struct {
	ID          string           `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"userId"`
	Title       string           `db:"title" json:"title"`
	Description *string          `db:"description" json:"description"`
	CategoryID  *string          `db:"category_id" json:"categoryId"`
	Images      pq.StringArray   `db:"images" json:"images"`
	Status      string           `db:"status" json:"status"`
	Programs    []ServiceProgram `db:"-" json:"programs"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

type TelegramPayment struct {
	TelegramUserID          int64           `json:"telegram_user_id"`
	TelegramPaymentChargeID string          `json:"telegram_payment_charge_id"`
	ProviderPaymentChargeID string          `json:"provider_payment_charge_id"`
	Amount                  decimal.Decimal `json:"amount"`
	Currency                string          `json:"currency"`
	Payload                 json.RawMessage `json:"payload"`
}
