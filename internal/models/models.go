package models

import "time"

// Product represents a catalog item owned by the upstream shop API.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
	Description string  `json:"description,omitempty"`
	HeatLevel   int     `json:"heat_level"`
	Rating      float64 `json:"rating"`
	Badge       string  `json:"badge,omitempty"`
	Origin      string  `json:"origin,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// ComboOffer is a discounted bundle sourced from static configuration.
// Products is display-only; constituents are not enforced referentially.
type ComboOffer struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	OriginalPrice float64  `json:"original_price"`
	OfferPrice    float64  `json:"offer_price"`
	Discount      int      `json:"discount"`
	Products      []string `json:"products,omitempty"`
	Image         string   `json:"image,omitempty"`
	HeatLevel     int      `json:"heat_level"`
	Rating        float64  `json:"rating"`
	Badge         string   `json:"badge,omitempty"`
	Origin        string   `json:"origin,omitempty"`
}

// CartItem is a line in the cart. Identity: plain lines match on ID with
// IsCombo false on both sides; combo lines match on ComboID. A combo line
// carries a derived ID so plain and combo id spaces stay disjoint.
type CartItem struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Image         string  `json:"image,omitempty"`
	Description   string  `json:"description,omitempty"`
	HeatLevel     int     `json:"heat_level"`
	Rating        float64 `json:"rating"`
	Badge         string  `json:"badge,omitempty"`
	Origin        string  `json:"origin,omitempty"`
	Quantity      int     `json:"quantity"`
	IsCombo       bool    `json:"is_combo,omitempty"`
	ComboID       string  `json:"combo_id,omitempty"`
	OriginalPrice float64 `json:"original_price,omitempty"`
	Discount      int     `json:"discount,omitempty"`
}

// Cart is an ordered sequence of line items, persisted as a whole snapshot.
type Cart struct {
	Items []CartItem `json:"items"`
}

// ItemCount sums line quantities.
func (c *Cart) ItemCount() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// CustomerInfo is the checkout form data. Persisted independently of the
// cart and never cleared automatically.
type CustomerInfo struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Canton     string `json:"canton"`
	Notes      string `json:"notes,omitempty"`
}

// CheckoutStatus is the finite state of a checkout attempt.
type CheckoutStatus string

const (
	CheckoutStatusPending    CheckoutStatus = "pending"
	CheckoutStatusProcessing CheckoutStatus = "processing"
	CheckoutStatusCompleted  CheckoutStatus = "completed"
	CheckoutStatusError      CheckoutStatus = "error"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted
}

func (s CheckoutStatus) String() string {
	return string(s)
}

// LastPaymentMarker is the short-lived signal written after a confirmed
// payment. It is a notification aid, not an authoritative order record.
type LastPaymentMarker struct {
	Status    string    `json:"status"`
	PayerID   string    `json:"payer_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Order is the read-view shape returned by the upstream order API.
type Order struct {
	ID           int64      `json:"id"`
	OrderNumber  string     `json:"order_number"`
	CustomerName string     `json:"customer_name"`
	Email        string     `json:"email"`
	Status       string     `json:"status"`
	TotalAmount  float64    `json:"total_amount"`
	CreatedAt    time.Time  `json:"created_at"`
	Items        []CartItem `json:"items,omitempty"`
}

// UserProfile is the upstream user record, read and written with a
// session token carried in the request body.
type UserProfile struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Canton     string `json:"canton,omitempty"`
}

// ChatMessage is one entry in the persisted chat history.
type ChatMessage struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PendingNotification is a confirmation-email payload queued for retry
// after a failed send.
type PendingNotification struct {
	PayerID      string       `json:"payer_id"`
	CustomerInfo CustomerInfo `json:"customer_info"`
	Cart         Cart         `json:"cart"`
	Total        float64      `json:"total"`
	Timestamp    time.Time    `json:"timestamp"`
}
