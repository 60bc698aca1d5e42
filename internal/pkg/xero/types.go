package xero

import "encoding/json"

// Webhook event categories and types we act on. Everything else is
// acknowledged and ignored.
const (
	EventCategoryInvoice = "INVOICE"
	EventTypeUpdate      = "UPDATE"
	EventTypeCreate      = "CREATE"
)

// Invoice statuses as reported by the accounting API.
const (
	InvoiceStatusPaid = "PAID"
)

// Phone types on a contact, in resolution preference order.
const (
	PhoneTypeMobile  = "MOBILE"
	PhoneTypeDefault = "DEFAULT"
)

// Event is one entry of a webhook payload's events array.
type Event struct {
	ResourceURL   string `json:"resourceUrl"`
	ResourceID    string `json:"resourceId"`
	TenantID      string `json:"tenantId"`
	TenantType    string `json:"tenantType"`
	EventCategory string `json:"eventCategory"`
	EventType     string `json:"eventType"`
	EventDateUTC  string `json:"eventDateUtc"`
}

// EventPayload is the webhook envelope. An empty Events slice is Xero's
// "intent to receive" connectivity check.
type EventPayload struct {
	Events             []Event `json:"events"`
	FirstEventSequence int64   `json:"firstEventSequence"`
	LastEventSequence  int64   `json:"lastEventSequence"`
	Entropy            string  `json:"entropy"`
}

// IsRelevant reports whether the event should trigger invoice processing.
func (e Event) IsRelevant() bool {
	if e.EventCategory != EventCategoryInvoice {
		return false
	}
	return e.EventType == EventTypeUpdate || e.EventType == EventTypeCreate
}

// ParseEventPayload decodes a raw webhook body.
func ParseEventPayload(raw []byte) (*EventPayload, error) {
	var p EventPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Phone is one structured phone entry on a contact.
type Phone struct {
	PhoneType        string `json:"PhoneType"`
	PhoneNumber      string `json:"PhoneNumber"`
	PhoneAreaCode    string `json:"PhoneAreaCode"`
	PhoneCountryCode string `json:"PhoneCountryCode"`
}

// Contact is the invoice's customer as returned by the accounting API. All
// of a contact's numbers, the billing one included, live in the Phones
// collection; the API's address resource carries no phone attribute.
type Contact struct {
	ContactID    string  `json:"ContactID"`
	Name         string  `json:"Name"`
	FirstName    string  `json:"FirstName"`
	LastName     string  `json:"LastName"`
	EmailAddress string  `json:"EmailAddress"`
	Phones       []Phone `json:"Phones"`
}

// Invoice is the subset of the accounting API's invoice resource we need.
type Invoice struct {
	InvoiceID     string  `json:"InvoiceID"`
	InvoiceNumber string  `json:"InvoiceNumber"`
	Status        string  `json:"Status"`
	Total         float64 `json:"Total"`
	AmountDue     float64 `json:"AmountDue"`
	AmountPaid    float64 `json:"AmountPaid"`
	Contact       Contact `json:"Contact"`
}

// IsFullyPaid reports whether the invoice should trigger a review request:
// explicitly marked paid and nothing left owing.
func (inv Invoice) IsFullyPaid() bool {
	return inv.Status == InvoiceStatusPaid && inv.AmountDue == 0
}

// Connection is one entry of the connections endpoint response.
type Connection struct {
	TenantID   string `json:"tenantId"`
	TenantName string `json:"tenantName"`
	TenantType string `json:"tenantType"`
}

// TokenResponse is the token endpoint's success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}
