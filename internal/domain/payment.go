/**
 * @description
 * Request/response structs for the payment gateway's order API. Amounts are
 * carried in minor currency units (paise), matching the gateway's wire
 * format.
 */
package domain

// PaymentOrderRequest is the payload sent to the gateway when opening a
// renewal payment order.
type PaymentOrderRequest struct {
	Amount   int64             `json:"amount"` // minor units
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// PaymentOrder is the gateway's representation of a created order.
type PaymentOrder struct {
	OrderID  string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}
