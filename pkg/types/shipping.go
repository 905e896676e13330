package types

// ShippingDetails carries the buyer-provided delivery block. The payments
// core stores and forwards it without interpreting the fields.
type ShippingDetails struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Empty reports whether no shipping information was provided.
func (s ShippingDetails) Empty() bool {
	return s == ShippingDetails{}
}
