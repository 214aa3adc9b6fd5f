package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Address mirrors the address_t composite Postgres type used for delivery
// address snapshots.
type Address struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Address1  string  `json:"address1"`
	Address2  *string `json:"address2,omitempty"`
	City      string  `json:"city"`
	Province  string  `json:"province"`
	Country   string  `json:"country"`
	Zip       string  `json:"zip"`
	Phone     string  `json:"phone"`
}

// Value marshals Address into a Postgres composite literal.
func (a Address) Value() (driver.Value, error) {
	if strings.TrimSpace(a.FirstName) == "" {
		return nil, fmt.Errorf("address: missing first_name")
	}
	if strings.TrimSpace(a.Address1) == "" {
		return nil, fmt.Errorf("address: missing address1")
	}
	if strings.TrimSpace(a.City) == "" {
		return nil, fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.Province) == "" {
		return nil, fmt.Errorf("address: missing province")
	}

	country := strings.TrimSpace(a.Country)
	if country == "" {
		country = "KW"
	}

	parts := []string{
		quoteCompositeString(a.FirstName),
		quoteCompositeString(a.LastName),
		quoteCompositeString(a.Address1),
		quoteCompositeNullable(a.Address2),
		quoteCompositeString(a.City),
		quoteCompositeString(a.Province),
		quoteCompositeString(country),
		quoteCompositeString(a.Zip),
		quoteCompositeString(a.Phone),
	}

	return "(" + strings.Join(parts, ",") + ")", nil
}

// Scan decodes the Postgres composite literal.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("address: unsupported scan type %T", value)
	}

	fields, err := parseComposite(raw, 9)
	if err != nil {
		return err
	}

	a.FirstName = fields[0]
	a.LastName = fields[1]
	a.Address1 = fields[2]
	a.Address2 = newCompositeNullable(fields[3])
	a.City = fields[4]
	a.Province = fields[5]

	country := strings.TrimSpace(fields[6])
	if country == "" || isCompositeNull(fields[6]) {
		country = "KW"
	}
	a.Country = country

	a.Zip = fields[7]
	a.Phone = fields[8]

	return nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
