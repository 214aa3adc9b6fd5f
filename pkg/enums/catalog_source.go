package enums

import "fmt"

// CatalogSource tags which side of the catalog a sellable entry came from:
// a house flavor or a product synced from the commerce platform.
type CatalogSource string

const (
	CatalogSourceFlavor  CatalogSource = "flavor"
	CatalogSourceProduct CatalogSource = "product"
)

var validCatalogSources = []CatalogSource{
	CatalogSourceFlavor,
	CatalogSourceProduct,
}

// String implements fmt.Stringer.
func (c CatalogSource) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CatalogSource.
func (c CatalogSource) IsValid() bool {
	for _, candidate := range validCatalogSources {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCatalogSource converts raw input into a CatalogSource.
func ParseCatalogSource(value string) (CatalogSource, error) {
	for _, candidate := range validCatalogSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid catalog source %q", value)
}
