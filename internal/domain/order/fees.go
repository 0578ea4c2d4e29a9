package order

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// Location enumerates the delivery zones with fixed fees. LocationRestaurant
// is dine-in: no fee and no address required.
type Location string

const (
	LocationRestaurant Location = "restaurant"
	LocationEmaudo     Location = "emaudo"
	LocationEguare     Location = "eguare"
	LocationIhumudumu  Location = "ihumudumu"
	LocationTown       Location = "town"
	LocationVillage    Location = "village"
)

// deliveryFees is the fixed fee table in naira per delivery zone.
var deliveryFees = map[Location]decimal.Decimal{
	LocationRestaurant: decimal.Zero,
	LocationEmaudo:     decimal.NewFromInt(500),
	LocationEguare:     decimal.NewFromInt(700),
	LocationIhumudumu:  decimal.NewFromInt(800),
	LocationTown:       decimal.NewFromInt(1000),
	LocationVillage:    decimal.NewFromInt(1500),
}

// Valid reports whether l is a known delivery zone.
func (l Location) Valid() bool {
	_, ok := deliveryFees[l]
	return ok
}

// Fee returns the delivery fee for the zone. Unknown zones return zero;
// callers validate the location before pricing.
func (l Location) Fee() decimal.Decimal {
	return deliveryFees[l]
}

// RequiresAddress reports whether orders to this zone need a full address.
// Only dine-in may omit it.
func (l Location) RequiresAddress() bool {
	return l != LocationRestaurant
}

var phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{7,15}$`)

// ValidPhone reports whether s looks like a dialable phone number.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}
