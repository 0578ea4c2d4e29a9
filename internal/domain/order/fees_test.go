package order

import (
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationFees(t *testing.T) {
	tests := []struct {
		location Location
		fee      int64
	}{
		{LocationRestaurant, 0},
		{LocationEmaudo, 500},
		{LocationEguare, 700},
		{LocationIhumudumu, 800},
		{LocationTown, 1000},
		{LocationVillage, 1500},
	}

	for _, tt := range tests {
		t.Run(string(tt.location), func(t *testing.T) {
			assert.True(t, tt.location.Valid())
			assert.True(t, tt.location.Fee().Equal(decimal.NewFromInt(tt.fee)),
				"fee = %s", tt.location.Fee())
		})
	}
}

func TestLocationUnknown(t *testing.T) {
	l := Location("uromi")
	assert.False(t, l.Valid())
	assert.True(t, l.Fee().IsZero())
}

func TestRequiresAddress(t *testing.T) {
	assert.False(t, LocationRestaurant.RequiresAddress())
	assert.True(t, LocationEmaudo.RequiresAddress())
	assert.True(t, LocationVillage.RequiresAddress())
}

func TestValidPhone(t *testing.T) {
	valid := []string{
		"+2348031234567",
		"08031234567",
		"0803 123 4567",
		"(0803) 123-4567",
	}
	for _, s := range valid {
		assert.True(t, ValidPhone(s), "expected valid: %q", s)
	}

	invalid := []string{
		"",
		"12345",
		"not-a-phone",
		"+234803123456789012",
		"0803123456a",
	}
	for _, s := range invalid {
		assert.False(t, ValidPhone(s), "expected invalid: %q", s)
	}
}

func TestBuildWhatsAppLink(t *testing.T) {
	o := &Order{
		Reference: "ORD-AB12CD34EF",
		Items: []Item{
			{FoodName: "Jollof Rice", Quantity: 2, TotalPrice: decimal.NewFromInt(5000)},
			{FoodName: "Moi Moi", Quantity: 1, TotalPrice: decimal.NewFromInt(800)},
		},
		Subtotal:         decimal.NewFromInt(5800),
		DeliveryFee:      decimal.NewFromInt(1000),
		Total:            decimal.NewFromInt(6800),
		DeliveryLocation: LocationTown,
		FullAddress:      "12 College Road",
		ContactPhone:     "+2348031234567",
	}

	link := BuildWhatsAppLink("2349041234567", o)
	require.True(t, strings.HasPrefix(link, "https://wa.me/2349041234567?text="))

	raw := strings.TrimPrefix(link, "https://wa.me/2349041234567?text=")
	text, err := url.QueryUnescape(raw)
	require.NoError(t, err)

	assert.Contains(t, text, "ORD-AB12CD34EF")
	assert.Contains(t, text, "2x Jollof Rice - 5000.00")
	assert.Contains(t, text, "Delivery (town): 1000.00")
	assert.Contains(t, text, "Total: 6800.00")
	assert.Contains(t, text, "Address: 12 College Road")
}
