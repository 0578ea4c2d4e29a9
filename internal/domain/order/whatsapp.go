package order

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildWhatsAppLink constructs a wa.me deep-link carrying a prefilled order
// summary. The link is fire-and-forget: no response is handled, settlement
// happens in the chat.
func BuildWhatsAppLink(number string, o *Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s\n\n", o.Reference)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "%dx %s - %s\n", item.Quantity, item.FoodName, item.TotalPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", o.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Delivery (%s): %s\n", o.DeliveryLocation, o.DeliveryFee.StringFixed(2))
	fmt.Fprintf(&b, "Total: %s\n", o.Total.StringFixed(2))
	if o.FullAddress != "" {
		fmt.Fprintf(&b, "Address: %s\n", o.FullAddress)
	}
	fmt.Fprintf(&b, "Phone: %s", o.ContactPhone)

	return "https://wa.me/" + number + "?text=" + url.QueryEscape(b.String())
}
