package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

const (
	chatHost = "https://wa.me/"
	mapsHost = "https://www.google.com/maps?q="
)

// FormatOrderMessage renders the order text sent to the store. Output depends only
// on its arguments.
func FormatOrderMessage(store model.StoreIdentity, customer model.CustomerInfo, items []model.CartItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*NEW ORDER - %s*\n\n", store.Name)
	fmt.Fprintf(&b, "👤 Name: %s\n", customer.Name)
	fmt.Fprintf(&b, "📞 Phone: %s\n", customer.Phone)
	fmt.Fprintf(&b, "📍 Address: %s\n", customer.Address)
	if customer.Location != nil {
		fmt.Fprintf(&b, "🗺️ Map: %s\n", MapLink(*customer.Location))
	}

	b.WriteString("\n📦 *Items:*\n")
	total := decimal.Zero
	for _, item := range items {
		subtotal := item.Subtotal()
		total = total.Add(subtotal)
		fmt.Fprintf(&b, "- %s (%s) x %d = %s\n", item.Name, item.Unit, item.Quantity, money(subtotal))
	}
	fmt.Fprintf(&b, "\n💰 *Total: %s*", money(total))

	return b.String()
}

// OrderLink is the chat URL that opens a conversation with the store prefilled
// with message.
func OrderLink(store model.StoreIdentity, message string) string {
	return ContactLink(store) + "?text=" + escapeComponent(message)
}

func ContactLink(store model.StoreIdentity) string {
	return chatHost + url.PathEscape(store.Destination)
}

func MapLink(c model.Coordinates) string {
	q := strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
	return mapsHost + url.QueryEscape(q)
}

func money(d decimal.Decimal) string {
	return "Rs. " + d.String()
}

// escapeComponent percent-encodes s for use as a single query value, with spaces
// as %20 rather than '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
