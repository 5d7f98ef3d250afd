package woocommerce

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// WooCommerce error messages arrive HTML-encoded and phrased for the
// classic PHP storefront. This file rewrites them into short messages
// safe to show a shopper.

var (
	namedEntities = strings.NewReplacer(
		"&quot;", `"`,
		"&#034;", `"`,
		"&#039;", "'",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&nbsp;", " ",
	)
	numericEntity = regexp.MustCompile(`&#(\d+);`)

	// "You cannot add that amount of "Widget" to the cart because there is
	// not enough stock (5 remaining)." and the quantity-limit variant both
	// carry the product name in quotes and the limit as the last number.
	maxQuantityRe = regexp.MustCompile(`maximum quantity of "(.+?)".*?is (\d+)`)
	quantityRe    = regexp.MustCompile(`"(.+?)".*?\((\d+) remaining\)`)
)

// decodeHTMLEntities resolves the named and numeric entities WooCommerce
// uses in error strings.
func decodeHTMLEntities(s string) string {
	s = namedEntities.Replace(s)
	return numericEntity.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(m[2 : len(m)-1])
		if err != nil {
			return m
		}
		return string(rune(n))
	})
}

// FriendlyMessage rewrites a WooCommerce error into a short user-facing
// message. Unknown codes fall through with entities decoded and the
// "Error: " prefix stripped.
func FriendlyMessage(code, message string) string {
	message = decodeHTMLEntities(message)

	switch code {
	case "woocommerce_rest_cart_invalid_quantity", "woocommerce_rest_invalid_quantity":
		if m := maxQuantityRe.FindStringSubmatch(message); m != nil {
			return fmt.Sprintf("Max quantity for %q is %s.", m[1], m[2])
		}
		if m := quantityRe.FindStringSubmatch(message); m != nil {
			return fmt.Sprintf("Only %s of %q available.", m[2], m[1])
		}
	case "woocommerce_rest_cart_coupon_error", "woocommerce_rest_cart_coupon_no_match":
		if message == "" {
			return "That coupon could not be applied."
		}
	case "rest_no_route":
		return "The store is temporarily unavailable. Please try again."
	}

	message = strings.TrimPrefix(message, "Error: ")
	if message == "" {
		return "Something went wrong. Please try again."
	}
	return message
}
