package utils

import "time"

// orderNumberSuffixLength is the number of random characters after the date
const orderNumberSuffixLength = 4

// GenerateOrderNumber returns a human-readable order number such as
// ORD-20250114-K7QX for an order placed at t (UTC date).
func GenerateOrderNumber(t time.Time) string {
	return "ORD-" + t.UTC().Format("20060102") + "-" + generateCode(orderNumberSuffixLength)
}
