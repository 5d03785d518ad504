package payroll

import (
	"strconv"
	"strings"

	"github.com/warp/payroll-engine/core"
)

var (
	ones = [...]string{
		"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen",
	}
	tens = [...]string{
		"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
	}
)

const wordsSuffix = "Rupees Only"

// AmountInWords renders m in the Indian grouping: hundreds, then thousand,
// lakh and crore in groups of two digits. Paise are rounded away first.
//
//	1234567 -> "Twelve Lakh Thirty Four Thousand Five Hundred Sixty Seven Rupees Only"
func AmountInWords(m core.Money) string {
	rounded := m.RoundUnits()
	if rounded.IsZero() {
		return "Zero " + wordsSuffix
	}
	prefix := ""
	if rounded.IsNegative() {
		prefix = "Minus "
	}
	// Digits come from the decimal itself, so amounts beyond int64 still render.
	digits := rounded.Decimal.Abs().String()
	return prefix + strings.Join(groupWords(digits), " ") + " " + wordsSuffix
}

// groupWords splits the decimal digits of a positive whole number into crore,
// lakh, thousand, hundred and the rest. Crores above 99 recurse, so
// 1,00,00,00,000 is "One Hundred Crore".
func groupWords(digits string) []string {
	var words []string
	if len(digits) > 7 {
		words = append(words, groupWords(digits[:len(digits)-7])...)
		words = append(words, "Crore")
		digits = digits[len(digits)-7:]
	}
	n, _ := strconv.ParseInt(digits, 10, 64)
	if n >= 100000 {
		words = append(words, twoDigits(n/100000), "Lakh")
		n %= 100000
	}
	if n >= 1000 {
		words = append(words, twoDigits(n/1000), "Thousand")
		n %= 1000
	}
	if n >= 100 {
		words = append(words, ones[n/100], "Hundred")
		n %= 100
	}
	if n > 0 {
		words = append(words, twoDigits(n))
	}
	return words
}

func twoDigits(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}
