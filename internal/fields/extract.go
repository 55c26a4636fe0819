package fields

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// moneyShape matches pt-BR amounts: "1.234,56" or "45,00". It is not
// word-bounded because OCR often glues amounts to labels ("Total1.234,56").
const moneyShape = `(?:\d{1,3}(?:\.\d{3})+|\d+),\d{2}`

var (
	reCustomer    = regexp.MustCompile(`(?i)cliente(?::|[^\S\n])[^\S\n]*(.+)`)
	reDueDate     = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4}|\d{2}-\d{2}-\d{4})\b`)
	reLabelAmount = regexp.MustCompile(`(?i)valor[\s[:punct:]]+(?:do[\s[:punct:]]+)?documento\D*(` + moneyShape + `)`)
	reAnyAmount   = regexp.MustCompile(moneyShape)
	reTaxID       = regexp.MustCompile(`\b(\d{3}\.\d{3}\.\d{3}-\d{2}|\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2})\b`)
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// Extract pulls the billing fields out of raw document text.
// Each field is resolved independently; a missing field never affects the others.
func Extract(text string) Record {
	return Record{
		Customer: customer(text),
		DueDate:  firstMatch(reDueDate, text),
		Amount:   amount(text),
		TaxID:    firstMatch(reTaxID, text),
	}
}

func customer(text string) string {
	m := reCustomer.FindStringSubmatch(text)
	if m == nil {
		return NotFound
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return NotFound
	}
	return name
}

func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindString(text); m != "" {
		return m
	}
	return NotFound
}

// amount prefers the labelled "valor (do) documento" figure and falls back to
// the largest amount anywhere in the text.
func amount(text string) string {
	if m := reLabelAmount.FindStringSubmatch(text); m != nil {
		if v, ok := ParseAmount(m[1]); ok {
			return FormatAmount(v)
		}
	}

	var (
		best  float64
		found bool
	)
	for _, s := range reAnyAmount.FindAllString(text, -1) {
		v, ok := ParseAmount(s)
		if !ok {
			continue
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	if !found {
		return NotFound
	}
	return FormatAmount(best)
}

// ParseAmount converts "1.234,56" to 1234.56
func ParseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatAmount renders v as Brazilian currency, e.g. "R$ 1.234,56"
func FormatAmount(v float64) string {
	return "R$ " + brl.Sprintf("%.2f", v)
}
