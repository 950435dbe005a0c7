package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// currencySymbols covers the symbols seen in the supported export formats.
var currencySymbols = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", "₹", "")

// Currency parses a monetary string after stripping currency symbols,
// thousands separators, and whitespace. Already-numeric input parses
// unchanged, so normalization is idempotent.
func Currency(raw string) (float64, error) {
	s := currencySymbols.Replace(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0, fmt.Errorf("empty currency value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable currency %q", raw)
	}
	return v, nil
}

// Number parses a numeric string after stripping thousands separators and
// whitespace.
func Number(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable number %q", raw)
	}
	return v, nil
}

// Percentage parses a percentage into a 0-1 fraction. Values above 1 are
// taken as whole percentages and divided by 100; values at or below 1 are
// assumed already fractional, so "0.45" survives a second pass unchanged.
func Percentage(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0, fmt.Errorf("empty percentage value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable percentage %q", raw)
	}
	if v > 1 {
		v /= 100
	}
	return v, nil
}

var (
	isoDateLayouts = []string{"2006-01-02"}
	usDateLayouts  = []string{"01/02/2006", "1/2/2006", "01-02-2006", "1-2-2006"}
	// Last-resort layouts for exports that write verbose or timestamped dates.
	genericDateLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006/01/02",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
	}
)

// Date canonicalizes a date string to YYYY-MM-DD. ISO input is tried first,
// then US month-first forms, then generic layouts. Ambiguous day/month
// inputs resolve as month-first.
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty date value")
	}
	for _, group := range [][]string{isoDateLayouts, usDateLayouts, genericDateLayouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02"), nil
			}
		}
	}
	return "", fmt.Errorf("unparseable date %q", raw)
}

var truthyTokens = map[string]bool{"true": true, "yes": true, "1": true, "y": true}

// Boolean reports whether a raw value is an affirmative token. Anything
// outside {true, yes, 1, y} is false.
func Boolean(raw string) bool {
	return truthyTokens[strings.ToLower(strings.TrimSpace(raw))]
}

// platformSynonyms maps canonical platform names to the spellings seen in
// exports. Iteration uses platformOrder so substring resolution is
// deterministic.
var (
	platformOrder    = []string{"linkedin", "facebook", "google"}
	platformSynonyms = map[string][]string{
		"linkedin": {"linkedin", "li", "linked in", "linkedin ads"},
		"facebook": {"facebook", "fb", "meta", "meta ads", "facebook ads", "instagram"},
		"google":   {"google", "google ads", "adwords", "gads", "googleads"},
	}
)

// Platform maps a raw platform spelling onto its canonical name: exact
// synonym match first, then substring match in either direction. Unmatched
// values pass through lower-cased.
func Platform(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return s
	}
	for _, canonical := range platformOrder {
		for _, syn := range platformSynonyms[canonical] {
			if s == syn {
				return canonical
			}
		}
	}
	for _, canonical := range platformOrder {
		for _, syn := range platformSynonyms[canonical] {
			if strings.Contains(s, syn) || strings.Contains(syn, s) {
				return canonical
			}
		}
	}
	return s
}

var campaignNameJunk = regexp.MustCompile(`[^\w\s-]`)

// CampaignName trims, collapses internal whitespace, and strips characters
// outside word characters, whitespace, and hyphens.
func CampaignName(raw string) string {
	junkless := campaignNameJunk.ReplaceAllString(raw, "")
	return strings.Join(strings.Fields(junkless), " ")
}
