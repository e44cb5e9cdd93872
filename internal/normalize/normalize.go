// Package normalize maps heterogeneous vendor vocabulary onto the
// controlled values the canonical store expects. Sources feed us French
// and English labels in arbitrary casing and with accents; unmapped values
// pass through unchanged so nothing is silently lost.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and strips diacritics so "Électrique" and "electrique"
// hit the same vocabulary key.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

var bodyTypes = map[string]string{
	"berline":       "Sedan",
	"sedan":         "Sedan",
	"vus":           "SUV",
	"suv":           "SUV",
	"utilitaire":    "SUV",
	"coupe":         "Coupe",
	"cabriolet":     "Convertible",
	"convertible":   "Convertible",
	"decapotable":   "Convertible",
	"familiale":     "Wagon",
	"wagon":         "Wagon",
	"fourgonnette":  "Van",
	"minifourgonnette": "Minivan",
	"minivan":       "Minivan",
	"van":           "Van",
	"camionnette":   "Pickup",
	"camion":        "Pickup",
	"pickup":        "Pickup",
	"pick-up":       "Pickup",
	"hatchback":     "Hatchback",
	"hayon":         "Hatchback",
	"a hayon":       "Hatchback",
}

var fuelTypes = map[string]string{
	"essence":          "Gasoline",
	"gas":              "Gasoline",
	"gasoline":         "Gasoline",
	"diesel":           "Diesel",
	"electrique":       "Electric",
	"electric":         "Electric",
	"hybride":          "Hybrid",
	"hybrid":           "Hybrid",
	"hybride rechargeable": "Plug-in Hybrid",
	"plug-in hybrid":   "Plug-in Hybrid",
}

var transmissions = map[string]string{
	"automatique":     "Automatic",
	"automatic":       "Automatic",
	"auto":            "Automatic",
	"manuelle":        "Manual",
	"manual":          "Manual",
	"cvt":             "CVT",
	"semi-automatique": "Semi-Automatic",
}

var drivetrains = map[string]string{
	"traction integrale": "AWD",
	"integrale":          "AWD",
	"awd":                "AWD",
	"4x4":                "4WD",
	"4wd":                "4WD",
	"quatre roues motrices": "4WD",
	"propulsion":         "RWD",
	"rwd":                "RWD",
	"traction":           "FWD",
	"traction avant":     "FWD",
	"fwd":                "FWD",
}

var colors = map[string]string{
	"noir":    "Black",
	"black":   "Black",
	"blanc":   "White",
	"white":   "White",
	"gris":    "Grey",
	"grey":    "Grey",
	"gray":    "Grey",
	"argent":  "Silver",
	"silver":  "Silver",
	"rouge":   "Red",
	"red":     "Red",
	"bleu":    "Blue",
	"blue":    "Blue",
	"vert":    "Green",
	"green":   "Green",
	"brun":    "Brown",
	"brown":   "Brown",
	"beige":   "Beige",
	"jaune":   "Yellow",
	"yellow":  "Yellow",
	"orange":  "Orange",
}

func lookup(table map[string]string, value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if mapped, ok := table[Fold(v)]; ok {
		return mapped
	}
	return v
}

// BodyType normalizes a body style label.
func BodyType(value string) string { return lookup(bodyTypes, value) }

// FuelType normalizes a fuel label.
func FuelType(value string) string { return lookup(fuelTypes, value) }

// Transmission normalizes a transmission label.
func Transmission(value string) string { return lookup(transmissions, value) }

// Drivetrain normalizes a drivetrain label.
func Drivetrain(value string) string { return lookup(drivetrains, value) }

// Color normalizes an exterior color label.
func Color(value string) string { return lookup(colors, value) }

var digitsRe = regexp.MustCompile(`[\d]+`)

// Odometer parses a free-text odometer reading and returns kilometres.
// "52,000 mi" and "52 000 milles" convert; anything already metric or
// without a unit is taken as kilometres.
func Odometer(value string) int {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0
	}
	digits := digitsRe.FindAllString(v, -1)
	if len(digits) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.Join(digits, ""))
	if err != nil {
		return 0
	}
	folded := Fold(v)
	if strings.Contains(folded, "mi") && !strings.Contains(folded, "km") {
		return int(float64(n)*1.60934 + 0.5)
	}
	return n
}

var centsRe = regexp.MustCompile(`[.,]\d{2}\s*[$€]?\s*$`)

// Price parses a price string, dropping currency symbols, thousand
// separators and a trailing cents part ("24 995,00 $" => 24995).
func Price(value string) int {
	v := centsRe.ReplaceAllString(strings.TrimSpace(value), "")
	digits := digitsRe.FindAllString(v, -1)
	if len(digits) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.Join(digits, ""))
	if err != nil {
		return 0
	}
	return n
}
