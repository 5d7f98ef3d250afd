package model

import (
	"strings"
)

// Address holds the guest/customer contact and shipping details collected
// at checkout. Region must be a code from Regions when the country is the
// primary market (PH); free text is only a fallback for other countries.
type Address struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Address1 string `json:"address1" validate:"required"`
	Address2 string `json:"address2"`
	City     string `json:"city" validate:"required"`
	Region   string `json:"region" validate:"required"`
	Postcode string `json:"postcode" validate:"required"`
	Country  string `json:"country" validate:"required"`
}

// Region is one entry of the enumerated region list for the primary market.
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Regions enumerates the PH province codes WooCommerce accepts in the
// state field. The storefront renders these as a dropdown; codes arriving
// from clients are validated against this list.
var Regions = []Region{
	{"NCR", "Metro Manila"},
	{"CAR", "Cordillera Region"},
	{"ABR", "Abra"},
	{"AGN", "Agusan del Norte"},
	{"AGS", "Agusan del Sur"},
	{"AKL", "Aklan"},
	{"ALB", "Albay"},
	{"ANT", "Antique"},
	{"APA", "Apayao"},
	{"AUR", "Aurora"},
	{"BAS", "Basilan"},
	{"BAN", "Bataan"},
	{"BTN", "Batanes"},
	{"BTG", "Batangas"},
	{"BEN", "Benguet"},
	{"BIL", "Biliran"},
	{"BOH", "Bohol"},
	{"BUK", "Bukidnon"},
	{"BUL", "Bulacan"},
	{"CAG", "Cagayan"},
	{"CAN", "Camarines Norte"},
	{"CAS", "Camarines Sur"},
	{"CAM", "Camiguin"},
	{"CAP", "Capiz"},
	{"CAT", "Catanduanes"},
	{"CAV", "Cavite"},
	{"CEB", "Cebu"},
	{"DIN", "Dinagat Islands"},
	{"EAS", "Eastern Samar"},
	{"GUI", "Guimaras"},
	{"IFU", "Ifugao"},
	{"ILN", "Ilocos Norte"},
	{"ILS", "Ilocos Sur"},
	{"ILI", "Iloilo"},
	{"ISA", "Isabela"},
	{"KAL", "Kalinga"},
	{"LUN", "La Union"},
	{"LAG", "Laguna"},
	{"LAN", "Lanao del Norte"},
	{"LAS", "Lanao del Sur"},
	{"LEY", "Leyte"},
	{"MAD", "Marinduque"},
	{"MAS", "Masbate"},
	{"MSC", "Misamis Occidental"},
	{"MSN", "Misamis Oriental"},
	{"MOU", "Mountain Province"},
	{"NEC", "Negros Occidental"},
	{"NER", "Negros Oriental"},
	{"NSA", "Northern Samar"},
	{"NUE", "Nueva Ecija"},
	{"NUV", "Nueva Vizcaya"},
	{"MDC", "Occidental Mindoro"},
	{"MDR", "Oriental Mindoro"},
	{"PLW", "Palawan"},
	{"PAM", "Pampanga"},
	{"PAN", "Pangasinan"},
	{"QUE", "Quezon"},
	{"QUI", "Quirino"},
	{"RIZ", "Rizal"},
	{"ROM", "Romblon"},
	{"WSA", "Samar"},
	{"SIG", "Siquijor"},
	{"SOR", "Sorsogon"},
	{"SCO", "South Cotabato"},
	{"SLE", "Southern Leyte"},
	{"SUN", "Surigao del Norte"},
	{"SUR", "Surigao del Sur"},
	{"TAR", "Tarlac"},
	{"TAW", "Tawi-Tawi"},
	{"ZMB", "Zambales"},
	{"ZAN", "Zamboanga del Norte"},
	{"ZAS", "Zamboanga del Sur"},
	{"ZSI", "Zamboanga Sibugay"},
}

var regionCodes = func() map[string]bool {
	m := make(map[string]bool, len(Regions))
	for _, r := range Regions {
		m[r.Code] = true
	}
	return m
}()

// IsPrimaryMarket reports whether country is the primary supported market.
func IsPrimaryMarket(country string) bool {
	return strings.EqualFold(strings.TrimSpace(country), "PH")
}

// ValidRegion reports whether code is one of the enumerated region codes.
func ValidRegion(code string) bool {
	return regionCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// NormalizeRegion coerces free-text region input to a region code.
// Safety net only; the normal path is a code chosen from Regions.
func NormalizeRegion(input string) string {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return ""
	}
	upper := strings.ToUpper(raw)
	if strings.Contains(upper, "NCR") {
		return "NCR"
	}
	if strings.Contains(upper, "METRO MANILA") || strings.Contains(upper, "MANILA") {
		return "NCR"
	}
	if strings.Contains(upper, "CEBU") {
		return "CEB"
	}
	var letters []rune
	for _, r := range upper {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
	}
	if len(letters) <= 4 {
		return string(letters)
	}
	return string(letters[:4])
}

// SplitName splits a full name into Woo's first_name/last_name pair.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
