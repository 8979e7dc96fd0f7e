package service

import (
	"regexp"

	"github.com/CryptodarksT/UtilitiesBilling-sub000/internal/domain"
)

// billNumberRe is the universal bill number shape: a two-letter type
// prefix followed by 11 digits, e.g. PD29007350490.
var billNumberRe = regexp.MustCompile(`^[A-Z]{2}\d{11}$`)

// ValidateBillNumber rejects malformed bill numbers before any network
// call is made.
func ValidateBillNumber(billNumber string) error {
	if !billNumberRe.MatchString(billNumber) {
		return &domain.ErrValidation{Field: "billNumber", Message: "must be two uppercase letters followed by 11 digits"}
	}
	return nil
}

// BillTypeFromNumber maps the two-letter prefix to a bill type.
func BillTypeFromNumber(billNumber string) string {
	if len(billNumber) < 2 {
		return domain.BillTypeUnknown
	}
	switch billNumber[:2] {
	case "PD":
		return domain.BillTypeElectricity
	case "NC":
		return domain.BillTypeWater
	case "DT":
		return domain.BillTypeTelecom
	case "TV":
		return domain.BillTypeTelevision
	case "TC":
		return domain.BillTypePhonecard
	default:
		return domain.BillTypeUnknown
	}
}

// ProviderFromNumber derives the serving provider from the bill number.
// For electricity and water the region code in positions 2-3 picks the
// company ("29" is the HCMC region block).
func ProviderFromNumber(billNumber string) string {
	if len(billNumber) < 4 {
		return ""
	}
	region := billNumber[2:4]
	switch billNumber[:2] {
	case "PD":
		if region == "29" {
			return "evn-hcm"
		}
		return "evn-hanoi"
	case "NC":
		if region == "29" {
			return "sawaco"
		}
		return "hawaco"
	case "DT":
		return "viettel"
	case "TV":
		return "vtvcab"
	case "TC":
		return "viettel-card"
	default:
		return ""
	}
}
