package enums

import "fmt"

// PartyType identifies which kind of account owns a wallet or is party to an order.
type PartyType string

const (
	PartyTypeBuyer     PartyType = "buyer"
	PartyTypeFarm      PartyType = "farm"
	PartyTypeStore     PartyType = "store"
	PartyTypeCompany   PartyType = "company"
	PartyTypeLogistics PartyType = "logistics"
)

var validPartyTypes = []PartyType{
	PartyTypeBuyer,
	PartyTypeFarm,
	PartyTypeStore,
	PartyTypeCompany,
	PartyTypeLogistics,
}

// String implements fmt.Stringer.
func (p PartyType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PartyType.
func (p PartyType) IsValid() bool {
	for _, candidate := range validPartyTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsSeller reports whether the party type can sell goods on the marketplace.
func (p PartyType) IsSeller() bool {
	switch p {
	case PartyTypeFarm, PartyTypeStore, PartyTypeCompany:
		return true
	default:
		return false
	}
}

// ParsePartyType converts raw input into a PartyType.
func ParsePartyType(value string) (PartyType, error) {
	for _, candidate := range validPartyTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid party type %q", value)
}
