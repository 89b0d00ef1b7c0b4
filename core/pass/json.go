package pass

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type passJSON struct {
	FormatVersion       int        `json:"formatVersion"`
	PassTypeIdentifier  string     `json:"passTypeIdentifier"`
	SerialNumber        string     `json:"serialNumber"`
	TeamIdentifier      string     `json:"teamIdentifier"`
	OrganizationName    string     `json:"organizationName"`
	Description         string     `json:"description"`
	LogoText            string     `json:"logoText,omitempty"`
	WebServiceURL       string     `json:"webServiceURL,omitempty"`
	AuthenticationToken string     `json:"authenticationToken,omitempty"`
	RelevantDate        string     `json:"relevantDate,omitempty"`
	ExpirationDate      string     `json:"expirationDate,omitempty"`
	Voided              bool       `json:"voided,omitempty"`
	GroupingIdentifier  string     `json:"groupingIdentifier,omitempty"`
	ForegroundColor     string     `json:"foregroundColor,omitempty"`
	BackgroundColor     string     `json:"backgroundColor,omitempty"`
	LabelColor          string     `json:"labelColor,omitempty"`
	Locations           []Location `json:"locations,omitempty"`
	Barcodes            []Barcode  `json:"barcodes,omitempty"`
	BoardingPass        *styleJSON `json:"boardingPass,omitempty"`
	Coupon              *styleJSON `json:"coupon,omitempty"`
	EventTicket         *styleJSON `json:"eventTicket,omitempty"`
	Generic             *styleJSON `json:"generic,omitempty"`
	StoreCard           *styleJSON `json:"storeCard,omitempty"`
}

type styleJSON struct {
	TransitType     TransitType `json:"transitType,omitempty"`
	HeaderFields    []Field     `json:"headerFields,omitempty"`
	PrimaryFields   []Field     `json:"primaryFields,omitempty"`
	SecondaryFields []Field     `json:"secondaryFields,omitempty"`
	AuxiliaryFields []Field     `json:"auxiliaryFields,omitempty"`
	BackFields      []Field     `json:"backFields,omitempty"`
}

func (p Pass) MarshalJSON() ([]byte, error) {
	if p.style == nil {
		return nil, fmt.Errorf("pass has no style payload")
	}
	wire := passJSON{
		FormatVersion:       p.formatVersion,
		PassTypeIdentifier:  p.passTypeIdentifier,
		SerialNumber:        p.serialNumber,
		TeamIdentifier:      p.teamIdentifier,
		OrganizationName:    p.organizationName,
		Description:         p.description,
		LogoText:            p.logoText,
		WebServiceURL:       p.webService.URL,
		AuthenticationToken: p.webService.AuthenticationToken,
		Voided:              p.voided,
		GroupingIdentifier:  p.groupingIdentifier,
		ForegroundColor:     p.colors.Foreground,
		BackgroundColor:     p.colors.Background,
		LabelColor:          p.colors.Label,
		Locations:           p.locations,
		Barcodes:            p.barcodes,
	}
	if !p.relevantDate.IsZero() {
		wire.RelevantDate = formatW3CDate(p.relevantDate)
	}
	if !p.expirationDate.IsZero() {
		wire.ExpirationDate = formatW3CDate(p.expirationDate)
	}

	groups := p.style.groups()
	payload := &styleJSON{
		HeaderFields:    groups[Header],
		PrimaryFields:   groups[Primary],
		SecondaryFields: groups[Secondary],
		AuxiliaryFields: groups[Auxiliary],
		BackFields:      groups[Back],
	}
	switch style := p.style.(type) {
	case BoardingPass:
		payload.TransitType = style.transitType
		wire.BoardingPass = payload
	case Coupon:
		wire.Coupon = payload
	case EventTicket:
		wire.EventTicket = payload
	case Generic:
		wire.Generic = payload
	case StoreCard:
		wire.StoreCard = payload
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes pass.json content without enforcing the mandatory
// identifiers; Parse adds validation.
func (p *Pass) UnmarshalJSON(data []byte) error {
	var wire passJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	present := map[StyleKind]*styleJSON{}
	candidates := map[StyleKind]*styleJSON{
		StyleBoardingPass: wire.BoardingPass,
		StyleCoupon:       wire.Coupon,
		StyleEventTicket:  wire.EventTicket,
		StyleGeneric:      wire.Generic,
		StyleStoreCard:    wire.StoreCard,
	}
	for kind, payload := range candidates {
		if payload != nil {
			present[kind] = payload
		}
	}
	if len(present) == 0 {
		return fmt.Errorf("pass has no style payload")
	}
	if len(present) > 1 {
		kinds := make([]string, 0, len(present))
		for kind := range present {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		return fmt.Errorf("pass has multiple style payloads: %s", strings.Join(kinds, ", "))
	}

	var style Style
	for kind, payload := range present {
		var fields fieldSet
		fields[Header] = payload.HeaderFields
		fields[Primary] = payload.PrimaryFields
		fields[Secondary] = payload.SecondaryFields
		fields[Auxiliary] = payload.AuxiliaryFields
		fields[Back] = payload.BackFields
		built, err := newStyle(kind, payload.TransitType, fields)
		if err != nil {
			return err
		}
		style = built
	}

	relevantDate, err := parseOptionalDate("relevantDate", wire.RelevantDate)
	if err != nil {
		return err
	}
	expirationDate, err := parseOptionalDate("expirationDate", wire.ExpirationDate)
	if err != nil {
		return err
	}
	for index := range wire.Barcodes {
		if wire.Barcodes[index].MessageEncoding == "" {
			wire.Barcodes[index].MessageEncoding = DefaultMessageEncoding
		}
	}

	*p = Pass{
		formatVersion:      wire.FormatVersion,
		passTypeIdentifier: wire.PassTypeIdentifier,
		serialNumber:       wire.SerialNumber,
		teamIdentifier:     wire.TeamIdentifier,
		organizationName:   wire.OrganizationName,
		description:        wire.Description,
		logoText:           wire.LogoText,
		webService:         WebService{URL: wire.WebServiceURL, AuthenticationToken: wire.AuthenticationToken},
		relevantDate:       relevantDate,
		expirationDate:     expirationDate,
		voided:             wire.Voided,
		groupingIdentifier: wire.GroupingIdentifier,
		colors:             Colors{Foreground: wire.ForegroundColor, Background: wire.BackgroundColor, Label: wire.LabelColor},
		locations:          wire.Locations,
		barcodes:           wire.Barcodes,
		style:              style,
	}
	return nil
}

// Parse decodes pass.json bytes and validates the result.
func Parse(data []byte) (Pass, error) {
	var parsed Pass
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Pass{}, err
	}
	if err := parsed.Validate(); err != nil {
		return Pass{}, err
	}
	return parsed, nil
}

func parseOptionalDate(name, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	parsed, err := ParseW3CDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return parsed, nil
}
