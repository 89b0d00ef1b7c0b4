package pass

import (
	"fmt"
	"slices"
)

type StyleKind string

const (
	StyleBoardingPass StyleKind = "boardingPass"
	StyleCoupon       StyleKind = "coupon"
	StyleEventTicket  StyleKind = "eventTicket"
	StyleGeneric      StyleKind = "generic"
	StyleStoreCard    StyleKind = "storeCard"
)

type TransitType string

const (
	TransitAir     TransitType = "PKTransitTypeAir"
	TransitBoat    TransitType = "PKTransitTypeBoat"
	TransitBus     TransitType = "PKTransitTypeBus"
	TransitGeneric TransitType = "PKTransitTypeGeneric"
	TransitTrain   TransitType = "PKTransitTypeTrain"
)

func (t TransitType) Valid() bool {
	switch t {
	case TransitAir, TransitBoat, TransitBus, TransitGeneric, TransitTrain:
		return true
	default:
		return false
	}
}

// Style is the single style payload of a pass. The set of implementations is
// closed: BoardingPass, Coupon, EventTicket, Generic and StoreCard.
type Style interface {
	Kind() StyleKind
	Fields(group FieldGroup) []Field
	groups() fieldSet
}

type fieldSet [groupCount][]Field

func (s fieldSet) get(group FieldGroup) []Field {
	if group < 0 || int(group) >= groupCount {
		return nil
	}
	return slices.Clone(s[group])
}

// with returns a copy of the set with field appended to group. The previous
// set keeps its own backing arrays.
func (s fieldSet) with(group FieldGroup, field Field) fieldSet {
	out := s
	out[group] = append(slices.Clip(s[group]), field)
	return out
}

func (s fieldSet) validate() []string {
	var problems []string
	for _, group := range FieldGroups() {
		seen := map[string]struct{}{}
		for index, field := range s[group] {
			if field.Key == "" {
				problems = append(problems, fmt.Sprintf("%s[%d]: key is required", group, index))
				continue
			}
			if _, exists := seen[field.Key]; exists {
				problems = append(problems, fmt.Sprintf("%s: duplicate key %q", group, field.Key))
			}
			seen[field.Key] = struct{}{}
			if field.Value.IsZero() {
				problems = append(problems, fmt.Sprintf("%s: field %q has no value", group, field.Key))
			}
		}
	}
	return problems
}

type BoardingPass struct {
	transitType TransitType
	fields      fieldSet
}

func (BoardingPass) Kind() StyleKind                   { return StyleBoardingPass }
func (b BoardingPass) Fields(group FieldGroup) []Field { return b.fields.get(group) }
func (b BoardingPass) TransitType() TransitType        { return b.transitType }
func (b BoardingPass) groups() fieldSet                { return b.fields }

type Coupon struct{ fields fieldSet }

func (Coupon) Kind() StyleKind                   { return StyleCoupon }
func (c Coupon) Fields(group FieldGroup) []Field { return c.fields.get(group) }
func (c Coupon) groups() fieldSet                { return c.fields }

type EventTicket struct{ fields fieldSet }

func (EventTicket) Kind() StyleKind                   { return StyleEventTicket }
func (e EventTicket) Fields(group FieldGroup) []Field { return e.fields.get(group) }
func (e EventTicket) groups() fieldSet                { return e.fields }

type Generic struct{ fields fieldSet }

func (Generic) Kind() StyleKind                   { return StyleGeneric }
func (g Generic) Fields(group FieldGroup) []Field { return g.fields.get(group) }
func (g Generic) groups() fieldSet                { return g.fields }

type StoreCard struct{ fields fieldSet }

func (StoreCard) Kind() StyleKind                   { return StyleStoreCard }
func (s StoreCard) Fields(group FieldGroup) []Field { return s.fields.get(group) }
func (s StoreCard) groups() fieldSet                { return s.fields }

func newStyle(kind StyleKind, transit TransitType, fields fieldSet) (Style, error) {
	switch kind {
	case StyleBoardingPass:
		return BoardingPass{transitType: transit, fields: fields}, nil
	case StyleCoupon:
		return Coupon{fields: fields}, nil
	case StyleEventTicket:
		return EventTicket{fields: fields}, nil
	case StyleGeneric:
		return Generic{fields: fields}, nil
	case StyleStoreCard:
		return StoreCard{fields: fields}, nil
	default:
		return nil, fmt.Errorf("unknown pass style: %q", kind)
	}
}
