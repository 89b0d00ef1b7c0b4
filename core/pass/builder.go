package pass

import (
	"fmt"
	"slices"
	"time"

	coreerrors "github.com/davidahmann/pkpass/core/errors"
)

// Builder accumulates pass attributes. Every method returns an updated copy;
// earlier copies are never modified. Nothing is validated until a Finish call.
type Builder struct {
	pass     Pass
	fields   fieldSet
	problems []string
}

func NewBuilder(serialNumber, passTypeIdentifier, teamIdentifier string) Builder {
	return Builder{pass: Pass{
		formatVersion:      FormatVersion,
		serialNumber:       serialNumber,
		passTypeIdentifier: passTypeIdentifier,
		teamIdentifier:     teamIdentifier,
	}}
}

func (b Builder) WebService(authenticationToken, url string) Builder {
	b.pass.webService = WebService{URL: url, AuthenticationToken: authenticationToken}
	return b
}

func (b Builder) RelevantDate(date time.Time) Builder {
	b.pass.relevantDate = date
	return b
}

func (b Builder) ExpirationDate(date time.Time) Builder {
	b.pass.expirationDate = date
	return b
}

func (b Builder) Voided(voided bool) Builder {
	b.pass.voided = voided
	return b
}

func (b Builder) GroupingIdentifier(id string) Builder {
	b.pass.groupingIdentifier = id
	return b
}

func (b Builder) Colors(colors Colors) Builder {
	b.pass.colors = colors
	return b
}

func (b Builder) AddLocation(latitude, longitude float64) Builder {
	return b.AddLocationDetail(Location{Latitude: latitude, Longitude: longitude})
}

func (b Builder) AddLocationDetail(location Location) Builder {
	b.pass.locations = append(slices.Clip(b.pass.locations), location.clone())
	return b
}

func (b Builder) AddBarcode(format BarcodeFormat, message string) Builder {
	return b.AddBarcodeDetail(NewBarcode(format, message))
}

func (b Builder) AddBarcodeDetail(barcode Barcode) Builder {
	if barcode.MessageEncoding == "" {
		barcode.MessageEncoding = DefaultMessageEncoding
	}
	b.pass.barcodes = append(slices.Clip(b.pass.barcodes), barcode)
	return b
}

func (b Builder) OrganizationName(name string) Builder {
	b.pass.organizationName = name
	return b
}

func (b Builder) Description(description string) Builder {
	b.pass.description = description
	return b
}

func (b Builder) LogoText(text string) Builder {
	b.pass.logoText = text
	return b
}

func (b Builder) AddField(group FieldGroup, field Field) Builder {
	if group < 0 || int(group) >= groupCount {
		b.problems = append(slices.Clip(b.problems), fmt.Sprintf("field %q: unknown group %s", field.Key, group))
		return b
	}
	b.fields = b.fields.with(group, field)
	return b
}

func (b Builder) AddHeaderField(field Field) Builder    { return b.AddField(Header, field) }
func (b Builder) AddPrimaryField(field Field) Builder   { return b.AddField(Primary, field) }
func (b Builder) AddSecondaryField(field Field) Builder { return b.AddField(Secondary, field) }
func (b Builder) AddAuxiliaryField(field Field) Builder { return b.AddField(Auxiliary, field) }
func (b Builder) AddBackField(field Field) Builder      { return b.AddField(Back, field) }

func (b Builder) FinishBoardingPass(transit TransitType) (Pass, error) {
	return b.finish(StyleBoardingPass, transit)
}

func (b Builder) FinishCoupon() (Pass, error)      { return b.finish(StyleCoupon, "") }
func (b Builder) FinishEventTicket() (Pass, error) { return b.finish(StyleEventTicket, "") }
func (b Builder) FinishGeneric() (Pass, error)     { return b.finish(StyleGeneric, "") }
func (b Builder) FinishStoreCard() (Pass, error)   { return b.finish(StyleStoreCard, "") }

func (b Builder) finish(kind StyleKind, transit TransitType) (Pass, error) {
	style, err := newStyle(kind, transit, b.fields)
	if err != nil {
		return Pass{}, err
	}
	finished := b.pass
	finished.locations = slices.Clone(b.pass.locations)
	finished.barcodes = slices.Clone(b.pass.barcodes)
	finished.style = style
	if len(b.problems) > 0 {
		return Pass{}, coreerrors.Wrap(
			&ValidationError{Problems: slices.Clone(b.problems)},
			coreerrors.CategoryInvalidInput,
			"invalid_pass",
			"add fields only to the header, primary, secondary, auxiliary or back groups",
			false,
		)
	}
	if err := finished.Validate(); err != nil {
		return Pass{}, err
	}
	return finished, nil
}
