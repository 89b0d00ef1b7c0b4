package pass

import (
	"fmt"
	"slices"
	"strings"
	"time"

	coreerrors "github.com/davidahmann/pkpass/core/errors"
)

const FormatVersion = 1

type WebService struct {
	URL                 string
	AuthenticationToken string
}

type Colors struct {
	Foreground string
	Background string
	Label      string
}

// Pass is an immutable pass record. Obtain one from a Builder finish call or
// from Parse.
type Pass struct {
	formatVersion      int
	passTypeIdentifier string
	serialNumber       string
	teamIdentifier     string
	organizationName   string
	description        string
	logoText           string
	webService         WebService
	relevantDate       time.Time
	expirationDate     time.Time
	voided             bool
	groupingIdentifier string
	colors             Colors
	locations          []Location
	barcodes           []Barcode
	style              Style
}

func (p Pass) FormatVersion() int         { return p.formatVersion }
func (p Pass) PassTypeIdentifier() string { return p.passTypeIdentifier }
func (p Pass) SerialNumber() string       { return p.serialNumber }
func (p Pass) TeamIdentifier() string     { return p.teamIdentifier }
func (p Pass) OrganizationName() string   { return p.organizationName }
func (p Pass) Description() string        { return p.description }
func (p Pass) LogoText() string           { return p.logoText }
func (p Pass) Voided() bool               { return p.voided }
func (p Pass) GroupingIdentifier() string { return p.groupingIdentifier }
func (p Pass) Colors() Colors             { return p.colors }
func (p Pass) Style() Style               { return p.style }
func (p Pass) Barcodes() []Barcode        { return slices.Clone(p.barcodes) }

func (p Pass) WebService() (WebService, bool) {
	return p.webService, p.webService.URL != "" || p.webService.AuthenticationToken != ""
}

func (p Pass) RelevantDate() (time.Time, bool) {
	return p.relevantDate, !p.relevantDate.IsZero()
}

func (p Pass) ExpirationDate() (time.Time, bool) {
	return p.expirationDate, !p.expirationDate.IsZero()
}

func (p Pass) Locations() []Location {
	if p.locations == nil {
		return nil
	}
	out := make([]Location, len(p.locations))
	for i, location := range p.locations {
		out[i] = location.clone()
	}
	return out
}

// ValidationError lists every rule a pass violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid pass: " + strings.Join(e.Problems, "; ")
}

// Validate checks the invariants every serialized pass must hold.
func (p Pass) Validate() error {
	var problems []string
	if p.formatVersion != FormatVersion {
		problems = append(problems, fmt.Sprintf("formatVersion must be %d", FormatVersion))
	}
	if strings.TrimSpace(p.passTypeIdentifier) == "" {
		problems = append(problems, "passTypeIdentifier is required")
	}
	if strings.TrimSpace(p.serialNumber) == "" {
		problems = append(problems, "serialNumber is required")
	}
	if strings.TrimSpace(p.teamIdentifier) == "" {
		problems = append(problems, "teamIdentifier is required")
	}
	if service, ok := p.WebService(); ok && (service.URL == "" || service.AuthenticationToken == "") {
		problems = append(problems, "webServiceURL and authenticationToken must be set together")
	}
	for index, barcode := range p.barcodes {
		if !barcode.Format.Valid() {
			problems = append(problems, fmt.Sprintf("barcodes[%d]: unknown format %q", index, barcode.Format))
		}
	}
	switch style := p.style.(type) {
	case nil:
		problems = append(problems, "a style payload is required")
	case BoardingPass:
		if !style.transitType.Valid() {
			problems = append(problems, fmt.Sprintf("boardingPass: unknown transitType %q", style.transitType))
		}
	}
	if p.style != nil {
		for _, problem := range p.style.groups().validate() {
			problems = append(problems, string(p.style.Kind())+"."+problem)
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return coreerrors.Wrap(
		&ValidationError{Problems: problems},
		coreerrors.CategoryInvalidInput,
		"invalid_pass",
		"set the mandatory identifiers and keep field keys unique within each group",
		false,
	)
}
