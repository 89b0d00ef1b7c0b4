package pass

import (
	"fmt"
	"strings"

	coreerrors "github.com/davidahmann/pkpass/core/errors"
)

type PersonalizationField string

const (
	PersonalizationName         PersonalizationField = "PKPassPersonalizationFieldName"
	PersonalizationPostalCode   PersonalizationField = "PKPassPersonalizationFieldPostalCode"
	PersonalizationEmailAddress PersonalizationField = "PKPassPersonalizationFieldEmailAddress"
	PersonalizationPhoneNumber  PersonalizationField = "PKPassPersonalizationFieldPhoneNumber"
)

// Personalization is the content of personalization.json for reward
// enrollment passes.
type Personalization struct {
	RequiredFields     []PersonalizationField `json:"requiredPersonalizationFields"`
	Description        string                 `json:"description"`
	TermsAndConditions string                 `json:"termsAndConditions,omitempty"`
}

func (p Personalization) Validate() error {
	var problems []string
	if len(p.RequiredFields) == 0 {
		problems = append(problems, "requiredPersonalizationFields must not be empty")
	}
	for _, field := range p.RequiredFields {
		switch field {
		case PersonalizationName, PersonalizationPostalCode, PersonalizationEmailAddress, PersonalizationPhoneNumber:
		default:
			problems = append(problems, fmt.Sprintf("unknown personalization field %q", field))
		}
	}
	if strings.TrimSpace(p.Description) == "" {
		problems = append(problems, "description is required")
	}
	if len(problems) == 0 {
		return nil
	}
	return coreerrors.Wrap(
		&ValidationError{Problems: problems},
		coreerrors.CategoryInvalidInput,
		"invalid_personalization",
		"list at least one known personalization field and a description",
		false,
	)
}
