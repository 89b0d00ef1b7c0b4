package pass

import (
	"encoding/json"
	"fmt"
	"strings"
)

type FieldGroup int

const (
	Header FieldGroup = iota
	Primary
	Secondary
	Auxiliary
	Back
)

const groupCount = 5

// FieldGroups lists the groups in display order.
func FieldGroups() []FieldGroup {
	return []FieldGroup{Header, Primary, Secondary, Auxiliary, Back}
}

// String returns the pass.json key for the group.
func (g FieldGroup) String() string {
	switch g {
	case Header:
		return "headerFields"
	case Primary:
		return "primaryFields"
	case Secondary:
		return "secondaryFields"
	case Auxiliary:
		return "auxiliaryFields"
	case Back:
		return "backFields"
	default:
		return fmt.Sprintf("FieldGroup(%d)", int(g))
	}
}

type DateStyle string

const (
	DateStyleNone   DateStyle = "PKDateStyleNone"
	DateStyleShort  DateStyle = "PKDateStyleShort"
	DateStyleMedium DateStyle = "PKDateStyleMedium"
	DateStyleLong   DateStyle = "PKDateStyleLong"
	DateStyleFull   DateStyle = "PKDateStyleFull"
)

type NumberStyle string

const (
	NumberStyleDecimal    NumberStyle = "PKNumberStyleDecimal"
	NumberStylePercent    NumberStyle = "PKNumberStylePercent"
	NumberStyleScientific NumberStyle = "PKNumberStyleScientific"
	NumberStyleSpellOut   NumberStyle = "PKNumberStyleSpellOut"
)

type TextAlignment string

const (
	TextAlignmentLeft    TextAlignment = "PKTextAlignmentLeft"
	TextAlignmentCenter  TextAlignment = "PKTextAlignmentCenter"
	TextAlignmentRight   TextAlignment = "PKTextAlignmentRight"
	TextAlignmentNatural TextAlignment = "PKTextAlignmentNatural"
)

// DisplayHints are optional formatting keys understood by the wallet app.
type DisplayHints struct {
	ChangeMessage   string
	CurrencyCode    string
	DateStyle       DateStyle
	TimeStyle       DateStyle
	NumberStyle     NumberStyle
	TextAlignment   TextAlignment
	IsRelative      bool
	IgnoresTimeZone bool
}

func (h DisplayHints) hasDateStyle() bool {
	return h.DateStyle != "" || h.TimeStyle != ""
}

type Field struct {
	Key   string
	Label string
	Value Value
	Hints DisplayHints
}

type FieldOption func(*DisplayHints)

func WithChangeMessage(message string) FieldOption {
	return func(h *DisplayHints) { h.ChangeMessage = message }
}

func WithCurrencyCode(code string) FieldOption {
	return func(h *DisplayHints) { h.CurrencyCode = strings.ToUpper(code) }
}

func WithDateStyle(date, clock DateStyle) FieldOption {
	return func(h *DisplayHints) {
		h.DateStyle = date
		h.TimeStyle = clock
	}
}

func WithNumberStyle(style NumberStyle) FieldOption {
	return func(h *DisplayHints) { h.NumberStyle = style }
}

func WithTextAlignment(alignment TextAlignment) FieldOption {
	return func(h *DisplayHints) { h.TextAlignment = alignment }
}

func WithRelativeDate() FieldOption {
	return func(h *DisplayHints) { h.IsRelative = true }
}

func WithIgnoredTimeZone() FieldOption {
	return func(h *DisplayHints) { h.IgnoresTimeZone = true }
}

// NewField builds a labelled field. It never fails; key rules are checked
// when the pass is finished.
func NewField[T Primitive](key, label string, value T, options ...FieldOption) Field {
	field := Field{Key: key, Label: label, Value: ValueOf(value)}
	for _, option := range options {
		option(&field.Hints)
	}
	return field
}

// NewValueField builds a field without a label.
func NewValueField[T Primitive](key string, value T, options ...FieldOption) Field {
	return NewField(key, "", value, options...)
}

type fieldJSON struct {
	Key             string        `json:"key"`
	Label           string        `json:"label,omitempty"`
	Value           Value         `json:"value"`
	ChangeMessage   string        `json:"changeMessage,omitempty"`
	CurrencyCode    string        `json:"currencyCode,omitempty"`
	DateStyle       DateStyle     `json:"dateStyle,omitempty"`
	TimeStyle       DateStyle     `json:"timeStyle,omitempty"`
	NumberStyle     NumberStyle   `json:"numberStyle,omitempty"`
	TextAlignment   TextAlignment `json:"textAlignment,omitempty"`
	IsRelative      bool          `json:"isRelative,omitempty"`
	IgnoresTimeZone bool          `json:"ignoresTimeZone,omitempty"`
}

func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldJSON{
		Key:             f.Key,
		Label:           f.Label,
		Value:           f.Value,
		ChangeMessage:   f.Hints.ChangeMessage,
		CurrencyCode:    f.Hints.CurrencyCode,
		DateStyle:       f.Hints.DateStyle,
		TimeStyle:       f.Hints.TimeStyle,
		NumberStyle:     f.Hints.NumberStyle,
		TextAlignment:   f.Hints.TextAlignment,
		IsRelative:      f.Hints.IsRelative,
		IgnoresTimeZone: f.Hints.IgnoresTimeZone,
	})
}

// UnmarshalJSON decodes a field. A string value is read as a date only when
// the field carries a date or time style and the string is a W3C date.
func (f *Field) UnmarshalJSON(data []byte) error {
	var wire fieldJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Value.IsZero() {
		return fmt.Errorf("field %q: value is required", wire.Key)
	}
	decoded := Field{
		Key:   wire.Key,
		Label: wire.Label,
		Value: wire.Value,
		Hints: DisplayHints{
			ChangeMessage:   wire.ChangeMessage,
			CurrencyCode:    wire.CurrencyCode,
			DateStyle:       wire.DateStyle,
			TimeStyle:       wire.TimeStyle,
			NumberStyle:     wire.NumberStyle,
			TextAlignment:   wire.TextAlignment,
			IsRelative:      wire.IsRelative,
			IgnoresTimeZone: wire.IgnoresTimeZone,
		},
	}
	if text, ok := decoded.Value.Text(); ok && decoded.Hints.hasDateStyle() {
		if parsed, err := ParseW3CDate(text); err == nil {
			decoded.Value = Date(parsed)
		}
	}
	*f = decoded
	return nil
}
