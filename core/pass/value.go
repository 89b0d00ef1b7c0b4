package pass

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

type ValueKind uint8

const (
	KindText ValueKind = iota + 1
	KindNumber
	KindDate
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "unset"
	}
}

// Value holds exactly one of text, number, date-time or boolean.
type Value struct {
	kind    ValueKind
	text    string
	number  float64
	date    time.Time
	boolean bool
}

// Primitive is the set of Go types a Value can be built from.
type Primitive interface {
	string | int | int64 | float64 | bool | time.Time | Value
}

func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

func Number(f float64) Value {
	return Value{kind: KindNumber, number: f}
}

func Int(i int64) Value {
	return Number(float64(i))
}

func Date(t time.Time) Value {
	return Value{kind: KindDate, date: t}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// ValueOf converts any supported primitive to a Value.
func ValueOf[T Primitive](v T) Value {
	switch typed := any(v).(type) {
	case string:
		return Text(typed)
	case int:
		return Int(int64(typed))
	case int64:
		return Int(typed)
	case float64:
		return Number(typed)
	case bool:
		return Bool(typed)
	case time.Time:
		return Date(typed)
	case Value:
		return typed
	}
	return Value{}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsZero() bool { return v.kind == 0 }

func (v Value) Text() (string, bool) { return v.text, v.kind == KindText }

func (v Value) Number() (float64, bool) { return v.number, v.kind == KindNumber }

func (v Value) Date() (time.Time, bool) { return v.date, v.kind == KindDate }

func (v Value) Bool() (bool, bool) { return v.boolean, v.kind == KindBool }

func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return fmt.Sprint(v.number)
	case KindDate:
		return formatW3CDate(v.date)
	case KindBool:
		return fmt.Sprint(v.boolean)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		if math.IsNaN(v.number) || math.IsInf(v.number, 0) {
			return nil, fmt.Errorf("field value is not a finite number")
		}
		return json.Marshal(v.number)
	case KindDate:
		return json.Marshal(formatW3CDate(v.date))
	case KindBool:
		return json.Marshal(v.boolean)
	default:
		return nil, fmt.Errorf("field value is unset")
	}
}

// UnmarshalJSON maps JSON strings to text, numbers to number and booleans to
// bool. Dates arrive as strings; Field promotes them when date hints are set.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("field value is empty")
	}
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*v = Text(text)
	case 't', 'f':
		var boolean bool
		if err := json.Unmarshal(trimmed, &boolean); err != nil {
			return err
		}
		*v = Bool(boolean)
	case 'n':
		return fmt.Errorf("field value must not be null")
	case '{', '[':
		return fmt.Errorf("field value must be a string, number or boolean")
	default:
		var number float64
		if err := json.Unmarshal(trimmed, &number); err != nil {
			return err
		}
		*v = Number(number)
	}
	return nil
}

var w3cDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

func formatW3CDate(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ParseW3CDate accepts RFC 3339 timestamps, with or without seconds.
func ParseW3CDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range w3cDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid W3C date: %q", raw)
}
