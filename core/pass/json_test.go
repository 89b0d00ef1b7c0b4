package pass

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMarshalUsesConventionalKeys(t *testing.T) {
	built, err := exampleBuilder().FinishBoardingPass(TransitTrain)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	encoded, err := json.Marshal(built)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{
		"formatVersion", "passTypeIdentifier", "serialNumber", "teamIdentifier",
		"organizationName", "description", "logoText", "webServiceURL",
		"authenticationToken", "relevantDate", "locations", "barcodes", "boardingPass",
	} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %s in %s", key, encoded)
		}
	}
	if decoded["relevantDate"] != "2018-11-25T22:25:00Z" {
		t.Fatalf("unexpected relevantDate: %v", decoded["relevantDate"])
	}
	boarding := decoded["boardingPass"].(map[string]any)
	if boarding["transitType"] != string(TransitTrain) {
		t.Fatalf("unexpected transitType: %v", boarding["transitType"])
	}
	header := boarding["headerFields"].([]any)
	first := header[0].(map[string]any)
	if first["key"] != "gate" || first["label"] != "GATE" || first["value"] != "23" {
		t.Fatalf("unexpected first header field: %#v", first)
	}
	second := header[1].(map[string]any)
	if second["value"] != float64(22) {
		t.Fatalf("expected numeric value, got %#v", second["value"])
	}
	for _, absent := range []string{"coupon", "eventTicket", "generic", "storeCard", "voided"} {
		if _, ok := decoded[absent]; ok {
			t.Fatalf("unexpected key %s", absent)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	built, err := exampleBuilder().
		AddAuxiliaryField(NewField("departs", "DEPARTS", time.Date(2018, time.November, 25, 22, 25, 0, 0, time.UTC), WithDateStyle(DateStyleShort, DateStyleShort))).
		AddSecondaryField(NewField("fare", "FARE", 12.5, WithCurrencyCode("usd"))).
		FinishBoardingPass(TransitAir)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	encoded, err := json.Marshal(built)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reencoded, err := json.Marshal(parsed)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if string(reencoded) != string(encoded) {
		t.Fatalf("round trip changed content:\n%s\n%s", encoded, reencoded)
	}
	departs := parsed.Style().Fields(Auxiliary)[0]
	if departs.Value.Kind() != KindDate {
		t.Fatalf("expected date value for styled field, got %s", departs.Value.Kind())
	}
	fare := parsed.Style().Fields(Secondary)[0]
	if fare.Hints.CurrencyCode != "USD" {
		t.Fatalf("unexpected currency: %q", fare.Hints.CurrencyCode)
	}
}

func TestParseKeepsUnstyledDateStringsAsText(t *testing.T) {
	input := `{"formatVersion":1,"passTypeIdentifier":"pass.it.example","serialNumber":"1","teamIdentifier":"ABC123",
		"organizationName":"o","description":"d","generic":{"primaryFields":[{"key":"when","value":"2018-11-25T14:25-08:00"}]}}`
	parsed, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if kind := parsed.Style().Fields(Primary)[0].Value.Kind(); kind != KindText {
		t.Fatalf("expected text value, got %s", kind)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		problem string
	}{
		{name: "truncated", input: `{"formatVersion":1,"serialNumber":`, problem: "unexpected end"},
		{name: "no style", input: `{"formatVersion":1,"passTypeIdentifier":"p","serialNumber":"1","teamIdentifier":"t"}`, problem: "no style payload"},
		{
			name:    "two styles",
			input:   `{"formatVersion":1,"passTypeIdentifier":"p","serialNumber":"1","teamIdentifier":"t","coupon":{},"generic":{}}`,
			problem: "multiple style payloads: coupon, generic",
		},
		{name: "missing serial", input: `{"formatVersion":1,"passTypeIdentifier":"p","teamIdentifier":"t","coupon":{}}`, problem: "serialNumber is required"},
		{name: "bad version", input: `{"formatVersion":2,"passTypeIdentifier":"p","serialNumber":"1","teamIdentifier":"t","coupon":{}}`, problem: "formatVersion must be 1"},
		{name: "bad date", input: `{"formatVersion":1,"passTypeIdentifier":"p","serialNumber":"1","teamIdentifier":"t","relevantDate":"soon","coupon":{}}`, problem: "relevantDate"},
		{name: "missing value", input: `{"formatVersion":1,"passTypeIdentifier":"p","serialNumber":"1","teamIdentifier":"t","coupon":{"headerFields":[{"key":"k"}]}}`, problem: "value is required"},
		{
			name:    "half web service",
			input:   `{"formatVersion":1,"passTypeIdentifier":"p","serialNumber":"1","teamIdentifier":"t","webServiceURL":"https://x","coupon":{}}`,
			problem: "must be set together",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.input))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.problem) {
				t.Fatalf("expected %q in %q", tc.problem, err.Error())
			}
		})
	}
}

func TestMarshalZeroPassFails(t *testing.T) {
	if _, err := json.Marshal(Pass{}); err == nil {
		t.Fatalf("expected error for pass without style")
	}
}
