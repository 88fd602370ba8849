package ml

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCategoryMapAssignsDenseCodes(t *testing.T) {
	m := NewCategoryMap()
	if code := m.Fit("IndiGo"); code != 0 {
		t.Fatalf("expected code 0, got %d", code)
	}
	if code := m.Fit("Air India"); code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
	// Refitting an existing value must not reassign its code.
	if code := m.Fit("IndiGo"); code != 0 {
		t.Fatalf("expected stable code 0, got %d", code)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 categories, got %d", m.Len())
	}
	if code := m.Lookup("Air India"); code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
	if code := m.Lookup("Vistara"); code != SentinelCode {
		t.Fatalf("expected sentinel for unseen value, got %d", code)
	}
}

func TestCategoryMapJSONRoundTrip(t *testing.T) {
	m := NewCategoryMap()
	m.Fit("Delhi")
	m.Fit("Mumbai")
	m.Fit("Bangalore")

	payload, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored := NewCategoryMap()
	if err := json.Unmarshal(payload, restored); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.Len() != 3 {
		t.Fatalf("expected 3 categories, got %d", restored.Len())
	}
	for _, city := range []string{"Delhi", "Mumbai", "Bangalore"} {
		if restored.Lookup(city) != m.Lookup(city) {
			t.Fatalf("code for %s changed across round trip", city)
		}
	}
	if !reflect.DeepEqual(restored.Values(), m.Values()) {
		t.Fatalf("value order changed across round trip: %v vs %v", restored.Values(), m.Values())
	}
}

func TestEncodeFitThenFrozenParity(t *testing.T) {
	record := FlightRecord{
		Airline:         "IndiGo",
		SourceCity:      "Mumbai",
		DestinationCity: "Delhi",
		Class:           "Economy",
		Stops:           1,
		DepartureTime:   "10:00",
		ArrivalTime:     "12:30",
		Duration:        150,
		DaysLeft:        5,
	}

	encoder := NewFeatureEncoder()
	fitted := encoder.Encode(record, true)
	if len(fitted) != FeatureCount {
		t.Fatalf("expected %d features, got %d", FeatureCount, len(fitted))
	}

	frozen := encoder.Encode(record, false)
	if !reflect.DeepEqual(fitted, frozen) {
		t.Fatalf("fit and frozen encodings differ: %v vs %v", fitted, frozen)
	}

	want := []float64{0, 0, 1, 10, 12, 0, 0, 150, 5}
	if !reflect.DeepEqual(fitted, want) {
		t.Fatalf("expected %v, got %v", want, fitted)
	}
}

func TestEncodeFrozenUnseenYieldsSentinel(t *testing.T) {
	encoder := NewFeatureEncoder()
	encoder.Encode(FlightRecord{Airline: "IndiGo", SourceCity: "Mumbai", DestinationCity: "Delhi", Class: "Economy"}, true)

	vector := encoder.Encode(FlightRecord{Airline: "UnknownCarrier", SourceCity: "Mumbai", DestinationCity: "Delhi", Class: "Economy"}, false)
	if vector[0] != SentinelCode {
		t.Fatalf("expected sentinel airline code, got %f", vector[0])
	}
	// The map itself must stay unchanged in frozen mode.
	if encoder.Airlines.Len() != 1 {
		t.Fatalf("frozen encode mutated the airline map: %d entries", encoder.Airlines.Len())
	}
}

func TestExtractHour(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "bare time", value: "10:00", want: 10},
		{name: "date and time", value: "2026-02-20 10:30", want: 10},
		{name: "iso timestamp", value: "2026-02-20T18:45:00", want: 18},
		{name: "rfc3339", value: "2026-02-20T06:15:00Z", want: 6},
		{name: "evening", value: "23:59", want: 23},
		{name: "garbage", value: "garbage", want: 12},
		{name: "hour out of range", value: "25:00", want: 12},
		{name: "empty", value: "", want: 12},
		{name: "whitespace", value: "   ", want: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractHour(tt.value); got != tt.want {
				t.Errorf("ExtractHour(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestFeatureNamesMatchVectorLayout(t *testing.T) {
	names := FeatureNames()
	if len(names) != FeatureCount {
		t.Fatalf("expected %d names, got %d", FeatureCount, len(names))
	}
	want := []string{"airline", "source_city", "stops", "departure_hour", "arrival_hour", "destination", "class", "duration", "days_left"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
}
