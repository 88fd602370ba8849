package pipeline

import (
	"testing"

	"flightprice/ml"
)

func validRecord() ml.FlightRecord {
	return ml.FlightRecord{
		Airline:         "IndiGo",
		SourceCity:      "Mumbai",
		DestinationCity: "Delhi",
		Class:           "Economy",
		Stops:           0,
		DepartureTime:   "10:00",
		ArrivalTime:     "12:30",
		Duration:        150,
		DaysLeft:        5,
		Price:           4500,
	}
}

func TestNewRecordValidator(t *testing.T) {
	validator := NewRecordValidator()
	if validator == nil {
		t.Fatal("NewRecordValidator returned nil")
	}

	if len(validator.rules) == 0 {
		t.Error("No default rules added")
	}
}

func TestRequiredFieldsRule(t *testing.T) {
	rule := NewRequiredFieldsRule()

	tests := []struct {
		name    string
		mutate  func(*ml.FlightRecord)
		wantErr bool
	}{
		{
			name:    "valid record",
			mutate:  func(r *ml.FlightRecord) {},
			wantErr: false,
		},
		{
			name:    "missing airline",
			mutate:  func(r *ml.FlightRecord) { r.Airline = "" },
			wantErr: true,
		},
		{
			name:    "blank class",
			mutate:  func(r *ml.FlightRecord) { r.Class = "   " },
			wantErr: true,
		},
		{
			name:    "missing destination",
			mutate:  func(r *ml.FlightRecord) { r.DestinationCity = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(&record)
			err := rule.Check(record)
			if (err != nil) != tt.wantErr {
				t.Errorf("RequiredFieldsRule.Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPriceRangeRule(t *testing.T) {
	rule := NewPriceRangeRule()

	tests := []struct {
		name    string
		price   float64
		wantErr bool
	}{
		{name: "valid price", price: 4500, wantErr: false},
		{name: "zero price", price: 0, wantErr: true},
		{name: "negative price", price: -100, wantErr: true},
		{name: "price too high", price: 10000000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			record.Price = tt.price
			err := rule.Check(record)
			if (err != nil) != tt.wantErr {
				t.Errorf("PriceRangeRule.Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNumericRangeRules(t *testing.T) {
	validator := NewRecordValidator()

	tests := []struct {
		name    string
		mutate  func(*ml.FlightRecord)
		wantErr bool
	}{
		{
			name:    "valid record",
			mutate:  func(r *ml.FlightRecord) {},
			wantErr: false,
		},
		{
			name:    "negative stops",
			mutate:  func(r *ml.FlightRecord) { r.Stops = -1 },
			wantErr: true,
		},
		{
			name:    "zero duration",
			mutate:  func(r *ml.FlightRecord) { r.Duration = 0 },
			wantErr: true,
		},
		{
			name:    "negative days left",
			mutate:  func(r *ml.FlightRecord) { r.DaysLeft = -3 },
			wantErr: true,
		},
		{
			name:    "days left beyond a year",
			mutate:  func(r *ml.FlightRecord) { r.DaysLeft = 500 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(&record)
			err := validator.Check(record)
			if (err != nil) != tt.wantErr {
				t.Errorf("RecordValidator.Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordValidatorStats(t *testing.T) {
	validator := NewRecordValidator()

	good := validRecord()
	bad := validRecord()
	bad.Price = 0

	validator.Check(good)
	validator.Check(good)
	validator.Check(bad)

	stats := validator.Stats()
	if stats.TotalProcessed != 3 {
		t.Fatalf("expected 3 processed, got %d", stats.TotalProcessed)
	}
	if stats.Passed != 2 || stats.Rejected != 1 {
		t.Fatalf("expected 2 passed and 1 rejected, got %d and %d", stats.Passed, stats.Rejected)
	}
	if stats.Issues["price_range"] != 1 {
		t.Fatalf("expected price_range issue recorded, got %v", stats.Issues)
	}
}

func TestValidateFiltersRejectedRecords(t *testing.T) {
	validator := NewRecordValidator()

	bad := validRecord()
	bad.Airline = ""

	passed := validator.Validate([]ml.FlightRecord{validRecord(), bad, validRecord()})
	if len(passed) != 2 {
		t.Fatalf("expected 2 records to pass, got %d", len(passed))
	}
}
