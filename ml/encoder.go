package ml

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SentinelCode marks a categorical value absent from a frozen CategoryMap.
const SentinelCode = -1

// Feature vector layout. Training and serving must agree on this order.
const (
	idxAirline = iota
	idxSource
	idxStops
	idxDepartureHour
	idxArrivalHour
	idxDestination
	idxClass
	idxDuration
	idxDaysLeft
	FeatureCount
)

// FlightRecord is one raw flight row. Price is the training label and is
// ignored at serving time.
type FlightRecord struct {
	Airline         string  `json:"airline"`
	SourceCity      string  `json:"source_city"`
	DestinationCity string  `json:"destination_city"`
	Class           string  `json:"class"`
	Stops           int     `json:"stops"`
	DepartureTime   string  `json:"departure_time"`
	ArrivalTime     string  `json:"arrival_time"`
	Duration        float64 `json:"duration"`
	DaysLeft        int     `json:"days_left"`
	Price           float64 `json:"price,omitempty"`
}

// CategoryMap assigns dense integer codes to category values in first-seen
// order. Codes start at 0, are contiguous and are never reassigned. The map
// only grows through Fit; Lookup never mutates it.
type CategoryMap struct {
	codes map[string]int
	order []string
}

func NewCategoryMap() *CategoryMap {
	return &CategoryMap{codes: make(map[string]int)}
}

// Fit returns the code for value, assigning the next code on first sight.
func (m *CategoryMap) Fit(value string) int {
	if code, ok := m.codes[value]; ok {
		return code
	}
	code := len(m.order)
	m.codes[value] = code
	m.order = append(m.order, value)
	return code
}

// Lookup returns the frozen code for value, or SentinelCode when unseen.
func (m *CategoryMap) Lookup(value string) int {
	code, ok := m.codes[value]
	if !ok {
		return SentinelCode
	}
	return code
}

func (m *CategoryMap) Len() int {
	return len(m.codes)
}

// Values returns the known category values in code order.
func (m *CategoryMap) Values() []string {
	values := make([]string, len(m.order))
	copy(values, m.order)
	return values
}

func (m *CategoryMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.codes)
}

func (m *CategoryMap) UnmarshalJSON(data []byte) error {
	var codes map[string]int
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	if codes == nil {
		codes = make(map[string]int)
	}
	order := make([]string, 0, len(codes))
	for value := range codes {
		order = append(order, value)
	}
	sort.Slice(order, func(i, j int) bool { return codes[order[i]] < codes[order[j]] })
	m.codes = codes
	m.order = order
	return nil
}

// FeatureEncoder converts FlightRecords into numeric feature vectors. It owns
// one CategoryMap per categorical field; the maps grow only while encoding in
// fit mode and are immutable at serving time.
type FeatureEncoder struct {
	Airlines     *CategoryMap
	Sources      *CategoryMap
	Destinations *CategoryMap
	Classes      *CategoryMap
}

func NewFeatureEncoder() *FeatureEncoder {
	return &FeatureEncoder{
		Airlines:     NewCategoryMap(),
		Sources:      NewCategoryMap(),
		Destinations: NewCategoryMap(),
		Classes:      NewCategoryMap(),
	}
}

// Encode builds the fixed 9-entry feature vector for record. In fit mode
// unseen categorical values are assigned fresh codes; otherwise they encode as
// SentinelCode and the maps stay untouched. Fit-mode and inference-mode
// vectors for the same record are identical in shape and order.
func (e *FeatureEncoder) Encode(record FlightRecord, fit bool) []float64 {
	category := func(m *CategoryMap, value string) float64 {
		if fit {
			return float64(m.Fit(value))
		}
		return float64(m.Lookup(value))
	}

	vector := make([]float64, FeatureCount)
	vector[idxAirline] = category(e.Airlines, record.Airline)
	vector[idxSource] = category(e.Sources, record.SourceCity)
	vector[idxStops] = float64(record.Stops)
	vector[idxDepartureHour] = float64(ExtractHour(record.DepartureTime))
	vector[idxArrivalHour] = float64(ExtractHour(record.ArrivalTime))
	vector[idxDestination] = category(e.Destinations, record.DestinationCity)
	vector[idxClass] = category(e.Classes, record.Class)
	vector[idxDuration] = record.Duration
	vector[idxDaysLeft] = float64(record.DaysLeft)
	return vector
}

// FeatureNames returns the feature names in vector order.
func FeatureNames() []string {
	return []string{
		"airline",
		"source_city",
		"stops",
		"departure_hour",
		"arrival_hour",
		"destination",
		"class",
		"duration",
		"days_left",
	}
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC3339,
}

// ExtractHour pulls the hour component (0-23) out of a timestamp-like string.
// It accepts a full timestamp or a bare HH:MM fragment; anything unparseable
// falls back to 12 rather than failing.
func ExtractHour(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 12
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Hour()
		}
	}
	fragment := value
	if i := strings.LastIndexByte(fragment, ' '); i >= 0 {
		fragment = fragment[i+1:]
	}
	if i := strings.IndexByte(fragment, ':'); i > 0 {
		if hour, err := strconv.Atoi(fragment[:i]); err == nil && hour >= 0 && hour <= 23 {
			return hour
		}
	}
	return 12
}
