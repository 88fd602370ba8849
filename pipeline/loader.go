package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"flightprice/ml"
)

// LoadStats 装载统计
type LoadStats struct {
	TotalRows int            `json:"total_rows"`
	Loaded    int            `json:"loaded"`
	Skipped   int            `json:"skipped"`
	Reasons   map[string]int `json:"reasons,omitempty"`
}

// LoaderConfig CSV装载配置
type LoaderConfig struct {
	Charset string // "utf-8"（默认）或 "gbk"
}

// 训练CSV必须包含的列，顺序不限，多余的列忽略
var requiredColumns = []string{
	"airline", "source_city", "destination_city", "class",
	"stops", "departure_time", "arrival_time", "duration", "days_left", "price",
}

// 部分数据集用单词表示经停数
var stopsWords = map[string]int{
	"zero":        0,
	"one":         1,
	"two_or_more": 2,
}

// LoadCSV 从CSV文件装载训练记录，坏行跳过并计入统计
func LoadCSV(path string, config LoaderConfig) ([]ml.FlightRecord, LoadStats, error) {
	stats := LoadStats{Reasons: make(map[string]int)}

	file, err := os.Open(path)
	if err != nil {
		return nil, stats, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var source io.Reader = file
	switch strings.ToLower(strings.TrimSpace(config.Charset)) {
	case "", "utf-8", "utf8":
	case "gbk":
		source = transform.NewReader(file, simplifiedchinese.GBK.NewDecoder())
	default:
		return nil, stats, fmt.Errorf("unsupported charset %q", config.Charset)
	}

	reader := csv.NewReader(source)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read header of %s: %w", path, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, stats, fmt.Errorf("%s is missing columns: %s", path, strings.Join(missing, ", "))
	}
	lastColumn := 0
	for _, name := range requiredColumns {
		if columns[name] > lastColumn {
			lastColumn = columns[name]
		}
	}

	validator := NewRecordValidator()
	skip := func(reason string) {
		stats.Skipped++
		stats.Reasons[reason]++
	}

	var records []ml.FlightRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			stats.TotalRows++
			skip("parse_error")
			continue
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read %s: %w", path, err)
		}
		stats.TotalRows++

		if len(row) <= lastColumn {
			skip("short_row")
			continue
		}
		field := func(name string) string {
			return strings.TrimSpace(row[columns[name]])
		}

		stops, err := parseStops(field("stops"))
		if err != nil {
			skip("bad_stops")
			continue
		}
		duration, err := strconv.ParseFloat(field("duration"), 64)
		if err != nil {
			skip("bad_duration")
			continue
		}
		daysLeft, err := strconv.Atoi(field("days_left"))
		if err != nil {
			skip("bad_days_left")
			continue
		}
		price, err := strconv.ParseFloat(field("price"), 64)
		if err != nil {
			skip("bad_price")
			continue
		}

		record := ml.FlightRecord{
			Airline:         field("airline"),
			SourceCity:      field("source_city"),
			DestinationCity: field("destination_city"),
			Class:           field("class"),
			Stops:           stops,
			DepartureTime:   field("departure_time"),
			ArrivalTime:     field("arrival_time"),
			Duration:        duration,
			DaysLeft:        daysLeft,
			Price:           price,
		}
		if err := validator.Check(record); err != nil {
			stats.Skipped++
			continue
		}

		records = append(records, record)
		stats.Loaded++
	}

	// 把规则拒绝的原因并入统计
	for name, count := range validator.Stats().Issues {
		stats.Reasons[name] += int(count)
	}

	return records, stats, nil
}

// parseStops 解析经停数，兼容单词和数字两种写法
func parseStops(value string) (int, error) {
	if stops, ok := stopsWords[strings.ToLower(value)]; ok {
		return stops, nil
	}
	stops, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid stops %q", value)
	}
	return stops, nil
}
