package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
)

const csvHeader = "airline,source_city,destination_city,class,stops,departure_time,arrival_time,duration,days_left,price"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flights.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadCSVParsesRows(t *testing.T) {
	content := csvHeader + "\n" +
		"IndiGo,Mumbai,Delhi,Economy,zero,10:00,12:30,150,5,4500\n" +
		"Air India,Delhi,Bangalore,Business,1,18:00,20:45,165,3,14800\n" +
		"Vistara,Mumbai,Delhi,Economy,two_or_more,21:10,01:30,260,45,3900\n"

	records, stats, err := LoadCSV(writeCSV(t, content), LoaderConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalRows != 3 || stats.Loaded != 3 || stats.Skipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.Airline != "IndiGo" || first.SourceCity != "Mumbai" || first.DestinationCity != "Delhi" {
		t.Fatalf("unexpected record: %+v", first)
	}
	if first.Stops != 0 || records[1].Stops != 1 || records[2].Stops != 2 {
		t.Fatalf("stops words not parsed: %d %d %d", first.Stops, records[1].Stops, records[2].Stops)
	}
	if first.Duration != 150 || first.DaysLeft != 5 || first.Price != 4500 {
		t.Fatalf("unexpected numeric fields: %+v", first)
	}
}

func TestLoadCSVIgnoresExtraColumnsAndOrder(t *testing.T) {
	// 打乱列顺序并加一个多余的flight列
	content := "flight,price,airline,source_city,destination_city,class,stops,departure_time,arrival_time,duration,days_left\n" +
		"6E-204,4500,IndiGo,Mumbai,Delhi,Economy,0,10:00,12:30,150,5\n"

	records, _, err := LoadCSV(writeCSV(t, content), LoaderConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Airline != "IndiGo" || records[0].Price != 4500 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestLoadCSVSkipsBadRows(t *testing.T) {
	content := csvHeader + "\n" +
		"IndiGo,Mumbai,Delhi,Economy,0,10:00,12:30,150,5,4500\n" +
		"Air India,Delhi,Mumbai,Economy,lots,09:00,11:00,120,9,5000\n" +
		"Vistara,Delhi,Mumbai,Economy,0,09:00,11:00,120,9,not_a_price\n" +
		"IndiGo,Mumbai\n" +
		"SpiceJet,Delhi,Mumbai,Economy,0,09:00,11:00,120,9,-50\n"

	records, stats, err := LoadCSV(writeCSV(t, content), LoaderConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if stats.TotalRows != 5 || stats.Loaded != 1 || stats.Skipped != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	for _, reason := range []string{"bad_stops", "bad_price", "short_row", "price_range"} {
		if stats.Reasons[reason] != 1 {
			t.Fatalf("expected reason %s recorded once, got %v", reason, stats.Reasons)
		}
	}
}

func TestLoadCSVGBKCharset(t *testing.T) {
	content := csvHeader + "\n" +
		"国航,北京,上海,Economy,0,08:00,10:15,135,14,1200\n"
	encoded, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "flights_gbk.csv")
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, _, err := LoadCSV(path, LoaderConfig{Charset: "gbk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Airline != "国航" || records[0].SourceCity != "北京" {
		t.Fatalf("GBK decode failed: %+v", records[0])
	}
}

func TestLoadCSVMissingColumns(t *testing.T) {
	content := "airline,source_city,destination_city,class\nIndiGo,Mumbai,Delhi,Economy\n"
	_, _, err := LoadCSV(writeCSV(t, content), LoaderConfig{})
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	if !strings.Contains(err.Error(), "price") {
		t.Fatalf("expected missing column listed, got %v", err)
	}
}

func TestLoadCSVUnsupportedCharset(t *testing.T) {
	_, _, err := LoadCSV(writeCSV(t, csvHeader+"\n"), LoaderConfig{Charset: "latin9"})
	if err == nil {
		t.Fatal("expected error for unsupported charset")
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, _, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), LoaderConfig{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
