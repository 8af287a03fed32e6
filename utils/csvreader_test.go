package utils

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	csvData := `name,age,city
Alice,30,New York
Bob,25,Los Angeles`

	reader := strings.NewReader(csvData)

	got, err := ParseCSV(reader)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}

	want := [][]string{
		{"name", "age", "city"},
		{"Alice", "30", "New York"},
		{"Bob", "25", "Los Angeles"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseCSV returned %+v, want %+v", got, want)
	}
}

func TestParseCSVRaggedRows(t *testing.T) {
	csvData := "employee_id,timestamp,type,device_id,source\nE1, 2024-06-10T08:00:00Z,in,D1\n"

	got, err := ParseCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if len(got) != 2 || len(got[1]) != 4 {
		t.Fatalf("unexpected rows %+v", got)
	}
	if got[1][1] != "2024-06-10T08:00:00Z" {
		t.Errorf("leading space kept: %q", got[1][1])
	}
}
