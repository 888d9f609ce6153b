package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matsen/papertools/internal/reference"
)

func TestJSONL_ExportImport(t *testing.T) {
	src := newMemCollection[*reference.Record](t, RecordCodec{})
	if err := src.SetMany(map[string]*reference.Record{
		"1": testRecord("1", "2"),
		"2": testRecord("2"),
		"3": testRecord("3", "1", "2"),
	}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	n, err := WriteJSONL(&buf, src.Values())
	if err != nil {
		t.Fatalf("WriteJSONL() error = %v", err)
	}
	if n != 3 || strings.Count(buf.String(), "\n") != 3 {
		t.Errorf("wrote %d records / %d lines, want 3", n, strings.Count(buf.String(), "\n"))
	}

	dst := newMemCollection[*reference.Record](t, RecordCodec{})
	n, err = ImportJSONL(&buf, dst, 2)
	if err != nil {
		t.Fatalf("ImportJSONL() error = %v", err)
	}
	if n != 3 {
		t.Errorf("imported %d records, want 3", n)
	}
	got, err := dst.Get("3")
	if err != nil {
		t.Fatal(err)
	}
	if ids := reference.ReferenceIDs(got); len(ids) != 2 {
		t.Errorf("imported record lost references: %v", ids)
	}
}

func TestJSONL_KeepsUnmodeledFields(t *testing.T) {
	line := `{"id": 7, "metadata": {"titles": [{"title": "Seven"}], "dois": [{"value": "10.1/seven"}], "arxiv_eprints": [{"value": "2101.00007"}]}}` + "\n"

	c := newMemCollection[*reference.Record](t, RecordCodec{})
	if _, err := ImportJSONL(strings.NewReader(line), c, 10); err != nil {
		t.Fatalf("ImportJSONL() error = %v", err)
	}

	var buf bytes.Buffer
	if _, err := WriteJSONL(&buf, c.Values()); err != nil {
		t.Fatalf("WriteJSONL() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"dois":[{"value":"10.1/seven"}]`, `"arxiv_eprints":[{"value":"2101.00007"}]`, `"id":"7"`} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %s:\n%s", want, out)
		}
	}
}

func TestReadJSONL_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", "{\"id\": \"1\"}\nnot json\n"},
		{"missing id", "{\"metadata\": {}}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sawErr bool
			for _, err := range ReadJSONL(strings.NewReader(tt.input)) {
				if err != nil {
					sawErr = true
				}
			}
			if !sawErr {
				t.Error("expected an error")
			}
		})
	}
}

func TestReadJSONL_SkipsEmptyLines(t *testing.T) {
	count := 0
	for rec, err := range ReadJSONL(strings.NewReader("\n{\"id\": 1}\n\n{\"id\": \"2\"}\n")) {
		if err != nil {
			t.Fatal(err)
		}
		if rec.ID == "" {
			t.Error("record without id")
		}
		count++
	}
	if count != 2 {
		t.Errorf("read %d records, want 2", count)
	}
}
