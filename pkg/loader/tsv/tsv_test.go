package tsv

import (
	"errors"
	"testing"

	"github.com/JadenBair-FS/aris/pkg/loader"
)

const sample = "O*NET-SOC Code\tTitle\tDescription\n" +
	"15-1254.00\tWeb Developers\tDesign websites.\n" +
	"15-1252.00\tSoftware Developers\n"

func TestParse_HeaderAndRows(t *testing.T) {
	table, err := Parse("Occupation Data.txt", []byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}

	title, err := table.Field(0, "Title")
	if err != nil {
		t.Fatal(err)
	}
	if title != "Web Developers" {
		t.Fatalf("expected Web Developers, got %q", title)
	}
}

func TestField_ShortRowIsMalformed(t *testing.T) {
	table, err := Parse("Occupation Data.txt", []byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	_, err = table.Field(1, "Description")
	var malformed *loader.MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
	if malformed.Line != 3 {
		t.Fatalf("expected line 3, got %d", malformed.Line)
	}
}

func TestField_MissingColumnIsMalformed(t *testing.T) {
	table, err := Parse("x.txt", []byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	_, err = table.Field(0, "Scale ID")
	var malformed *loader.MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
}

func TestFloatField(t *testing.T) {
	content := "O*NET-SOC Code\tScale ID\tData Value\n" +
		"15-1254.00\tIM\t4.12\n" +
		"15-1254.00\tIM\tn/a\n"
	table, err := Parse("Skills.txt", []byte(content))
	if err != nil {
		t.Fatal(err)
	}

	v, err := table.FloatField(0, "Data Value")
	if err != nil {
		t.Fatal(err)
	}
	if v != 4.12 {
		t.Fatalf("expected 4.12, got %v", v)
	}

	_, err = table.FloatField(1, "Data Value")
	var malformed *loader.MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError for unparsable value, got %v", err)
	}
}

func TestParse_EmptyFile(t *testing.T) {
	if _, err := Parse("empty.txt", nil); err == nil {
		t.Fatal("expected error for empty file")
	}
}
