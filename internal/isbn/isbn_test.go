package isbn

import (
	"fmt"
	"testing"
)

func TestIsValidKnownIdentifiers(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"9780306406157", true},
		{"978-0-306-40615-7", true},
		{"0306406152", true},
		{"0-306-40615-2", true},
		{"080442957X", true},
		{"9780306406158", false},
		{"0306406151", false},
		{"12345", false},
		{"", false},
		{"97803064061570", false},
		{"030640615X", false},
	}
	for _, tc := range cases {
		if got := IsValid(tc.value); got != tc.want {
			t.Errorf("IsValid(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"978-0-306-40615-7", "isbn: 0 306 40615 2", "080442957x", ""}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestExactlyOneCheckDigitPerPrefix(t *testing.T) {
	prefixes := []string{"978030640615", "979123456789", "978000000000"}
	for _, prefix := range prefixes {
		valid := 0
		for d := 0; d <= 9; d++ {
			candidate := fmt.Sprintf("%s%d", prefix, d)
			if IsValid(candidate) {
				valid++
			}
		}
		if valid != 1 {
			t.Errorf("prefix %s: %d valid check digits, want exactly 1", prefix, valid)
		}
	}
}

func TestScanTextFindsAndDeduplicates(t *testing.T) {
	text := `Copyright page. ISBN 978-0-306-40615-7 (hardcover).
Also available as ISBN-10: 0-306-40615-2. Reprinted: 978-0-306-40615-7.`
	got := ScanText(text)
	want := []string{"9780306406157", "0306406152"}
	if len(got) != len(want) {
		t.Fatalf("ScanText returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ScanText order mismatch: %v, want %v", got, want)
		}
	}
	for _, value := range got {
		if !IsValid(value) {
			t.Fatalf("ScanText returned invalid identifier %q", value)
		}
	}
}

func TestScanTextIgnoresInvalidChecksums(t *testing.T) {
	if got := ScanText("ISBN 978-0-306-40615-8 is a typo"); len(got) != 0 {
		t.Fatalf("expected no identifiers, got %v", got)
	}
}

func TestExtractMetadataFirst(t *testing.T) {
	data := Extract(
		[]string{"urn:isbn:9780306406157", "0306406152"},
		[]string{"ISBN 0-8044-2957-X appears in the text"},
	)
	if data.Source != SourceMetadata {
		t.Fatalf("expected metadata provenance, got %s", data.Source)
	}
	if data.ISBN != "9780306406157" {
		t.Fatalf("unexpected identifier: %s", data.ISBN)
	}
	if len(data.Candidates) != 1 || data.Candidates[0] != "9780306406157" {
		t.Fatalf("unexpected candidates: %v", data.Candidates)
	}
}

func TestExtractSkipsInvalidMetadataAndFallsBack(t *testing.T) {
	data := Extract(
		[]string{"uuid:0a1b2c3d", "isbn-garbage"},
		[]string{"First chapter mentions ISBN 0-306-40615-2.", "Later: ISBN 978-0-306-40615-7."},
	)
	if data.Source != SourceContent {
		t.Fatalf("expected content provenance, got %s", data.Source)
	}
	// 13-digit representative wins even though the 10-digit form came first.
	if data.ISBN != "9780306406157" {
		t.Fatalf("unexpected identifier: %s", data.ISBN)
	}
	want := []string{"0306406152", "9780306406157"}
	if len(data.Candidates) != len(want) {
		t.Fatalf("unexpected candidates: %v", data.Candidates)
	}
	for i := range want {
		if data.Candidates[i] != want[i] {
			t.Fatalf("candidate order mismatch: %v", data.Candidates)
		}
	}
}

func TestExtractBoundsContentScan(t *testing.T) {
	fragments := make([]string, 8)
	for i := range fragments {
		fragments[i] = "no identifiers here"
	}
	fragments[6] = "ISBN 978-0-306-40615-7"
	data := Extract(nil, fragments)
	if data.Source != SourceNone {
		t.Fatalf("expected none provenance, identifiers beyond the fragment bound must be ignored; got %s", data.Source)
	}
	if data.ISBN != "" || len(data.Candidates) != 0 {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestExtractNoIdentifiers(t *testing.T) {
	data := Extract([]string{"uuid:abc"}, []string{"plain text"})
	if data.Source != SourceNone || data.ISBN != "" {
		t.Fatalf("unexpected data: %+v", data)
	}
}
