package enums

import "testing"

func TestParseSortKey(t *testing.T) {
	for _, key := range SortKeys() {
		parsed, err := ParseSortKey(key.String())
		if err != nil {
			t.Fatalf("ParseSortKey(%q) returned error: %v", key, err)
		}
		if parsed != key || !parsed.IsValid() {
			t.Fatalf("expected %q, got %q", key, parsed)
		}
	}

	if _, err := ParseSortKey("name_asc"); err == nil {
		t.Fatal("expected unknown sort key to fail")
	}
	if SortKey("").IsValid() {
		t.Fatal("empty sort key must not be valid")
	}
}
