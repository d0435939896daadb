package handlers

import "testing"

func TestParsePaginationParams(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	if err != nil || page != 1 || limit != 10 {
		t.Fatalf("expected defaults 1/10, got %d/%d err=%v", page, limit, err)
	}

	page, limit, err = parsePaginationParams("3", "50")
	if err != nil || page != 3 || limit != 50 {
		t.Fatalf("expected 3/50, got %d/%d err=%v", page, limit, err)
	}

	for _, in := range [][2]string{{"0", ""}, {"", "-1"}, {"a", ""}} {
		if _, _, err := parsePaginationParams(in[0], in[1]); err == nil {
			t.Fatalf("expected error for %v", in)
		}
	}
}
