package shared

import (
	"testing"
	"time"
)

func TestNormalizePagination(t *testing.T) {
	page, size := NormalizePagination(0, 500)
	if page != 1 || size != 100 {
		t.Fatalf("unexpected pagination: %d %d", page, size)
	}
	if p := BuildPagination(2, 20, 41); p.TotalPage != 3 {
		t.Fatalf("unexpected total pages: %+v", p)
	}
}

func TestParseEndDateExtendsToEndOfDay(t *testing.T) {
	end, err := ParseEndDate("2026-10-14")
	if err != nil || end == nil {
		t.Fatalf("parse failed: %v", err)
	}
	if end.Hour() != 23 || end.Minute() != 59 || end.Day() != 14 {
		t.Fatalf("end date should cover the whole day, got %v", end)
	}

	exact, err := ParseEndDate("2026-10-14T08:30:00Z")
	if err != nil || !exact.Equal(time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("RFC3339 end date should be kept, got %v (%v)", exact, err)
	}
	if empty, err := ParseEndDate(" "); err != nil || empty != nil {
		t.Fatalf("blank end date should be nil, got %v %v", empty, err)
	}
	if _, err := ParseDate("14/10/2026"); err == nil {
		t.Fatalf("unsupported layout should fail")
	}
}

func TestMessageFallsBackToKey(t *testing.T) {
	if Message("error.unknown_key") != "error.unknown_key" {
		t.Fatalf("unknown key should be returned as is")
	}
	if got := Messagef("error.rate_limited", 30); got != "Muitas tentativas, tente novamente em 30 segundos" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}
