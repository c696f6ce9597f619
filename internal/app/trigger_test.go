package app_test

import (
	"testing"

	"review_feed/internal/app"
)

func TestShouldLoadNextPage(t *testing.T) {
	cases := []struct {
		name                       string
		viewport, content, offsetY float64
		threshold                  float64
		want                       bool
	}{
		{"top of long list", 800, 10000, 0, 2.5, false},
		{"just outside threshold", 800, 10000, 7199, 2.5, false},
		{"exactly at threshold", 800, 10000, 7200, 2.5, true},
		{"near bottom", 800, 10000, 9000, 2.5, true},
		{"content shorter than viewport", 800, 300, 0, 2.5, true},
		{"default threshold", 800, 10000, 7200, 0, true},
		{"custom threshold", 800, 10000, 6800, 3, true},
		{"custom threshold not reached", 800, 10000, 6700, 3, false},
	}
	for _, tc := range cases {
		if got := app.ShouldLoadNextPage(tc.viewport, tc.content, tc.offsetY, tc.threshold); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
