package bot

import (
	"testing"
	"time"
)

func TestParseLength(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"10m", 10 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"3d", 72 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"1.5d", 36 * time.Hour},
		{" 10M ", 10 * time.Minute},
	}

	for _, tc := range cases {
		got, err := parseLength(tc.in)
		if err != nil {
			t.Fatalf("parseLength(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseLength(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseLengthRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "forever", "-10m", "0s", "d", "10x"} {
		if _, err := parseLength(in); err == nil {
			t.Fatalf("parseLength(%q): expected error", in)
		}
	}
}

func TestParseMentionArg(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"123456789", 123456789},
		{"<@123456789>", 123456789},
		{"<@!123456789>", 123456789},
		{"<@&555>", 555},
		{"<#777>", 777},
	}

	for _, tc := range cases {
		got, err := parseMentionArg(tc.in)
		if err != nil {
			t.Fatalf("parseMentionArg(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseMentionArg(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}

	if _, err := parseMentionArg("not-an-id"); err == nil {
		t.Fatal("expected error for non-numeric argument")
	}
}
