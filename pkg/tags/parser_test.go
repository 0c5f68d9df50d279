package tags

import (
	"testing"
)

// TestParse tests tag extraction from documentation text
func TestParse(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []Tag
	}{
		{
			name: "empty doc",
			doc:  "",
			want: nil,
		},
		{
			name: "no tags",
			doc:  "divides a by b and returns the quotient",
			want: nil,
		},
		{
			name: "single mark",
			doc:  "#level:WARN",
			want: []Tag{{Key: "level", Value: "WARN"}},
		},
		{
			name: "mark and toggle",
			doc:  "#level:WARN #gpu:false",
			want: []Tag{{Key: "level", Value: "WARN"}, {Key: "gpu", Value: "false"}},
		},
		{
			name: "tags embedded in prose",
			doc:  "computes totals.\n\n#tag:billing runs nightly #memory:false end",
			want: []Tag{{Key: "tag", Value: "billing"}, {Key: "memory", Value: "false"}},
		},
		{
			name: "value containing colons",
			doc:  "#message:a:b:c",
			want: []Tag{{Key: "message", Value: "a:b:c"}},
		},
		{
			name: "unrecognized keys ignored",
			doc:  "#retries:3 #level:DEBUG #owner:core",
			want: []Tag{{Key: "level", Value: "DEBUG"}},
		},
		{
			name: "malformed tokens skipped",
			doc:  "#nocolon #level #:orphan #level:INFO",
			want: []Tag{{Key: "level", Value: "INFO"}},
		},
		{
			name: "error level supplement",
			doc:  "#error_level:CRITICAL",
			want: []Tag{{Key: "error_level", Value: "CRITICAL"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.doc)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d tags, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tag %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

// TestOverrides tests flattening with last-wins semantics
func TestOverrides(t *testing.T) {
	parsed := Parse("#level:WARN #level:ERROR #thread:false")

	m := Overrides(parsed)
	if len(m) != 2 {
		t.Fatalf("expected 2 overrides, got %d", len(m))
	}
	if m["level"] != "ERROR" {
		t.Errorf("expected later level to win, got %s", m["level"])
	}
	if m["thread"] != "false" {
		t.Errorf("expected thread false, got %s", m["thread"])
	}

	if Overrides(nil) != nil {
		t.Error("expected nil map for no tags")
	}
}

// TestParseOverrides tests the combined parse helper
func TestParseOverrides(t *testing.T) {
	m := ParseOverrides("#tag:checkout #cpu:false")
	if m["tag"] != "checkout" || m["cpu"] != "false" {
		t.Errorf("unexpected overrides: %v", m)
	}
}

// TestIsFalse tests the permissive toggle literal
func TestIsFalse(t *testing.T) {
	for _, v := range []string{"false", "False", "FALSE", "fAlSe"} {
		if !IsFalse(v) {
			t.Errorf("expected %q to be false", v)
		}
	}
	for _, v := range []string{"true", "0", "no", "off", "falsey", ""} {
		if IsFalse(v) {
			t.Errorf("expected %q to be treated as enabled", v)
		}
	}
}
