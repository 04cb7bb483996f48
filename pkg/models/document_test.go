package models

import "testing"

func TestContentHash(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"same body", "hello world", "hello world", true},
		{"different body", "hello world", "hello there", false},
		{"whitespace matters", "hello", "hello ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha, hb := ContentHash(tt.a), ContentHash(tt.b)
			if len(ha) != 64 {
				t.Errorf("hash length = %d, want 64", len(ha))
			}
			if (ha == hb) != tt.equal {
				t.Errorf("ContentHash(%q) == ContentHash(%q) is %v, want %v", tt.a, tt.b, ha == hb, tt.equal)
			}
		})
	}
}

func TestSourceKind_IsSocial(t *testing.T) {
	tests := []struct {
		kind SourceKind
		want bool
	}{
		{SourceKindTwitter, true},
		{SourceKindReddit, false},
		{SourceKindWeb, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.IsSocial(); got != tt.want {
				t.Errorf("IsSocial() = %v, want %v", got, tt.want)
			}
		})
	}
}
