// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Café au Lait", "cafe-au-lait"},
		{"Multiple---Hyphens", "multiple-hyphens"},
		{"Special!@#Characters", "specialcharacters"},
		{"UPPER case", "upper-case"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"hello-world", true},
		{"hello", true},
		{"h2o", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"double--hyphen", false},
		{"Upper", false},
		{"with space", false},
	}
	for _, tt := range tests {
		if got := IsValidSlug(tt.in); got != tt.want {
			t.Errorf("IsValidSlug(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
