package catalog

import (
	"strconv"

	"github.com/gosimple/slug"
)

// Slugify turns a title into a URL slug ("Crème Brûlée" -> "creme-brulee")
func Slugify(text string) string {
	return slug.Make(text)
}

// UniqueSlug derives a slug from text and appends -2, -3, ... until taken
// reports it free. An empty derivation falls back to fallback.
func UniqueSlug(text, fallback string, taken func(string) bool) string {
	base := Slugify(text)
	if base == "" {
		base = fallback
	}
	candidate := base
	for i := 2; taken(candidate); i++ {
		candidate = base + "-" + strconv.Itoa(i)
	}
	return candidate
}

// ValidSlug reports whether s is already in slug form
func ValidSlug(s string) bool {
	return s != "" && slug.IsSlug(s)
}
