// Package util is a set of utility variables or methods
package util

import (
	"path/filepath"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var SupportedExt = mapset.NewSet(
	".jpeg", ".jpg", ".JPEG", ".JPG",
	".png", ".PNG",
	".webp", ".WEBP",
)

// CardCost extracts the elixir cost from a card image filename. The cost is
// the leading underscore-delimited token, e.g. "3_knight.png" -> 3. Returns 0
// when the token is missing or not numeric.
func CardCost(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	token, _, _ := strings.Cut(base, "_")
	cost, err := strconv.Atoi(token)
	if err != nil {
		return 0
	}
	return cost
}

// CardDisplayName strips the cost prefix and extension for UI labels,
// e.g. "3_knight.png" -> "knight".
func CardDisplayName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	token, rest, found := strings.Cut(base, "_")
	if !found {
		return base
	}
	if _, err := strconv.Atoi(token); err != nil {
		return base
	}
	return rest
}
