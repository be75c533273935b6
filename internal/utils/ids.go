// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// ParseID converts a path segment into a positive record identifier.
// It reports false for empty, signed, zero or non-numeric input.
//
// Example:
//
//	id, ok := utils.ParseID("42") // 42, true
//	_, ok = utils.ParseID("0")    // 0, false
//	_, ok = utils.ParseID("x")    // 0, false
func ParseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
