// Package conv holds checked integer conversions for values that cross a
// width boundary: block IDs, header capacities and archived frame lengths.
// Every failure wraps ErrOverflow.
package conv
