// Package textutil turns user-supplied corpus names into safe database file
// names.
package textutil
