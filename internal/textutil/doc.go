// Package textutil sanitizes names that arrive from the network before they
// touch the local filesystem.
package textutil
