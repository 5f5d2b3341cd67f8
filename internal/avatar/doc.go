// Package avatar defines the catalog of selectable avatar models and the
// speaker mapping that assigns one model to each diarized speaker label.
package avatar
