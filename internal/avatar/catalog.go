package avatar

import (
	"path"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MaleModel   = "male_avatar.glb"
	FemaleModel = "female_avatar.glb"
)

// Catalog is the fixed, ordered set of avatar models a speaker may be
// assigned. The zero value is empty.
type Catalog struct {
	models []string
}

// NewCatalog builds a catalog from model identifiers, dropping blanks and
// duplicates while keeping first-seen order.
func NewCatalog(models ...string) Catalog {
	out := make([]string, 0, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" || slices.Contains(out, m) {
			continue
		}
		out = append(out, m)
	}
	return Catalog{models: out}
}

// DefaultCatalog returns the two stock avatars the service ships with.
func DefaultCatalog() Catalog {
	return NewCatalog(MaleModel, FemaleModel)
}

// Models returns a copy of the catalog entries in order.
func (c Catalog) Models() []string {
	return slices.Clone(c.models)
}

// Contains reports whether model is selectable.
func (c Catalog) Contains(model string) bool {
	return slices.Contains(c.models, model)
}

func (c Catalog) Len() int { return len(c.models) }

// DisplayName derives a human label from a model identifier:
// "female_avatar.glb" becomes "Female Avatar".
func DisplayName(model string) string {
	base := strings.TrimSuffix(model, path.Ext(model))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return model
	}
	return cases.Title(language.Und).String(base)
}
