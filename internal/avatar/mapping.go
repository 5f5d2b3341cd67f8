package avatar

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"podvision/internal/services"
)

// Mapping assigns an avatar model to each speaker label. The key set is open.
type Mapping map[string]string

// DefaultMapping returns the mapping a new submission starts from.
func DefaultMapping() Mapping {
	return Mapping{
		"SPEAKER_00": MaleModel,
		"SPEAKER_01": FemaleModel,
	}
}

// Clone returns an independent copy; a nil mapping clones to an empty one.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	maps.Copy(out, m)
	return out
}

// Labels returns the speaker labels in sorted order.
func (m Mapping) Labels() []string {
	return slices.Sorted(maps.Keys(m))
}

// Validate checks that every label is non-empty and maps to a catalog model.
func (m Mapping) Validate(catalog Catalog) error {
	for _, label := range m.Labels() {
		if strings.TrimSpace(label) == "" {
			return services.Wrap(services.ErrValidation, "speaker mapping", "empty speaker label", nil)
		}
		model := m[label]
		if !catalog.Contains(model) {
			return services.Wrap(services.ErrValidation, "speaker mapping",
				fmt.Sprintf("%s: unknown avatar model %q", label, model), nil)
		}
	}
	return nil
}

// Serialize renders the mapping as the JSON object sent in the
// speaker_mapping form field. Keys are emitted in sorted order.
func (m Mapping) Serialize() (string, error) {
	if m == nil {
		m = Mapping{}
	}
	data, err := json.Marshal(map[string]string(m))
	if err != nil {
		return "", fmt.Errorf("encode speaker mapping: %w", err)
	}
	return string(data), nil
}

// ParseAssignment parses a LABEL=MODEL pair as given on the command line.
func ParseAssignment(value string) (string, string, error) {
	label, model, ok := strings.Cut(value, "=")
	label = strings.TrimSpace(label)
	model = strings.TrimSpace(model)
	if !ok || label == "" || model == "" {
		return "", "", services.Wrap(services.ErrValidation, "speaker assignment",
			fmt.Sprintf("expected LABEL=MODEL, got %q", value), nil)
	}
	return label, model, nil
}
