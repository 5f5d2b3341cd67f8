package avatar_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"podvision/internal/avatar"
	"podvision/internal/services"
)

func TestNewCatalogDedupesAndKeepsOrder(t *testing.T) {
	c := avatar.NewCatalog(" robot.glb", "male_avatar.glb", "", "robot.glb")
	if diff := cmp.Diff([]string{"robot.glb", "male_avatar.glb"}, c.Models()); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
	if !c.Contains("robot.glb") || c.Contains("female_avatar.glb") {
		t.Fatalf("unexpected membership for %v", c.Models())
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 models, got %d", c.Len())
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"male_avatar.glb":   "Male Avatar",
		"female_avatar.glb": "Female Avatar",
		"news-anchor_v2":    "News Anchor V2",
		".glb":              ".glb",
	}
	for in, want := range cases {
		if got := avatar.DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultMappingValidatesAgainstDefaultCatalog(t *testing.T) {
	m := avatar.DefaultMapping()
	if err := m.Validate(avatar.DefaultCatalog()); err != nil {
		t.Fatalf("default mapping should validate: %v", err)
	}
	if diff := cmp.Diff([]string{"SPEAKER_00", "SPEAKER_01"}, m.Labels()); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateRejectsUnknownModel(t *testing.T) {
	m := avatar.Mapping{"SPEAKER_00": "dragon.glb"}
	err := m.Validate(avatar.DefaultCatalog())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := avatar.DefaultMapping()
	c := m.Clone()
	c["SPEAKER_00"] = avatar.FemaleModel
	if m["SPEAKER_00"] != avatar.MaleModel {
		t.Fatal("mutating the clone changed the original")
	}
	var nilMap avatar.Mapping
	if nilMap.Clone() == nil {
		t.Fatal("expected empty non-nil clone")
	}
}

func TestSerialize(t *testing.T) {
	got, err := avatar.DefaultMapping().Serialize()
	if err != nil {
		t.Fatalf("Serialize returned error: %v", err)
	}
	want := `{"SPEAKER_00":"male_avatar.glb","SPEAKER_01":"female_avatar.glb"}`
	if got != want {
		t.Fatalf("Serialize = %s, want %s", got, want)
	}
	var empty avatar.Mapping
	if got, _ := empty.Serialize(); got != "{}" {
		t.Fatalf("nil mapping should serialize to {}, got %s", got)
	}
}

func TestParseAssignment(t *testing.T) {
	label, model, err := avatar.ParseAssignment(" SPEAKER_02 = female_avatar.glb ")
	if err != nil {
		t.Fatalf("ParseAssignment returned error: %v", err)
	}
	if label != "SPEAKER_02" || model != "female_avatar.glb" {
		t.Fatalf("unexpected parse result %q=%q", label, model)
	}
	for _, bad := range []string{"", "SPEAKER_00", "=male_avatar.glb", "SPEAKER_00="} {
		if _, _, err := avatar.ParseAssignment(bad); !errors.Is(err, services.ErrValidation) {
			t.Errorf("ParseAssignment(%q) expected validation error, got %v", bad, err)
		}
	}
}
