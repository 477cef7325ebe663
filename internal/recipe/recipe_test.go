package recipe

import (
	"reflect"
	"testing"
)

func TestHasTag(t *testing.T) {
	rec := Recipe{Tags: []string{"breakfast", "pp"}}
	if !rec.HasTag("breakfast") {
		t.Error("Expected breakfast tag")
	}
	if rec.HasTag("dinner") {
		t.Error("Did not expect dinner tag")
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"lunch", "bogus", "lunch", "dessert", ""})
	want := []string{"lunch", "dessert"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if NormalizeTags(nil) != nil {
		t.Error("Expected nil for empty input")
	}
}

func TestTagLabels(t *testing.T) {
	labels := TagLabels()
	if labels["breakfast"] != "Завтрак" {
		t.Errorf("Unexpected breakfast label: %q", labels["breakfast"])
	}
	if len(labels) != len(Tags) {
		t.Errorf("Expected %d labels, got %d", len(Tags), len(labels))
	}
}

func TestCoverResolver(t *testing.T) {
	resolver := NewCoverResolver()

	t.Run("UploadedImageWins", func(t *testing.T) {
		rec := Recipe{ImagePath: "/uploads/1.jpg", Tags: []string{"breakfast"}}
		if got := resolver.Resolve(rec); got != "/uploads/1.jpg" {
			t.Errorf("Expected uploaded image, got %q", got)
		}
	})

	t.Run("TagPlaceholder", func(t *testing.T) {
		rec := Recipe{Tags: []string{"pp", "dinner"}}
		if got := resolver.Resolve(rec); got != "/static/templates/ujin.jpg" {
			t.Errorf("Expected dinner placeholder, got %q", got)
		}
	})

	t.Run("Default", func(t *testing.T) {
		if got := resolver.Resolve(Recipe{}); got != "/static/templates/obed.jpg" {
			t.Errorf("Expected default placeholder, got %q", got)
		}
	})
}
