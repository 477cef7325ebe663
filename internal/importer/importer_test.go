package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Tomich37/foodplanner/internal/units"
)

const jsonLDPage = `
<html>
<head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@graph": [
    {"@type": "WebSite", "name": "Рецепты"},
    {
      "@type": "Recipe",
      "name": "Блины на молоке",
      "recipeIngredient": ["Молоко — 500 мл", "Мука — 300 г", "Яйца — 2 шт.", "Соль — по вкусу"],
      "recipeInstructions": [
        {"@type": "HowToStep", "text": "Смешать молоко с яйцами."},
        {"@type": "HowToStep", "text": "Добавить муку и жарить."}
      ]
    }
  ]
}
</script>
</head>
<body><h1>Блины на молоке</h1></body>
</html>`

const microdataPage = `
<html>
<body>
<div itemscope itemtype="https://schema.org/Recipe">
  <h1 itemprop="name">Омлет</h1>
  <li itemprop="recipeIngredient">Яйца — 3 шт.</li>
  <li itemprop="recipeIngredient">Молоко — 50 мл</li>
  <div itemprop="recipeInstructions">
    <ul>
      <li>Взбить яйца с молоком.</li>
      <li>Вылить на сковороду.</li>
    </ul>
  </div>
</div>
</body>
</html>`

func TestParseJSONLD(t *testing.T) {
	im := New(units.NewConverter())
	rec, err := im.Parse(strings.NewReader(jsonLDPage), "http://test.local/bliny")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if rec.Title != "Блины на молоке" {
		t.Errorf("Expected title 'Блины на молоке', got %q", rec.Title)
	}
	if len(rec.Ingredients) != 4 {
		t.Fatalf("Expected 4 ingredients, got %d: %v", len(rec.Ingredients), rec.Ingredients)
	}
	milk := rec.Ingredients[0]
	if milk.Name != "молоко" || milk.Amount != 500 || milk.Unit != "ml" {
		t.Errorf("Unexpected milk line: %+v", milk)
	}
	eggs := rec.Ingredients[2]
	if eggs.Name != "яйца" || eggs.Amount != 2 || eggs.Unit != "pcs" {
		t.Errorf("Unexpected eggs line: %+v", eggs)
	}
	salt := rec.Ingredients[3]
	if salt.Name != "соль" || salt.Unit != "taste" {
		t.Errorf("Unexpected salt line: %+v", salt)
	}
	if len(rec.Steps) != 2 || rec.Steps[0].Position != 1 || rec.Steps[1].Position != 2 {
		t.Errorf("Unexpected steps: %+v", rec.Steps)
	}
	if !strings.Contains(rec.Description, "http://test.local/bliny") {
		t.Errorf("Expected source URL in description, got %q", rec.Description)
	}
}

func TestParseMicrodataFallback(t *testing.T) {
	im := New(units.NewConverter())
	rec, err := im.Parse(strings.NewReader(microdataPage), "http://test.local/omelet")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if rec.Title != "Омлет" {
		t.Errorf("Expected title 'Омлет', got %q", rec.Title)
	}
	if len(rec.Ingredients) != 2 {
		t.Fatalf("Expected 2 ingredients, got %v", rec.Ingredients)
	}
	if len(rec.Steps) != 2 {
		t.Fatalf("Expected 2 steps, got %v", rec.Steps)
	}
}

func TestParseNoRecipeMarkup(t *testing.T) {
	im := New(units.NewConverter())
	_, err := im.Parse(strings.NewReader("<html><body><p>Просто статья.</p></body></html>"), "http://test.local/article")
	if err == nil {
		t.Fatal("Expected an error for a page without recipe markup")
	}
}

func TestImportURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jsonLDPage))
	}))
	defer ts.Close()

	im := New(units.NewConverter())
	rec, err := im.ImportURL(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("ImportURL failed: %v", err)
	}
	if rec.Title != "Блины на молоке" {
		t.Errorf("Expected extracted title, got %q", rec.Title)
	}

	t.Run("NonOKStatus", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer failing.Close()
		if _, err := im.ImportURL(context.Background(), failing.URL); err == nil {
			t.Error("Expected an error on 404")
		}
	})
}

func TestParseIngredientLine(t *testing.T) {
	im := New(units.NewConverter())
	cases := []struct {
		line   string
		name   string
		amount float64
		unit   string
	}{
		{"Молоко — 500 мл", "молоко", 500, "ml"},
		{"Мука 300 г", "мука", 300, "g"},
		{"Картофель — 1 кг", "картофель", 1000, "g"},
		{"Вода — 1 л", "вода", 1000, "ml"},
		{"Яйца — 2 шт.", "яйца", 2, "pcs"},
		{"Сахар — 2 ст. л.", "сахар", 2, "tbsp"},
		{"Сода — 1/2 ч. л.", "сода", 0.5, "tsp"},
		{"Соль по вкусу", "соль", 0, "taste"},
		{"Зелень", "зелень", 0, "g"},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			ing, ok := im.ParseIngredientLine(tc.line)
			if !ok {
				t.Fatalf("Expected line to parse")
			}
			if ing.Name != tc.name || ing.Amount != tc.amount || ing.Unit != tc.unit {
				t.Errorf("Expected (%q, %v, %q), got %+v", tc.name, tc.amount, tc.unit, ing)
			}
		})
	}

	t.Run("EmptyLine", func(t *testing.T) {
		if _, ok := im.ParseIngredientLine("   "); ok {
			t.Error("Expected blank line to be rejected")
		}
	})
	t.Run("NumberOnly", func(t *testing.T) {
		if _, ok := im.ParseIngredientLine("500 г"); ok {
			t.Error("Expected nameless line to be rejected")
		}
	})
}
