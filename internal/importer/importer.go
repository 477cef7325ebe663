// Package importer pulls recipes from external web pages. It understands
// schema.org Recipe markup (JSON-LD first, microdata as a fallback) and
// turns free-text ingredient lines into structured (name, amount, unit)
// entries.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Tomich37/foodplanner/internal/recipe"
	"github.com/Tomich37/foodplanner/internal/units"
)

// Importer fetches and extracts recipes from URLs.
type Importer struct {
	client *http.Client
	conv   *units.Converter
}

// New creates an Importer with a bounded-timeout HTTP client.
func New(conv *units.Converter) *Importer {
	return &Importer{
		client: &http.Client{Timeout: 15 * time.Second},
		conv:   conv,
	}
}

// ImportURL fetches the URL and extracts a recipe from its markup. The
// returned recipe is not persisted; the caller owns saving and tagging.
func (im *Importer) ImportURL(ctx context.Context, url string) (*recipe.Recipe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return im.Parse(resp.Body, url)
}

// Parse extracts a recipe from an HTML document.
func (im *Importer) Parse(r io.Reader, sourceURL string) (*recipe.Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	extracted := extractJSONLD(doc)
	if extracted == nil {
		extracted = extractMicrodata(doc)
	}
	if extracted == nil || extracted.Title == "" {
		return nil, fmt.Errorf("no recipe markup found at %s", sourceURL)
	}

	rec := &recipe.Recipe{
		Title:       extracted.Title,
		Description: fmt.Sprintf("Импортировано: %s", sourceURL),
	}
	for _, line := range extracted.Ingredients {
		if ing, ok := im.ParseIngredientLine(line); ok {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}
	for i, text := range extracted.Steps {
		rec.Steps = append(rec.Steps, recipe.Step{Position: i + 1, Instruction: text})
	}
	if len(rec.Ingredients) == 0 && len(rec.Steps) == 0 {
		return nil, fmt.Errorf("recipe markup at %s has no ingredients or steps", sourceURL)
	}
	return rec, nil
}

// extractedRecipe is the intermediate shape shared by both markup extractors.
type extractedRecipe struct {
	Title       string
	Ingredients []string
	Steps       []string
}

func extractJSONLD(doc *goquery.Document) *extractedRecipe {
	var found *extractedRecipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload interface{}
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		if node := findRecipeNode(payload); node != nil {
			found = recipeFromNode(node)
			return false
		}
		return true
	})
	return found
}

// findRecipeNode walks a JSON-LD payload (single object, top-level array or
// @graph) looking for a node typed as a schema.org Recipe.
func findRecipeNode(payload interface{}) map[string]interface{} {
	switch value := payload.(type) {
	case map[string]interface{}:
		if isRecipeType(value["@type"]) {
			return value
		}
		if graph, ok := value["@graph"].([]interface{}); ok {
			return findRecipeNode(graph)
		}
	case []interface{}:
		for _, item := range value {
			if node := findRecipeNode(item); node != nil {
				return node
			}
		}
	}
	return nil
}

func isRecipeType(value interface{}) bool {
	switch typed := value.(type) {
	case string:
		return typed == "Recipe"
	case []interface{}:
		for _, item := range typed {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func recipeFromNode(node map[string]interface{}) *extractedRecipe {
	result := &extractedRecipe{}
	if name, ok := node["name"].(string); ok {
		result.Title = strings.TrimSpace(name)
	}
	result.Ingredients = stringList(node["recipeIngredient"])
	if len(result.Ingredients) == 0 {
		result.Ingredients = stringList(node["ingredients"])
	}
	result.Steps = instructionList(node["recipeInstructions"])
	return result
}

func stringList(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return nil
	}
	var result []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				result = append(result, s)
			}
		}
	}
	return result
}

// instructionList accepts the two common shapes: a plain string list and a
// list of HowToStep objects with a "text" field. HowToSection nesting is
// flattened one level.
func instructionList(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		if s, isString := value.(string); isString && strings.TrimSpace(s) != "" {
			return []string{strings.TrimSpace(s)}
		}
		return nil
	}
	var result []string
	for _, item := range items {
		switch step := item.(type) {
		case string:
			if trimmed := strings.TrimSpace(step); trimmed != "" {
				result = append(result, trimmed)
			}
		case map[string]interface{}:
			if text, ok := step["text"].(string); ok && strings.TrimSpace(text) != "" {
				result = append(result, strings.TrimSpace(text))
				continue
			}
			if nested, ok := step["itemListElement"]; ok {
				result = append(result, instructionList(nested)...)
			}
		}
	}
	return result
}

func extractMicrodata(doc *goquery.Document) *extractedRecipe {
	scope := doc.Find(`[itemtype*="schema.org/Recipe"]`).First()
	if scope.Length() == 0 {
		return nil
	}
	result := &extractedRecipe{
		Title: strings.TrimSpace(scope.Find(`[itemprop="name"]`).First().Text()),
	}
	scope.Find(`[itemprop="recipeIngredient"], [itemprop="ingredients"]`).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			result.Ingredients = append(result.Ingredients, text)
		}
	})
	scope.Find(`[itemprop="recipeInstructions"]`).Each(func(_ int, s *goquery.Selection) {
		if items := s.Find("li"); items.Length() > 0 {
			items.Each(func(_ int, li *goquery.Selection) {
				if text := strings.TrimSpace(li.Text()); text != "" {
					result.Steps = append(result.Steps, text)
				}
			})
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			result.Steps = append(result.Steps, text)
		}
	})
	return result
}
