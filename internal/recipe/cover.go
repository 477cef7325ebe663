package recipe

// CoverResolver picks a cover image for a recipe: the uploaded one when
// present, otherwise a per-tag placeholder.
type CoverResolver struct {
	placeholders map[string]string
	defaultPath  string
}

// NewCoverResolver creates a resolver with the standard placeholder set.
func NewCoverResolver() *CoverResolver {
	return &CoverResolver{
		placeholders: map[string]string{
			"breakfast": "/static/templates/zavtrak.jpg",
			"lunch":     "/static/templates/obed.jpg",
			"dinner":    "/static/templates/ujin.jpg",
		},
		defaultPath: "/static/templates/obed.jpg",
	}
}

// Resolve returns the cover path for a recipe.
func (c *CoverResolver) Resolve(rec Recipe) string {
	if rec.ImagePath != "" {
		return rec.ImagePath
	}
	for _, tag := range rec.Tags {
		if path, ok := c.placeholders[tag]; ok {
			return path
		}
	}
	return c.defaultPath
}
