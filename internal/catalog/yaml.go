package catalog

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

type fileIngredient struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	BotanicalName string   `yaml:"botanical_name"`
	Description   string   `yaml:"description"`
	RawPrice      float64  `yaml:"raw_price"`
	PowderPrice   float64  `yaml:"powder_price"`
	Benefits      []string `yaml:"benefits"`
	Doshas        []string `yaml:"doshas"`
	Forms         []string `yaml:"forms"`
	Image         string   `yaml:"image"`
}

type fileRecipe struct {
	ID          string             `yaml:"id"`
	Title       string             `yaml:"title"`
	Description string             `yaml:"description"`
	Ratios      map[string]float64 `yaml:"ratios"`
}

type fileTier struct {
	Label      string  `yaml:"label"`
	Multiplier float64 `yaml:"multiplier"`
	QuoteOnly  bool    `yaml:"quote_only"`
}

type file struct {
	Tiers       []fileTier       `yaml:"tiers"`
	Ingredients []fileIngredient `yaml:"ingredients"`
	Recipes     []fileRecipe     `yaml:"recipes"`
}

// Parse decodes a YAML catalog document and validates it.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}

	ingredients := make([]Ingredient, 0, len(f.Ingredients))
	for _, fi := range f.Ingredients {
		ing := Ingredient{
			ID:            fi.ID,
			Name:          fi.Name,
			BotanicalName: fi.BotanicalName,
			Description:   fi.Description,
			RawPrice:      fi.RawPrice,
			PowderPrice:   fi.PowderPrice,
			Benefits:      fi.Benefits,
			Image:         fi.Image,
		}
		for _, d := range fi.Doshas {
			ing.Doshas = append(ing.Doshas, Dosha(d))
		}
		for _, form := range fi.Forms {
			ing.Forms = append(ing.Forms, Form(form))
		}
		ingredients = append(ingredients, ing)
	}

	recipes := make([]Recipe, 0, len(f.Recipes))
	for _, fr := range f.Recipes {
		recipes = append(recipes, Recipe{
			ID:          fr.ID,
			Title:       fr.Title,
			Description: fr.Description,
			Ratios:      fr.Ratios,
		})
	}

	tiers := make([]Tier, 0, len(f.Tiers))
	for _, ft := range f.Tiers {
		tiers = append(tiers, Tier{Label: ft.Label, Multiplier: ft.Multiplier, QuoteOnly: ft.QuoteOnly})
	}

	c, err := New(ingredients, recipes, tiers)
	if err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return c, nil
}
