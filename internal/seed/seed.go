// Package seed loads an exercise catalog from YAML into the catalog service.
// Applying the same file twice creates nothing new.
package seed

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/service"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Categories  []Category   `yaml:"categories"`
	InjuryTypes []InjuryType `yaml:"injury_types"`
}

type Category struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Variants    []Variant `yaml:"variants"`
}

type Variant struct {
	Name       string `yaml:"name"`
	Difficulty string `yaml:"difficulty"`
	Sets       int    `yaml:"sets"`
	Reps       int    `yaml:"reps"`
	Hold       int    `yaml:"hold"`
	Notes      string `yaml:"notes"`
	VideoLink  string `yaml:"video_link"`
}

// InjuryType lists its treatment by variant name.
type InjuryType struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Treatment   []string `yaml:"treatment"`
}

// Summary counts what Apply created.
type Summary struct {
	Categories  int
	Variants    int
	InjuryTypes int
}

// Load decodes and checks a catalog file.
func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	names := map[string]bool{}
	for _, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return errors.New("category without name")
		}
		for _, v := range cat.Variants {
			if _, ok := domain.ParseDifficulty(v.Difficulty); !ok {
				return fmt.Errorf("variant %q: unknown difficulty %q", v.Name, v.Difficulty)
			}
			if names[v.Name] {
				return fmt.Errorf("variant %q declared twice", v.Name)
			}
			names[v.Name] = true
		}
	}
	for _, it := range c.InjuryTypes {
		for _, name := range it.Treatment {
			if !names[name] {
				return fmt.Errorf("injury type %q: treatment references unknown variant %q", it.Name, name)
			}
		}
	}
	return nil
}

// Apply creates the missing categories, variants and injury types.
func Apply(ctx context.Context, catalog service.CatalogService, c *Catalog, log *logger.Logger) (Summary, error) {
	var sum Summary

	existing, err := catalog.ListCategories(ctx)
	if err != nil {
		return sum, err
	}
	categoryIDs := make(map[string]primitive.ObjectID, len(existing))
	for _, cat := range existing {
		categoryIDs[cat.Name] = cat.ID
	}

	variantIDs := map[string]primitive.ObjectID{}
	for _, cat := range c.Categories {
		id, ok := categoryIDs[strings.TrimSpace(cat.Name)]
		if !ok {
			created, err := catalog.CreateCategory(ctx, cat.Name, cat.Description)
			if err != nil {
				return sum, fmt.Errorf("category %q: %w", cat.Name, err)
			}
			id = created.ID
			sum.Categories++
		}

		present, err := catalog.ListVariants(ctx, &id)
		if err != nil {
			return sum, err
		}
		byDifficulty := make(map[domain.Difficulty]domain.ExerciseVariant, len(present))
		for _, v := range present {
			byDifficulty[v.Difficulty] = v
		}

		for _, v := range cat.Variants {
			difficulty, _ := domain.ParseDifficulty(v.Difficulty)
			if have, ok := byDifficulty[difficulty]; ok {
				if have.Name != v.Name {
					log.Warn("catalog level already taken, keeping existing variant",
						"category", cat.Name, "difficulty", difficulty, "existing", have.Name, "wanted", v.Name)
				}
				variantIDs[v.Name] = have.ID
				continue
			}
			created, err := catalog.CreateVariant(ctx, service.VariantInput{
				CategoryID: id,
				Name:       v.Name,
				Difficulty: difficulty,
				Sets:       v.Sets,
				Reps:       v.Reps,
				Hold:       v.Hold,
				Notes:      v.Notes,
				VideoLink:  v.VideoLink,
			})
			if err != nil {
				return sum, fmt.Errorf("variant %q: %w", v.Name, err)
			}
			variantIDs[v.Name] = created.ID
			sum.Variants++
		}
	}

	injuries, err := catalog.ListInjuryTypes(ctx)
	if err != nil {
		return sum, err
	}
	knownInjuries := make(map[string]bool, len(injuries))
	for _, it := range injuries {
		knownInjuries[it.Name] = true
	}
	for _, it := range c.InjuryTypes {
		if knownInjuries[strings.TrimSpace(it.Name)] {
			continue
		}
		treatment := make([]primitive.ObjectID, 0, len(it.Treatment))
		for _, name := range it.Treatment {
			treatment = append(treatment, variantIDs[name])
		}
		if _, err := catalog.CreateInjuryType(ctx, it.Name, it.Description, treatment); err != nil {
			return sum, fmt.Errorf("injury type %q: %w", it.Name, err)
		}
		sum.InjuryTypes++
	}

	log.Info("catalog seeded", "categories", sum.Categories, "variants", sum.Variants, "injury_types", sum.InjuryTypes)
	return sum, nil
}
