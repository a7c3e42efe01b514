package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// catalogSeedDoc is the on-disk shape of animals.yaml.
type catalogSeedDoc struct {
	Animals []Animal `yaml:"animals"`
}

// ParseCatalogSeed decodes and validates a catalog seed document. Every
// entry needs an id, name, species, a known rarity, and a scan token that
// is unique within the document.
func ParseCatalogSeed(data []byte) ([]Animal, error) {
	if len(data) == 0 {
		return nil, errors.New("catalog seed is empty")
	}

	var doc catalogSeedDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	if len(doc.Animals) == 0 {
		return nil, errors.New("catalog seed has no animals")
	}

	seenIDs := map[string]bool{}
	seenTokens := map[string]bool{}
	for i := range doc.Animals {
		a := &doc.Animals[i]
		a.ID = strings.TrimSpace(a.ID)
		a.Token = strings.TrimSpace(a.Token)
		a.Rarity = strings.ToLower(strings.TrimSpace(a.Rarity))
		if a.Rarity == "" {
			a.Rarity = RarityCommon
		}

		switch {
		case a.ID == "":
			return nil, fmt.Errorf("animal #%d: id is required", i+1)
		case seenIDs[a.ID]:
			return nil, fmt.Errorf("animal %s: duplicate id", a.ID)
		case strings.TrimSpace(a.Name) == "":
			return nil, fmt.Errorf("animal %s: name is required", a.ID)
		case strings.TrimSpace(a.Species) == "":
			return nil, fmt.Errorf("animal %s: species is required", a.ID)
		case a.Rarity != RarityCommon && a.Rarity != RarityRare && a.Rarity != RarityLegendary:
			return nil, fmt.Errorf("animal %s: unknown rarity %q", a.ID, a.Rarity)
		case a.Token == "":
			return nil, fmt.Errorf("animal %s: scan token is required", a.ID)
		case seenTokens[a.Token]:
			return nil, fmt.Errorf("animal %s: duplicate scan token %q", a.ID, a.Token)
		}
		seenIDs[a.ID] = true
		seenTokens[a.Token] = true
	}

	return doc.Animals, nil
}

// ImportCatalog loads the seed file and upserts every animal, returning the
// number of rows written. Existing rows with matching ids are refreshed,
// which makes re-running the import at every startup safe.
func ImportCatalog(ctx context.Context, repo CatalogRepository, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog seed %s: %w", path, err)
	}

	animals, err := ParseCatalogSeed(data)
	if err != nil {
		return 0, err
	}

	for _, a := range animals {
		if err := repo.Upsert(ctx, a); err != nil {
			return 0, err
		}
	}
	return len(animals), nil
}
