package common

import (
	"fmt"
	"os"
	"path/filepath"

	"server-market-go/internal/models"
	"server-market-go/internal/money"

	"gopkg.in/yaml.v2"
)

// LoadCatalogSeed reads the operator catalog file. Relative paths resolve
// against the working directory.
func LoadCatalogSeed(catalogFile string) (*models.CatalogSeed, error) {
	var catalogPath string
	if filepath.IsAbs(catalogFile) {
		catalogPath = catalogFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		catalogPath = filepath.Join(wd, catalogFile)
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", catalogFile, err)
	}

	seed, err := ParseCatalogSeed(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", catalogFile, err)
	}
	return seed, nil
}

// ParseCatalogSeed decodes and validates a catalog document.
func ParseCatalogSeed(data []byte) (*models.CatalogSeed, error) {
	var seed models.CatalogSeed
	if err := yaml.UnmarshalStrict(data, &seed); err != nil {
		return nil, err
	}

	for i, entry := range seed.Currency {
		if entry.Item == "" {
			return nil, fmt.Errorf("currency at index %d missing item", i)
		}
		if err := positivePrice(entry.Value); err != nil {
			return nil, fmt.Errorf("currency at index %d (%s): %w", i, entry.Item, err)
		}
	}

	for i, entry := range seed.Listings {
		if entry.Item == "" {
			return nil, fmt.Errorf("listing at index %d missing item", i)
		}
		if err := positivePrice(entry.Price); err != nil {
			return nil, fmt.Errorf("listing at index %d (%s): %w", i, entry.Item, err)
		}
		if entry.Quantity != nil && *entry.Quantity < 0 {
			return nil, fmt.Errorf("listing at index %d (%s): quantity must not be negative", i, entry.Item)
		}
		if entry.DailyLimit != nil && *entry.DailyLimit <= 0 {
			return nil, fmt.Errorf("listing at index %d (%s): daily_limit must be positive", i, entry.Item)
		}
	}

	for i, entry := range seed.Orders {
		if entry.Item == "" {
			return nil, fmt.Errorf("order at index %d missing item", i)
		}
		if err := positivePrice(entry.Price); err != nil {
			return nil, fmt.Errorf("order at index %d (%s): %w", i, entry.Item, err)
		}
		if entry.DailyLimit != nil && *entry.DailyLimit <= 0 {
			return nil, fmt.Errorf("order at index %d (%s): daily_limit must be positive", i, entry.Item)
		}
	}

	return &seed, nil
}

func positivePrice(value string) error {
	minor, err := money.ParseMinor(value)
	if err != nil {
		return err
	}
	if minor <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}
