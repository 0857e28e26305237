package models

// CatalogSeed is the operator-maintained file of system listings, system
// purchase orders and currency items. Prices are decimal strings so the file
// never goes through floating point.
type CatalogSeed struct {
	Currency []SeedCurrency `yaml:"currency"`
	Listings []SeedListing  `yaml:"listings"`
	Orders   []SeedOrder    `yaml:"orders"`
}

type SeedCurrency struct {
	Item    string `yaml:"item"`
	Variant string `yaml:"variant"`
	Value   string `yaml:"value"`
}

// SeedListing is a system listing. A missing quantity means unlimited.
type SeedListing struct {
	Item       string `yaml:"item"`
	Variant    string `yaml:"variant"`
	Price      string `yaml:"price"`
	Quantity   *int64 `yaml:"quantity"`
	DailyLimit *int64 `yaml:"daily_limit"`
}

type SeedOrder struct {
	Item       string `yaml:"item"`
	Variant    string `yaml:"variant"`
	Price      string `yaml:"price"`
	DailyLimit *int64 `yaml:"daily_limit"`
}
