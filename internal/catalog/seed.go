package catalog

import (
	_ "embed"
	"fmt"

	"ms-booking/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the initial catalog content loaded at startup.
type Seed struct {
	Categories []models.Category `yaml:"categories"`
	Services   []models.Service  `yaml:"services"`
	Coupons    []models.Coupon   `yaml:"coupons"`
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	return &seed, nil
}

// DefaultSeed returns the embedded regional catalog.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(defaultSeed)
}
