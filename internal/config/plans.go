package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PlanTier defines the creation allowance granted by one plan type.
type PlanTier struct {
	Urls         int `yaml:"urls"`
	QRCodes      int `yaml:"qr_codes"`
	DurationDays int `yaml:"duration_days"`
}

// Duration returns the plan period as a time.Duration.
func (t PlanTier) Duration() time.Duration {
	return time.Duration(t.DurationDays) * 24 * time.Hour
}

// PlanTiers maps plan type names to their allowances.
type PlanTiers map[string]PlanTier

// DefaultPlanTiers are the built-in allowances, matching the free tier of
// 10 short URLs and 5 QR codes over 30 days.
func DefaultPlanTiers() PlanTiers {
	return PlanTiers{
		"free":    {Urls: 10, QRCodes: 5, DurationDays: 30},
		"premium": {Urls: 100, QRCodes: 50, DurationDays: 30},
		"pro":     {Urls: 1000, QRCodes: 500, DurationDays: 30},
	}
}

// planTiersFile is the YAML overlay structure.
type planTiersFile struct {
	Plans PlanTiers `yaml:"plans"`
}

// LoadPlanTiers loads plan allowances, applying the YAML overlay at path on
// top of the defaults. A missing file is not an error.
func LoadPlanTiers(path string) (PlanTiers, error) {
	tiers := DefaultPlanTiers()

	if path == "" {
		return tiers, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return tiers, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plans file: %w", err)
	}

	var file planTiersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plans file: %w", err)
	}

	for name, tier := range file.Plans {
		if tier.DurationDays <= 0 {
			return nil, fmt.Errorf("plan %q: duration_days must be positive", name)
		}
		tiers[name] = tier
	}

	return tiers, nil
}

// Free returns the free-tier allowance, used when provisioning new accounts
// and when an expired plan rolls back.
func (p PlanTiers) Free() PlanTier {
	if tier, ok := p["free"]; ok {
		return tier
	}
	return DefaultPlanTiers()["free"]
}
