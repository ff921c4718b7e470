package factors

import (
	"context"
	"fmt"
	"strings"

	"leadscore_backend/internal/scoring/domain"
)

// Attribute weights for the ideal-customer-profile match. Industry fit is the
// strongest conversion predictor for B2B-style profiles, budget the weakest
// because declared budgets are unreliable.
const (
	weightIndustry    = 0.30
	weightCompanySize = 0.25
	weightRole        = 0.25
	weightBudget      = 0.20
)

// icpCheck is the outcome of comparing one lead attribute against the profile.
// present is false when either side lacks the attribute; match is 0, 0.5, or 1.
type icpCheck struct {
	present bool
	match   float64
	weight  float64
	label   string
}

// Demographic scores how well a lead's declared attributes match the tenant's
// configured ideal customer profile. Deterministic, no external calls, always
// succeeds; confidence reflects how many attributes were actually available
// to compare.
type Demographic struct{}

func (d *Demographic) Name() domain.Factor { return domain.FactorDemographic }

func (d *Demographic) Score(_ context.Context, lead domain.LeadSnapshot, _ domain.ActivityWindow, settings domain.TenantSettings) (domain.FactorScore, error) {
	profile := settings.Profile

	checks := []icpCheck{
		checkIndustry(lead, profile),
		checkCompanySize(lead, profile),
		checkRole(lead, profile),
		checkBudget(lead, profile),
	}

	presentWeight := 0.0
	matchedWeight := 0.0
	for _, c := range checks {
		if !c.present {
			continue
		}
		presentWeight += c.weight
		matchedWeight += c.match * c.weight
	}

	if presentWeight == 0 {
		return domain.Neutral(domain.FactorDemographic, "no demographic attributes available to compare against the ideal customer profile"), nil
	}

	signals := make([]domain.Signal, 0, len(checks))
	for _, c := range checks {
		if !c.present {
			continue
		}
		direction := domain.SignalPositive
		if c.match < 0.5 {
			direction = domain.SignalNegative
		}
		signals = append(signals, domain.Signal{
			Label:     c.label,
			Weight:    c.weight / presentWeight,
			Direction: direction,
		})
	}

	return domain.FactorScore{
		Factor:     domain.FactorDemographic,
		Score:      domain.ClampScore(100 * matchedWeight / presentWeight),
		Confidence: domain.ClampConfidence(presentWeight),
		Signals:    signals,
	}, nil
}

func checkIndustry(lead domain.LeadSnapshot, profile domain.IdealCustomerProfile) icpCheck {
	c := icpCheck{weight: weightIndustry}
	if lead.Industry == nil || len(profile.Industries) == 0 {
		return c
	}
	c.present = true
	for _, want := range profile.Industries {
		if strings.EqualFold(want, *lead.Industry) {
			c.match = 1
			c.label = fmt.Sprintf("industry %q matches the ideal customer profile", *lead.Industry)
			return c
		}
	}
	c.label = fmt.Sprintf("industry %q is outside the ideal customer profile", *lead.Industry)
	return c
}

func checkCompanySize(lead domain.LeadSnapshot, profile domain.IdealCustomerProfile) icpCheck {
	c := icpCheck{weight: weightCompanySize}
	if lead.CompanySize == nil || (profile.MinCompanySize == 0 && profile.MaxCompanySize == 0) {
		return c
	}
	c.present = true
	size := *lead.CompanySize

	min := profile.MinCompanySize
	max := profile.MaxCompanySize
	if size >= min && (max == 0 || size <= max) {
		c.match = 1
		c.label = fmt.Sprintf("company size %d is inside the target range", size)
		return c
	}

	// Half credit for near misses within 50% of the range bounds.
	if (size < min && size >= min/2) || (max > 0 && size > max && size <= max+max/2) {
		c.match = 0.5
		c.label = fmt.Sprintf("company size %d is near the target range", size)
		return c
	}

	c.label = fmt.Sprintf("company size %d is far from the target range", size)
	return c
}

func checkRole(lead domain.LeadSnapshot, profile domain.IdealCustomerProfile) icpCheck {
	c := icpCheck{weight: weightRole}
	if lead.Role == nil || len(profile.Roles) == 0 {
		return c
	}
	c.present = true
	for _, want := range profile.Roles {
		if strings.EqualFold(want, *lead.Role) || strings.Contains(strings.ToLower(*lead.Role), strings.ToLower(want)) {
			c.match = 1
			c.label = fmt.Sprintf("role %q is a target decision-maker role", *lead.Role)
			return c
		}
	}
	c.label = fmt.Sprintf("role %q is not a target decision-maker role", *lead.Role)
	return c
}

func checkBudget(lead domain.LeadSnapshot, profile domain.IdealCustomerProfile) icpCheck {
	c := icpCheck{weight: weightBudget}
	if lead.BudgetCents == nil || profile.MinBudgetCents == 0 {
		return c
	}
	c.present = true
	budget := *lead.BudgetCents

	switch {
	case budget >= profile.MinBudgetCents:
		c.match = 1
		c.label = "declared budget meets the qualification threshold"
	case budget >= profile.MinBudgetCents/2:
		c.match = 0.5
		c.label = "declared budget is below but near the qualification threshold"
	default:
		c.label = "declared budget is well below the qualification threshold"
	}
	return c
}
