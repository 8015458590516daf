package model

import "github.com/rotisserie/eris"

// Thresholds holds the similarity cutoffs for fuzzy matching, on the
// 0-100 ratio scale. Scores at or above the high cutoff classify a lead
// as existing; scores at or above the mid cutoff but below high flag it
// for manual review.
type Thresholds struct {
	CompanyHigh int `json:"company_high" yaml:"company_high" mapstructure:"company_high"`
	CompanyMid  int `json:"company_mid" yaml:"company_mid" mapstructure:"company_mid"`
	DomainHigh  int `json:"domain_high" yaml:"domain_high" mapstructure:"domain_high"`
	DomainMid   int `json:"domain_mid" yaml:"domain_mid" mapstructure:"domain_mid"`
}

// DefaultThresholds returns the stock cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CompanyHigh: 85,
		CompanyMid:  70,
		DomainHigh:  90,
		DomainMid:   70,
	}
}

// Validate checks that each cutoff is a percentage and each mid cutoff
// does not exceed its high cutoff.
func (t Thresholds) Validate() error {
	for _, c := range []struct {
		name  string
		value int
	}{
		{"company_high", t.CompanyHigh},
		{"company_mid", t.CompanyMid},
		{"domain_high", t.DomainHigh},
		{"domain_mid", t.DomainMid},
	} {
		if c.value < 0 || c.value > 100 {
			return eris.Errorf("model: threshold %s out of range: %d", c.name, c.value)
		}
	}
	if t.CompanyMid > t.CompanyHigh {
		return eris.Errorf("model: company_mid %d exceeds company_high %d", t.CompanyMid, t.CompanyHigh)
	}
	if t.DomainMid > t.DomainHigh {
		return eris.Errorf("model: domain_mid %d exceeds domain_high %d", t.DomainMid, t.DomainHigh)
	}
	return nil
}
