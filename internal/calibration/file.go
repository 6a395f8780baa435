package calibration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/growthcast/internal/forecast"
)

// LoadFile reads benchmark overrides from a YAML file laid out like the
// benchmark tables. Platform keys may use short codes (IG, TT, YT, FB).
func LoadFile(filename string) (*forecast.Overrides, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file %s: %w", filename, err)
	}
	return ParseFile(data)
}

// ParseFile decodes and canonicalises a YAML overrides document.
func ParseFile(data []byte) (*forecast.Overrides, error) {
	var o forecast.Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse calibration YAML: %w", err)
	}
	if err := canonicalize(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

// WriteFile stores overrides as YAML, e.g. the output of a workbook run.
func WriteFile(filename string, o *forecast.Overrides) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write calibration file %s: %w", filename, err)
	}
	return nil
}

func canonicalize(o *forecast.Overrides) error {
	var err error
	if o.BaseMonthlyRate, err = canonicalKeys("base_monthly_rate", o.BaseMonthlyRate); err != nil {
		return err
	}
	if o.FreqHalfSat, err = canonicalKeys("freq_half_sat", o.FreqHalfSat); err != nil {
		return err
	}
	if o.MonthlyCap, err = canonicalKeys("platform_monthly_cap", o.MonthlyCap); err != nil {
		return err
	}
	if o.PerPostGain, err = canonicalKeys("per_post_gain_base", o.PerPostGain); err != nil {
		return err
	}
	if o.FreqBands, err = canonicalKeys("recommended_freq", o.FreqBands); err != nil {
		return err
	}
	if o.PaidFunnel, err = canonicalKeys("paid_funnel", o.PaidFunnel); err != nil {
		return err
	}
	if o.ContentMult, err = canonicalKeys("content_mult", o.ContentMult); err != nil {
		return err
	}
	for p, table := range o.ContentMult {
		for ct := range table {
			if !forecast.IsKnownContentType(ct) {
				return &forecast.ConfigurationError{Field: "content_mult", Reason: fmt.Sprintf("unknown content type %q for %s", ct, p)}
			}
		}
	}
	for c := range o.CPF {
		if !forecast.IsKnownChannel(c) {
			return &forecast.ConfigurationError{Field: "cpf", Reason: fmt.Sprintf("unknown channel %q", c)}
		}
	}
	return nil
}

func canonicalKeys[V any](field string, in map[forecast.Platform]V) (map[forecast.Platform]V, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[forecast.Platform]V, len(in))
	for k, v := range in {
		p, ok := forecast.ParsePlatform(string(k))
		if !ok {
			return nil, &forecast.ConfigurationError{Field: field, Reason: fmt.Sprintf("unknown platform %q", k)}
		}
		out[p] = v
	}
	return out, nil
}
