package forecast

import "strings"

// Preset is a named bundle of the three strategy scalars.
type Preset struct {
	Name         string  `json:"name" yaml:"name"`
	CampaignLift float64 `json:"campaign_lift" yaml:"campaign_lift"`
	Sensitivity  float64 `json:"sensitivity" yaml:"sensitivity"`
	AcqScalar    float64 `json:"acq_scalar" yaml:"acq_scalar"`
}

var (
	Conservative = Preset{Name: "Conservative", CampaignLift: 0.0, Sensitivity: 0.35, AcqScalar: 0.6}
	Balanced     = Preset{Name: "Balanced", CampaignLift: 0.15, Sensitivity: 0.50, AcqScalar: 1.0}
	Ambitious    = Preset{Name: "Ambitious", CampaignLift: 0.35, Sensitivity: 0.65, AcqScalar: 1.5}
)

// Presets lists the built-in presets from most to least cautious.
var Presets = []Preset{Conservative, Balanced, Ambitious}

// PresetByName looks a preset up case-insensitively.
func PresetByName(name string) (Preset, error) {
	for _, p := range Presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return Preset{}, configErrorf("preset", "unknown preset %q", name)
}

// Apply copies the preset scalars into plan.
func (p Preset) Apply(plan *Plan) {
	plan.CampaignLift = p.CampaignLift
	plan.Sensitivity = p.Sensitivity
	plan.AcqScalar = p.AcqScalar
}
