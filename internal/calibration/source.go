package calibration

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/growthcast/internal/forecast"
)

// Config points at the optional calibration inputs.
type Config struct {
	File     string          `yaml:"file"`
	Workbook string          `yaml:"workbook"`
	Options  WorkbookOptions `yaml:"workbook_options"`
	// MonthDecayPerMonth, when set, wins over both sources.
	MonthDecayPerMonth *float64 `yaml:"month_decay_per_month"`
}

// Calibration is the resolved override set plus what produced it.
type Calibration struct {
	Overrides   *forecast.Overrides
	History     FollowerHistory
	Report      *Report
	Fingerprint string
}

// Load resolves overrides from the workbook first and the YAML file on
// top of it. With neither configured it returns an empty Calibration.
func Load(cfg Config) (*Calibration, error) {
	out := &Calibration{}
	var layered *forecast.Overrides

	if cfg.Workbook != "" {
		wb, err := ReadWorkbook(cfg.Workbook)
		if err != nil {
			return nil, fmt.Errorf("calibration workbook: %w", err)
		}
		o, rep := FromWorkbook(wb, cfg.Options)
		layered = o
		out.Report = &rep
		out.History = FollowerHistoryFromWorkbook(wb)
		log.Info().Str("workbook", cfg.Workbook).Int("history_points", len(out.History.Points)).Msg("Calibration workbook loaded")
	}

	if cfg.File != "" {
		o, err := LoadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		layered = layered.Layer(o)
		log.Info().Str("file", cfg.File).Msg("Calibration overrides loaded")
	}

	if cfg.MonthDecayPerMonth != nil {
		layered = layered.Layer(&forecast.Overrides{MonthDecayPerMonth: cfg.MonthDecayPerMonth})
	}

	if !layered.IsEmpty() {
		out.Overrides = layered
	}
	out.Fingerprint = Fingerprint(out.Overrides)
	return out, nil
}

// Fingerprint is a stable digest of an override set, "" for none.
func Fingerprint(o *forecast.Overrides) string {
	if o.IsEmpty() {
		return ""
	}
	// encoding/json sorts map keys, so equal override sets hash equally.
	data, err := json.Marshal(o)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
