package analysis

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ldevries/kamervote/internal/errors"
	"github.com/ldevries/kamervote/internal/types"
)

// Ideology is the coarse bucket used as a categorical node attribute
type Ideology string

const (
	IdeologyLeft   Ideology = "Left"
	IdeologyCenter Ideology = "Center"
	IdeologyRight  Ideology = "Right"
)

// IdeologyTable maps party names to ideology buckets
type IdeologyTable map[string]Ideology

// Lookup returns the bucket for a party. Parties absent from the table fall
// back to Center; the tag is a best-effort visualization aid, not a modeled
// property.
func (t IdeologyTable) Lookup(party string) Ideology {
	if ideology, ok := t[party]; ok {
		return ideology
	}
	return IdeologyCenter
}

// PeriodConfig describes one aggregation window in the study file.
// Dates are inclusive and use the 2006-01-02 layout.
type PeriodConfig struct {
	Label string `yaml:"label"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// IdeologyConfig lists party names per bucket. The lists differ between
// parliamentary terms (parties merge, split, and rename), so they are study
// input rather than code.
type IdeologyConfig struct {
	Left   []string `yaml:"left"`
	Center []string `yaml:"center"`
	Right  []string `yaml:"right"`
}

// StudyConfig is the full study description loaded from YAML
type StudyConfig struct {
	MinSharedVotes int            `yaml:"min_shared_votes"`
	Normalize      bool           `yaml:"normalize"`
	Periods        []PeriodConfig `yaml:"periods"`
	Ideology       IdeologyConfig `yaml:"ideology"`
}

// LoadStudyConfig reads and validates a study file
func LoadStudyConfig(path string) (*StudyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("failed to read study file %s", path), err)
	}

	var config StudyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewConfigurationError("failed to parse study file", err)
	}

	if config.MinSharedVotes <= 0 {
		config.MinSharedVotes = DefaultMinSharedVotes
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *StudyConfig) validate() error {
	if len(c.Periods) == 0 {
		return errors.NewConfigurationError("study file defines no periods", nil)
	}

	labels := make(map[string]bool, len(c.Periods))
	for _, period := range c.Periods {
		if period.Label == "" {
			return errors.NewConfigurationError("period without label", nil)
		}
		if labels[period.Label] {
			return errors.NewConfigurationError(fmt.Sprintf("duplicate period label %q", period.Label), nil)
		}
		labels[period.Label] = true

		if _, err := period.window(); err != nil {
			return err
		}
	}

	return nil
}

// window parses the period bounds, extending the end date to end of day
func (p PeriodConfig) window() (types.Period, error) {
	start, err := time.Parse("2006-01-02", p.Start)
	if err != nil {
		return types.Period{}, errors.NewConfigurationError(
			fmt.Sprintf("period %q has invalid start date %q", p.Label, p.Start), err)
	}

	end, err := time.Parse("2006-01-02", p.End)
	if err != nil {
		return types.Period{}, errors.NewConfigurationError(
			fmt.Sprintf("period %q has invalid end date %q", p.Label, p.End), err)
	}

	end = end.Add(24*time.Hour - time.Second)

	if end.Before(start) {
		return types.Period{}, errors.NewConfigurationError(
			fmt.Sprintf("period %q ends before it starts", p.Label), nil)
	}

	return types.Period{Label: p.Label, Start: start, End: end}, nil
}

// PeriodList returns the parsed aggregation windows in file order
func (c *StudyConfig) PeriodList() ([]types.Period, error) {
	periods := make([]types.Period, 0, len(c.Periods))
	for _, pc := range c.Periods {
		period, err := pc.window()
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, nil
}

// IdeologyTable flattens the per-bucket party lists into a lookup table
func (c *StudyConfig) IdeologyTable() IdeologyTable {
	table := make(IdeologyTable)
	for _, party := range c.Ideology.Left {
		table[party] = IdeologyLeft
	}
	for _, party := range c.Ideology.Center {
		table[party] = IdeologyCenter
	}
	for _, party := range c.Ideology.Right {
		table[party] = IdeologyRight
	}
	return table
}

// DefaultStudyConfig returns the two-window electoral-cycle study the
// project was built around: one year before the November 2023 election and
// one year after the July 2024 cabinet formation.
func DefaultStudyConfig() *StudyConfig {
	return &StudyConfig{
		MinSharedVotes: DefaultMinSharedVotes,
		Normalize:      true,
		Periods: []PeriodConfig{
			{Label: "pre-election", Start: "2022-11-22", End: "2023-11-21"},
			{Label: "post-formation", Start: "2024-07-05", End: "2025-07-04"},
		},
		Ideology: IdeologyConfig{
			Left:   []string{"GroenLinks-PvdA", "SP", "PvdD", "DENK", "Volt"},
			Center: []string{"D66", "CDA", "ChristenUnie", "NSC", "50PLUS"},
			Right:  []string{"VVD", "PVV", "FVD", "JA21", "SGP", "BBB"},
		},
	}
}
