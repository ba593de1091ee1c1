package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"intraday-accounting/internal/types"
)

// ErrConfiguration reports threshold values outside sane bounds.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Mode string `yaml:"mode"` // DRY_RUN or LIVE, informational for the driving loop

	Stop struct {
		Defaults  types.StopParams            `yaml:"defaults"`
		PerSymbol map[string]types.StopParams `yaml:"per_symbol"`
	} `yaml:"stop"`

	Risk struct {
		VaRConfidence float64 `yaml:"var_confidence"`
	} `yaml:"risk"`

	Journal struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"journal"`
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Mode != "" && c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("%w: invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", ErrConfiguration, c.Mode)
	}
	if err := validateParams("defaults", c.Stop.Defaults); err != nil {
		return err
	}
	for sym, p := range c.Stop.PerSymbol {
		if err := validateParams(sym, p); err != nil {
			return err
		}
	}
	if v := c.Risk.VaRConfidence; v != 0 && (v <= 0 || v >= 1) {
		return fmt.Errorf("%w: var_confidence %v must be in (0,1)", ErrConfiguration, v)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("%w: journal enabled but no path set", ErrConfiguration)
	}
	return nil
}

func validateParams(name string, p types.StopParams) error {
	for field, v := range map[string]float64{
		"stop_loss_pct":  p.StopLossPct,
		"activation_pct": p.ActivationPct,
		"trailing_pct":   p.TrailingPct,
		"min_move_pct":   p.MinMovePct,
		"min_tick":       p.MinTick,
	} {
		if v < 0 {
			return fmt.Errorf("%w: stop.%s: %s must not be negative, got %v", ErrConfiguration, name, field, v)
		}
	}
	for field, v := range map[string]float64{
		"stop_loss_pct":  p.StopLossPct,
		"activation_pct": p.ActivationPct,
		"trailing_pct":   p.TrailingPct,
	} {
		if v >= 1 {
			return fmt.Errorf("%w: stop.%s: %s is a fraction, got %v", ErrConfiguration, name, field, v)
		}
	}
	return nil
}

// ParamsFor resolves the trailing-stop thresholds for a symbol. Unset
// per-symbol fields fall back to the process-wide defaults.
func (c *Config) ParamsFor(symbol string) types.StopParams {
	p := c.Stop.Defaults
	o, ok := c.Stop.PerSymbol[symbol]
	if !ok {
		return p
	}
	if o.StopLossPct != 0 {
		p.StopLossPct = o.StopLossPct
	}
	if o.ActivationPct != 0 {
		p.ActivationPct = o.ActivationPct
	}
	if o.TrailingPct != 0 {
		p.TrailingPct = o.TrailingPct
	}
	if o.MinMovePct != 0 {
		p.MinMovePct = o.MinMovePct
	}
	if o.MinTick != 0 {
		p.MinTick = o.MinTick
	}
	return p
}

// TickFor returns the minimum price increment for a symbol.
func (c *Config) TickFor(symbol string) float64 {
	return c.ParamsFor(symbol).MinTick
}
