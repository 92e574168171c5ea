package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates the YAML configuration file at path, starting
// from Default() so an operator only needs to specify overrides.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	snap, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return snap, nil
}

// LoadFromReader decodes a YAML snapshot from r over Default() and
// validates the result. Useful in tests for configs built from string
// literals.
func LoadFromReader(r io.Reader) (*Snapshot, error) {
	snap := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(snap); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// validLanguages lists the seven response languages spec §6 recognizes.
var validLanguages = map[Language]bool{
	LangHindi: true, LangEnglish: true, LangHinglish: true,
	LangTamil: true, LangTelugu: true, LangKannada: true, LangMalayalam: true,
}

// Validate checks a Snapshot for internal consistency, returning a joined
// error listing every problem found.
func Validate(snap *Snapshot) error {
	var errs []error

	if snap.Language.Primary != "" && !validLanguages[snap.Language.Primary] {
		errs = append(errs, fmt.Errorf("language.primary %q is not one of hi,en,hi-en,ta,te,kn,ml", snap.Language.Primary))
	}

	if snap.VAD.EnterThreshold != 0 && (snap.VAD.EnterThreshold <= 0 || snap.VAD.EnterThreshold > 1) {
		errs = append(errs, fmt.Errorf("vad.enter_threshold %.2f must be in (0,1]", snap.VAD.EnterThreshold))
	}
	if snap.VAD.ExitThreshold != 0 && (snap.VAD.ExitThreshold <= 0 || snap.VAD.ExitThreshold > 1) {
		errs = append(errs, fmt.Errorf("vad.exit_threshold %.2f must be in (0,1]", snap.VAD.ExitThreshold))
	}
	if snap.VAD.EnterThreshold != 0 && snap.VAD.ExitThreshold != 0 && snap.VAD.ExitThreshold >= snap.VAD.EnterThreshold {
		errs = append(errs, fmt.Errorf("vad.exit_threshold must be lower than vad.enter_threshold"))
	}

	switch snap.LLM.Strategy {
	case "", "SlmFirst", "Race", "Hybrid", "DraftVerify":
	default:
		errs = append(errs, fmt.Errorf("llm.strategy %q is invalid; valid values: SlmFirst, Race, Hybrid, DraftVerify", snap.LLM.Strategy))
	}

	for i, tier := range snap.Domain.Price.LTVTiers {
		if tier.MaxLTV <= 0 || tier.MaxLTV > 1 {
			errs = append(errs, fmt.Errorf("domain.price.ltv_tiers[%d].max_ltv %.2f must be in (0,1]", i, tier.MaxLTV))
		}
	}
	if snap.Domain.Price.GoldPricePerGram < 0 {
		errs = append(errs, fmt.Errorf("domain.price.gold_price_per_gram must not be negative"))
	}

	for i, b := range snap.Domain.Branches {
		if b.City == "" {
			errs = append(errs, fmt.Errorf("domain.branches[%d].city is required", i))
		}
	}

	for i, s := range snap.Domain.Stages {
		if _, ok := stageByName(s.Stage); !ok {
			errs = append(errs, fmt.Errorf("domain.stages[%d].stage %q is not a recognized stage", i, s.Stage))
		}
	}

	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d configuration error(s):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return errors.New(msg)
}
