// Package config defines the runtime-visible configuration snapshot for
// the agent core: the shape of everything in spec §6 ("Configuration
// surface", "Domain data") plus the per-tool and per-stage data each
// component needs, how it is swapped without mutation, and Load /
// LoadFromReader, which decode YAML over Default(). CLI flag parsing is
// left to the caller.
package config

import (
	"time"

	"github.com/goldvox/agentcore/pkg/agent"
	"github.com/goldvox/agentcore/pkg/ai/llm"
	"github.com/goldvox/agentcore/pkg/ai/vad"
	"github.com/goldvox/agentcore/pkg/tools"
	"github.com/goldvox/agentcore/pkg/turn"
)

// Language is one of the seven response languages the system recognizes.
type Language string

const (
	LangHindi    Language = "hi"
	LangEnglish  Language = "en"
	LangHinglish Language = "hi-en"
	LangTamil    Language = "ta"
	LangTelugu   Language = "te"
	LangKannada  Language = "kn"
	LangMalayalam Language = "ml"
)

// LanguageConfig selects the session's default response language.
type LanguageConfig struct {
	Primary Language `yaml:"primary"`
}

// TurnConfig mirrors spec §6's `turn.*` options onto turn.Config.
// SemanticEnabled is carried in the snapshot but is not read by
// ToTurnConfig or elsewhere.
type TurnConfig struct {
	VADEOTMs          int     `yaml:"vad_eot_ms"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	SemanticEnabled   bool    `yaml:"semantic_enabled"`
}

// ToTurnConfig converts the YAML-facing shape into turn.Config.
func (c TurnConfig) ToTurnConfig() turn.Config {
	cfg := turn.NewConfig()
	if c.VADEOTMs > 0 {
		cfg.SilenceEOU = time.Duration(c.VADEOTMs) * time.Millisecond
	}
	if c.SemanticThreshold > 0 {
		cfg.SemanticConfidence = c.SemanticThreshold
	}
	return cfg
}

// LLMConfig mirrors spec §6's `llm.*` options.
type LLMConfig struct {
	Strategy      string `yaml:"strategy"` // SlmFirst | Race | Hybrid
	SLMTimeoutMs  int    `yaml:"slm_timeout_ms"`
	KeepAliveSecs int    `yaml:"keep_alive_secs"`
	MaxRetries    int    `yaml:"max_retries"`
}

// DefaultLLMConfig returns the spec's stated defaults (200ms SLM timeout,
// 300s keep-alive, 3 retries, SlmFirst strategy).
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Strategy:      "SlmFirst",
		SLMTimeoutMs:  200,
		KeepAliveSecs: 300,
		MaxRetries:    3,
	}
}

// ResolveStrategy resolves the configured strategy name to llm.Strategy.
// An unrecognized name falls back to SLMFirst.
func (c LLMConfig) ResolveStrategy() llm.Strategy {
	switch c.Strategy {
	case "Race":
		return llm.Race
	case "Hybrid":
		return llm.Hybrid
	case "DraftVerify":
		return llm.DraftVerify
	default:
		return llm.SLMFirst
	}
}

// SLMTimeout returns the configured SLM timeout as a time.Duration,
// defaulting to 200ms when unset.
func (c LLMConfig) SLMTimeout() time.Duration {
	if c.SLMTimeoutMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.SLMTimeoutMs) * time.Millisecond
}

// KeepAlive returns how long model weights stay resident between calls.
func (c LLMConfig) KeepAlive() time.Duration {
	if c.KeepAliveSecs <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.KeepAliveSecs) * time.Second
}

// RetrievalConfig mirrors spec §6's `retrieval.*` options.
type RetrievalConfig struct {
	TopK1              int `yaml:"top_k1"`
	TopK2              int `yaml:"top_k2"`
	RRFK               int `yaml:"rrf_k"`
	PrefetchMinTokens  int `yaml:"prefetch_min_tokens"`
}

// DefaultRetrievalConfig returns K1=50, K2=10, rrf_k=60, prefetch at 3
// tokens, per spec.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{TopK1: 50, TopK2: 10, RRFK: 60, PrefetchMinTokens: 3}
}

// ToolConfig is one entry in `tools.*`: name, enabled flag and per-tool
// timeout only. Parameters shared across tools (gold price, house rate,
// LTV tiers, etc.) are carried in DomainData.Price instead.
type ToolConfig struct {
	Name      string        `yaml:"name"`
	Enabled   bool          `yaml:"enabled"`
	TimeoutMs int           `yaml:"timeout_ms"`
}

// Timeout returns the configured timeout, defaulting to 30s per spec §4.8.
func (c ToolConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SessionConfig mirrors spec §6's `session.*` options.
type SessionConfig struct {
	IdleTimeoutSecs int `yaml:"idle_timeout_secs"`
	MaxTurns        int `yaml:"max_turns"`
}

// IdleTimeout returns the configured idle timeout, defaulting to 5 minutes.
func (c SessionConfig) IdleTimeout() time.Duration {
	if c.IdleTimeoutSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.IdleTimeoutSecs) * time.Second
}

// VADConfig mirrors spec §6's `vad.*` options onto vad.Config.
type VADConfig struct {
	EnterThreshold  float64 `yaml:"enter_threshold"`
	ExitThreshold   float64 `yaml:"exit_threshold"`
	EnterHangoverMs int     `yaml:"enter_hangover_ms"`
	ExitHangoverMs  int     `yaml:"exit_hangover_ms"`
}

// ToVADConfig converts the YAML-facing shape into vad.Config, leaving
// unset fields at vad.NewConfig's defaults.
func (c VADConfig) ToVADConfig() vad.Config {
	cfg := vad.NewConfig()
	if c.EnterThreshold > 0 {
		cfg.EnterThreshold = float32(c.EnterThreshold)
	}
	if c.ExitThreshold > 0 {
		cfg.ExitThreshold = float32(c.ExitThreshold)
	}
	if c.EnterHangoverMs > 0 {
		cfg.EnterHangover = time.Duration(c.EnterHangoverMs) * time.Millisecond
	}
	if c.ExitHangoverMs > 0 {
		cfg.ExitHangover = time.Duration(c.ExitHangoverMs) * time.Millisecond
	}
	return cfg
}

// Branch is one configured branch catalog entry (spec §6 domain data:
// "≥20 entries across ≥8 cities").
type Branch struct {
	ID      string  `yaml:"id"`
	Name    string  `yaml:"name"`
	City    string  `yaml:"city"`
	Pincode string  `yaml:"pincode"`
	Lat     float64 `yaml:"lat"`
	Lon     float64 `yaml:"lon"`
	Phone   string  `yaml:"phone"`
}

// ToToolBranches converts the configured catalog to tools.Branch values
// for NewBranchLocatorHandler.
func ToToolBranches(branches []Branch) []tools.Branch {
	out := make([]tools.Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, tools.Branch{
			ID:      b.ID,
			Name:    b.Name,
			City:    b.City,
			Pincode: b.Pincode,
			Lat:     b.Lat,
			Lon:     b.Lon,
			Phone:   b.Phone,
		})
	}
	return out
}

// CompetitorRate is one entry in the configured competitor rate table.
type CompetitorRate struct {
	Name              string  `yaml:"name"`
	AnnualRatePercent float64 `yaml:"annual_rate_percent"`
}

// PriceConfig is the gold-loan-specific domain pricing configuration
// (spec §4.8): price per gram and LTV tier caps, never hard-coded.
type PriceConfig struct {
	GoldPricePerGram       float64          `yaml:"gold_price_per_gram"`
	LTVTiers               []LTVTierConfig  `yaml:"ltv_tiers"`
	HouseAnnualRatePercent float64          `yaml:"house_annual_rate_percent"`
	Competitors            []CompetitorRate `yaml:"competitors"`
}

// LTVTierConfig is one configured loan-to-value bracket.
type LTVTierConfig struct {
	MaxLoanAmount float64 `yaml:"max_loan_amount"`
	MaxLTV        float64 `yaml:"max_ltv"`
}

// ToToolTiers converts the configured tiers to tools.LTVTier values,
// falling back to tools.DefaultTiers() when none are configured.
func (p PriceConfig) ToToolTiers() []tools.LTVTier {
	if len(p.LTVTiers) == 0 {
		return tools.DefaultTiers()
	}
	out := make([]tools.LTVTier, 0, len(p.LTVTiers))
	for _, t := range p.LTVTiers {
		out = append(out, tools.LTVTier{MaxLoanAmount: t.MaxLoanAmount, MaxLTV: t.MaxLTV})
	}
	return out
}

// ToToolCompetitors converts the configured competitor table to
// tools.CompetitorRate values.
func (p PriceConfig) ToToolCompetitors() []tools.CompetitorRate {
	out := make([]tools.CompetitorRate, 0, len(p.Competitors))
	for _, c := range p.Competitors {
		out = append(out, tools.CompetitorRate{Name: c.Name, AnnualRatePercent: c.AnnualRatePercent})
	}
	return out
}

// IntentDef is one configured intent: keyword/synonym lists (including
// Hindi/Hinglish synonyms) and regex patterns, compiled once by
// agent.NewIntentClassifier.
type IntentDef struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
}

// ToAgentIntentDefs converts the configured intents to
// agent.IntentDefinition values.
func ToAgentIntentDefs(defs []IntentDef) []agent.IntentDefinition {
	out := make([]agent.IntentDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, agent.IntentDefinition{Name: d.Name, Keywords: d.Keywords, Patterns: d.Patterns})
	}
	return out
}

// SlotDef names one entry in the configured slot catalog: a canonical name
// and its aliases, so extraction and prompt assembly agree on naming.
type SlotDef struct {
	CanonicalName string   `yaml:"canonical_name"`
	Aliases       []string `yaml:"aliases"`
	Type          string   `yaml:"type"` // text|integer|decimal|enum|date|phone
}

// StageDef is one configured node of the sales stage graph (spec §4.9).
type StageDef struct {
	Stage           string   `yaml:"stage"`
	RequiredIntents []string `yaml:"required_intents"`
	RequiredSlots   []string `yaml:"required_slots"`
	GuidancePrompt  string   `yaml:"guidance_prompt"`
	AllowedTools    []string `yaml:"allowed_tools"`
}

// stageByName resolves a configured stage name to agent.Stage. Unknown
// names are skipped by ToAgentStageGraph rather than causing a panic,
// since a stray typo in configuration should degrade, not crash startup.
func stageByName(name string) (agent.Stage, bool) {
	switch name {
	case "Greeting":
		return agent.StageGreeting, true
	case "Discovery":
		return agent.StageDiscovery, true
	case "ObjectionHandling":
		return agent.StageObjectionHandling, true
	case "Qualification":
		return agent.StageQualification, true
	case "Presentation":
		return agent.StagePresentation, true
	case "Closing":
		return agent.StageClosing, true
	case "Farewell":
		return agent.StageFarewell, true
	default:
		return 0, false
	}
}

// ToAgentStageGraph converts the configured stage definitions to
// agent.StageGraph.
func ToAgentStageGraph(defs []StageDef) agent.StageGraph {
	graph := make(agent.StageGraph, len(defs))
	for _, d := range defs {
		stage, ok := stageByName(d.Stage)
		if !ok {
			continue
		}
		graph[stage] = agent.StageDefinition{
			RequiredIntents: d.RequiredIntents,
			RequiredSlots:   d.RequiredSlots,
			GuidancePrompt:  d.GuidancePrompt,
			AllowedTools:    d.AllowedTools,
		}
	}
	return graph
}

// DomainData groups every configuration-file-sourced dataset from spec §6
// ("Domain data (configuration files, not code)").
type DomainData struct {
	Branches  []Branch    `yaml:"branches"`
	Price     PriceConfig `yaml:"price"`
	Intents   []IntentDef `yaml:"intents"`
	Slots     []SlotDef   `yaml:"slots"`
	Stages    []StageDef  `yaml:"stages"`
	ToolDefs  []ToolConfig `yaml:"tools"`
}

// Snapshot is the complete, immutable, process-wide configuration state.
// It is loaded once and replaced wholesale via Swap; nothing mutates a
// Snapshot in place once constructed, per Design Notes §9's "global
// mutable state" guidance.
type Snapshot struct {
	Language   LanguageConfig  `yaml:"language"`
	VAD        VADConfig       `yaml:"vad"`
	Turn       TurnConfig      `yaml:"turn"`
	LLM        LLMConfig       `yaml:"llm"`
	Retrieval  RetrievalConfig `yaml:"retrieval"`
	Session    SessionConfig   `yaml:"session"`
	Domain     DomainData      `yaml:"domain"`
}

// Default returns a Snapshot populated with every spec-stated default
// value, suitable as a base that a loaded file overrides piecemeal.
func Default() *Snapshot {
	return &Snapshot{
		Language:  LanguageConfig{Primary: LangEnglish},
		VAD:       VADConfig{},
		Turn:      TurnConfig{VADEOTMs: 700, SemanticThreshold: 0.75, SemanticEnabled: true},
		LLM:       DefaultLLMConfig(),
		Retrieval: DefaultRetrievalConfig(),
		Session:   SessionConfig{IdleTimeoutSecs: 300, MaxTurns: 200},
	}
}
