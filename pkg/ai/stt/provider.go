package stt

import "context"

// Provider adapts an AcousticModel to the STT interface, the shape callers
// actually wire into the pipeline.
type Provider struct {
	model *AcousticModel
	langs []Language
}

// NewProvider builds an STT provider around a model file path.
func NewProvider(modelPath string, langs ...Language) *Provider {
	if len(langs) == 0 {
		langs = []Language{LangHindi, LangEnglish, LangHinglish, LangTamil, LangTelugu, LangKannada, LangMalayalam}
	}
	return &Provider{model: NewAcousticModel(modelPath), langs: langs}
}

func (p *Provider) NewStream(ctx context.Context, cfg StreamConfig) (Stream, error) {
	return NewStream(ctx, p.model, cfg), nil
}

func (p *Provider) Capabilities() Capabilities {
	return Capabilities{SupportedLanguages: p.langs, BeamWidth: 4}
}

var _ STT = (*Provider)(nil)
