package generation

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	llmclient "travelhub/internal/llmClient"
)

// ModelTier is one backend model choice in the cascade.
type ModelTier struct {
	Name            string  `yaml:"name" json:"name"`
	Provider        string  `yaml:"provider" json:"provider"`
	Model           string  `yaml:"model" json:"model"`
	MaxOutputTokens int     `yaml:"max_output_tokens" json:"maxOutputTokens"`
	SupportsTools   bool    `yaml:"supports_tools" json:"supportsTools"`
	Temperature     float64 `yaml:"temperature" json:"temperature"`
	// PromptNote is appended to the prompt when this tier is reached as a
	// fallback. It is ignored on the first tier.
	PromptNote string `yaml:"prompt_note" json:"promptNote,omitempty"`
}

const DefaultTemperature = 0.7

// DefaultTiers is the production cascade: a tool-augmented model first, then
// two plain models with shrinking budgets.
var DefaultTiers = []ModelTier{
	{Name: "primary", Provider: llmclient.ProviderGroq, Model: "compound-beta", MaxOutputTokens: 1200, SupportsTools: true, Temperature: DefaultTemperature},
	{Name: "secondary", Provider: llmclient.ProviderGroq, Model: "llama3-70b-8192", MaxOutputTokens: 800, Temperature: DefaultTemperature,
		PromptNote: "Note: Generate this itinerary based on your existing knowledge."},
	{Name: "fallback", Provider: llmclient.ProviderGroq, Model: "gemma2-9b-it", MaxOutputTokens: 600, Temperature: DefaultTemperature,
		PromptNote: "Note: Generate a simplified itinerary based on your existing knowledge."},
}

var ErrCascadeTooShort = errors.New("cascade needs at least two tiers")

// Cascade is an ordered, immutable list of tiers. The zero value is empty
// and unusable; build one with NewCascade.
type Cascade struct {
	tiers []ModelTier
}

// NewCascade validates and copies tiers. Missing names and providers are
// filled in from the position and the Groq default.
func NewCascade(tiers ...ModelTier) (Cascade, error) {
	if len(tiers) < 2 {
		return Cascade{}, ErrCascadeTooShort
	}
	out := make([]ModelTier, len(tiers))
	for i, t := range tiers {
		t.Model = strings.TrimSpace(t.Model)
		if t.Model == "" {
			return Cascade{}, fmt.Errorf("tier %d: model is required", i)
		}
		if t.MaxOutputTokens <= 0 {
			return Cascade{}, fmt.Errorf("tier %d (%s): max_output_tokens must be positive", i, t.Model)
		}
		if t.Temperature < 0 || t.Temperature > 2 {
			return Cascade{}, fmt.Errorf("tier %d (%s): temperature %.2f out of range", i, t.Model, t.Temperature)
		}
		t.Provider = strings.ToLower(strings.TrimSpace(t.Provider))
		if t.Provider == "" {
			t.Provider = llmclient.ProviderGroq
		}
		if t.Name == "" {
			t.Name = fmt.Sprintf("tier-%d", i+1)
		}
		out[i] = t
	}
	return Cascade{tiers: out}, nil
}

// DefaultCascade returns the production cascade.
func DefaultCascade() Cascade {
	c, err := NewCascade(DefaultTiers...)
	if err != nil {
		panic(err)
	}
	return c
}

// fileTier mirrors ModelTier with an optional temperature.
type fileTier struct {
	Name            string   `yaml:"name"`
	Provider        string   `yaml:"provider"`
	Model           string   `yaml:"model"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	SupportsTools   bool     `yaml:"supports_tools"`
	Temperature     *float64 `yaml:"temperature"`
	PromptNote      string   `yaml:"prompt_note"`
}

type cascadeFile struct {
	Tiers []fileTier `yaml:"tiers"`
}

// ParseCascade reads a YAML document of the form
//
//	tiers:
//	  - name: primary
//	    provider: groq
//	    model: compound-beta
//	    max_output_tokens: 1200
//	    supports_tools: true
//	    temperature: 0.7
//
// A tier without a temperature gets DefaultTemperature.
func ParseCascade(data []byte) (Cascade, error) {
	var f cascadeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Cascade{}, fmt.Errorf("parse cascade: %w", err)
	}
	tiers := make([]ModelTier, len(f.Tiers))
	for i, ft := range f.Tiers {
		tiers[i] = ModelTier{
			Name:            ft.Name,
			Provider:        ft.Provider,
			Model:           ft.Model,
			MaxOutputTokens: ft.MaxOutputTokens,
			SupportsTools:   ft.SupportsTools,
			Temperature:     DefaultTemperature,
			PromptNote:      ft.PromptNote,
		}
		if ft.Temperature != nil {
			tiers[i].Temperature = *ft.Temperature
		}
	}
	return NewCascade(tiers...)
}

// LoadCascadeFile reads a cascade from a YAML file.
func LoadCascadeFile(path string) (Cascade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Cascade{}, fmt.Errorf("read cascade file: %w", err)
	}
	return ParseCascade(data)
}

func (c Cascade) Len() int { return len(c.tiers) }

// At returns the tier at index i.
func (c Cascade) At(i int) ModelTier { return c.tiers[i] }

// Tiers returns a copy of the tier list.
func (c Cascade) Tiers() []ModelTier {
	return append([]ModelTier(nil), c.tiers...)
}

// Last returns the simplest, most available tier.
func (c Cascade) Last() ModelTier { return c.tiers[len(c.tiers)-1] }

// Providers lists the distinct providers in cascade order.
func (c Cascade) Providers() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range c.tiers {
		if !seen[t.Provider] {
			seen[t.Provider] = true
			out = append(out, t.Provider)
		}
	}
	return out
}
