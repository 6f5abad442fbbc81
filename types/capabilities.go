package types

import "path/filepath"

// Modality is an input or output channel a model supports.
type Modality string

const (
	ModalityText      Modality = "text"
	ModalityImage     Modality = "image"
	ModalityAudio     Modality = "audio"
	ModalityVideo     Modality = "video"
	ModalityEmbedding Modality = "embedding"
)

// Capabilities describes the stable, core capabilities of a model: which
// modalities it accepts and emits, and whether it supports tool calling.
// Grounded on zhenxun's types/capabilities.py ModelCapabilities.
type Capabilities struct {
	InputModalities    map[Modality]bool
	OutputModalities   map[Modality]bool
	SupportsToolCalling bool
	IsEmbeddingModel    bool
}

// AcceptsModality reports whether this model accepts m as an input.
func (c Capabilities) AcceptsModality(m Modality) bool {
	return c.InputModalities[m]
}

func newCapabilities(in, out []Modality, tools, embedding bool) Capabilities {
	c := Capabilities{
		InputModalities:     make(map[Modality]bool, len(in)),
		OutputModalities:    make(map[Modality]bool, len(out)),
		SupportsToolCalling: tools,
		IsEmbeddingModel:    embedding,
	}
	for _, m := range in {
		c.InputModalities[m] = true
	}
	for _, m := range out {
		c.OutputModalities[m] = true
	}
	return c
}

var (
	standardTextToolCapabilities = newCapabilities(
		[]Modality{ModalityText}, []Modality{ModalityText}, true, false)

	geminiCapabilities = newCapabilities(
		[]Modality{ModalityText, ModalityImage, ModalityAudio, ModalityVideo},
		[]Modality{ModalityText}, true, false)
)

// modelAliasPatterns maps a glob pattern over a raw model name to the
// canonical name whose capabilities it should inherit.
var modelAliasPatterns = []struct {
	pattern   string
	canonical string
}{
	{"deepseek-v3*", "deepseek-chat"},
	{"deepseek-ai/DeepSeek-V3", "deepseek-chat"},
	{"deepseek-r1*", "deepseek-reasoner"},
}

// capabilitiesRegistry maps a glob pattern over a canonical model name to
// its Capabilities. Order matters for the fallback wildcard scan: more
// specific entries should be checked before catch-alls, mirroring the dict
// iteration order the original relied on (Python 3.7+ dict ordering).
var capabilitiesRegistry = []struct {
	pattern string
	caps    Capabilities
}{
	{"gemini-*-tts", newCapabilities([]Modality{ModalityText}, []Modality{ModalityAudio}, false, false)},
	{"gemini-*-native-audio-*", newCapabilities(
		[]Modality{ModalityText, ModalityAudio, ModalityVideo},
		[]Modality{ModalityText, ModalityAudio}, true, false)},
	{"gemini-2.0-flash-preview-image-generation", newCapabilities(
		[]Modality{ModalityText, ModalityImage, ModalityAudio, ModalityVideo},
		[]Modality{ModalityText, ModalityImage}, true, false)},
	{"gemini-embedding-exp", newCapabilities([]Modality{ModalityText}, []Modality{ModalityEmbedding}, false, true)},
	{"gemini-2.5-pro*", geminiCapabilities},
	{"gemini-1.5-pro*", geminiCapabilities},
	{"gemini-2.5-flash*", geminiCapabilities},
	{"gemini-2.0-flash*", geminiCapabilities},
	{"gemini-1.5-flash*", geminiCapabilities},
	{"GLM-4V-Flash", newCapabilities([]Modality{ModalityText, ModalityImage}, []Modality{ModalityText}, true, false)},
	{"GLM-4V-Plus*", newCapabilities([]Modality{ModalityText, ModalityImage, ModalityVideo}, []Modality{ModalityText}, true, false)},
	{"glm-4-*", standardTextToolCapabilities},
	{"glm-z1-*", standardTextToolCapabilities},
	{"deepseek-chat", standardTextToolCapabilities},
	{"deepseek-reasoner", standardTextToolCapabilities},
	{"text-embedding-*", newCapabilities([]Modality{ModalityText}, []Modality{ModalityEmbedding}, false, true)},
	{"gpt-4o*", newCapabilities([]Modality{ModalityText, ModalityImage}, []Modality{ModalityText}, true, false)},
	{"gpt-4-turbo*", newCapabilities([]Modality{ModalityText, ModalityImage}, []Modality{ModalityText}, true, false)},
	{"gpt-4.1*", newCapabilities([]Modality{ModalityText, ModalityImage}, []Modality{ModalityText}, true, false)},
	{"o1*", standardTextToolCapabilities},
	{"o3*", standardTextToolCapabilities},
	{"gpt-3.5-turbo*", standardTextToolCapabilities},
}

// GetCapabilities resolves a model name to its Capabilities by: alias
// pattern match, exact registry match, then wildcard scan, falling back to a
// text-only, non-tool-calling default. Mirrors
// zhenxun.services.llm.types.capabilities.get_model_capabilities.
func GetCapabilities(modelName string) Capabilities {
	canonical := modelName
	for _, a := range modelAliasPatterns {
		if ok, _ := filepath.Match(a.pattern, modelName); ok {
			canonical = a.canonical
			break
		}
	}

	for _, e := range capabilitiesRegistry {
		if e.pattern == canonical {
			return e.caps
		}
	}
	for _, e := range capabilitiesRegistry {
		if containsGlobChar(e.pattern) {
			if ok, _ := filepath.Match(e.pattern, modelName); ok {
				return e.caps
			}
		}
	}
	return newCapabilities([]Modality{ModalityText}, []Modality{ModalityText}, false, false)
}

func containsGlobChar(pattern string) bool {
	for _, r := range pattern {
		if r == '*' || r == '?' || r == '[' {
			return true
		}
	}
	return false
}
