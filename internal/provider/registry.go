package provider

import "sort"

// Registry maps provider keys to adapters, indexed by capability. Adapters are
// registered during startup; afterwards the registry is only read.
type Registry struct {
	stt       map[string]STTAdapter
	llm       map[string]LLMAdapter
	tts       map[string]TTSAdapter
	telephony map[string]TelephonyAdapter
	clone     map[string]VoiceCloneAdapter
}

func NewRegistry() *Registry {
	return &Registry{
		stt:       make(map[string]STTAdapter),
		llm:       make(map[string]LLMAdapter),
		tts:       make(map[string]TTSAdapter),
		telephony: make(map[string]TelephonyAdapter),
		clone:     make(map[string]VoiceCloneAdapter),
	}
}

func (r *Registry) RegisterSTT(key string, a STTAdapter)             { r.stt[key] = a }
func (r *Registry) RegisterLLM(key string, a LLMAdapter)             { r.llm[key] = a }
func (r *Registry) RegisterTTS(key string, a TTSAdapter)             { r.tts[key] = a }
func (r *Registry) RegisterTelephony(key string, a TelephonyAdapter) { r.telephony[key] = a }
func (r *Registry) RegisterVoiceClone(key string, a VoiceCloneAdapter) {
	r.clone[key] = a
}

func (r *Registry) STT(key string) (STTAdapter, bool) {
	a, ok := r.stt[key]
	return a, ok
}

func (r *Registry) LLM(key string) (LLMAdapter, bool) {
	a, ok := r.llm[key]
	return a, ok
}

func (r *Registry) TTS(key string) (TTSAdapter, bool) {
	a, ok := r.tts[key]
	return a, ok
}

func (r *Registry) Telephony(key string) (TelephonyAdapter, bool) {
	a, ok := r.telephony[key]
	return a, ok
}

func (r *Registry) VoiceClone(key string) (VoiceCloneAdapter, bool) {
	a, ok := r.clone[key]
	return a, ok
}

// Keys lists registered provider keys for a capability in sorted order.
func (r *Registry) Keys(capability Capability) []string {
	var keys []string
	switch capability {
	case CapabilitySTT:
		keys = mapKeys(r.stt)
	case CapabilityLLM:
		keys = mapKeys(r.llm)
	case CapabilityTTS:
		keys = mapKeys(r.tts)
	case CapabilityTelephony:
		keys = mapKeys(r.telephony)
	case CapabilityVoiceClone:
		keys = mapKeys(r.clone)
	}
	sort.Strings(keys)
	return keys
}

func mapKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
