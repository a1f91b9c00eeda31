package provider

import (
	"errors"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func TestBuildChainPreferredFirstAndDeduplicated(t *testing.T) {
	defaults := []string{"groq", "together", "mistral", "llama", "deepseek"}
	got := BuildChain(CapabilityLLM, defaults, "mistral")
	want := []string{"mistral", "groq", "together", "llama", "deepseek"}
	if !reflect.DeepEqual(got.Keys, want) {
		t.Fatalf("Keys = %v, want %v", got.Keys, want)
	}
	if got.Terminal() != "deepseek" {
		t.Fatalf("Terminal() = %q, want %q", got.Terminal(), "deepseek")
	}
}

func TestBuildChainSkipsBlankPreference(t *testing.T) {
	got := BuildChain(CapabilitySTT, []string{"google_stt", "deepgram"}, "", "  ", "deepgram")
	want := []string{"deepgram", "google_stt"}
	if !reflect.DeepEqual(got.Keys, want) {
		t.Fatalf("Keys = %v, want %v", got.Keys, want)
	}
}

func TestBuildChainProperties(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e", "f", ""}
	rapid.Check(t, func(rt *rapid.T) {
		defaults := rapid.SliceOf(rapid.SampledFrom(pool)).Draw(rt, "defaults")
		preferred := rapid.SliceOf(rapid.SampledFrom(pool)).Draw(rt, "preferred")

		chain := BuildChain(CapabilityTTS, defaults, preferred...)

		seen := make(map[string]bool)
		for _, k := range chain.Keys {
			if k == "" {
				rt.Fatalf("blank key in chain %v", chain.Keys)
			}
			if seen[k] {
				rt.Fatalf("duplicate key %q in chain %v", k, chain.Keys)
			}
			seen[k] = true
		}
		for _, k := range append(append([]string(nil), preferred...), defaults...) {
			if k != "" && !seen[k] {
				rt.Fatalf("key %q missing from chain %v", k, chain.Keys)
			}
		}
		for _, k := range preferred {
			if k != "" {
				if chain.Keys[0] != k {
					rt.Fatalf("first key = %q, want first non-blank preference %q", chain.Keys[0], k)
				}
				break
			}
		}
	})
}

func TestValidateChainRejectsCycleAndUnknown(t *testing.T) {
	known := func(k string) bool { return k != "ghost" }

	if err := ValidateChain(CapabilityLLM, []string{"groq", "together"}, known); err != nil {
		t.Fatalf("ValidateChain() error = %v", err)
	}
	if err := ValidateChain(CapabilityLLM, []string{"groq", "together", "groq"}, known); err == nil {
		t.Fatalf("ValidateChain() expected cycle error")
	}
	if err := ValidateChain(CapabilityLLM, nil, known); err == nil {
		t.Fatalf("ValidateChain() expected empty chain error")
	}
	err := ValidateChain(CapabilityLLM, []string{"groq", "ghost"}, known)
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("error = %v, want ErrUnknownProvider", err)
	}
}

func TestNewCatalogRejectsBadOverride(t *testing.T) {
	if _, err := NewCatalog(map[Capability][]string{CapabilityTTS: {"edge_tts", "edge_tts"}}); err == nil {
		t.Fatalf("NewCatalog() expected error for cyclic override")
	}
	c, err := NewCatalog(map[Capability][]string{CapabilityTTS: {"edge_tts"}})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	if got := c.DefaultChain(CapabilityTTS); !reflect.DeepEqual(got, []string{"edge_tts"}) {
		t.Fatalf("DefaultChain(tts) = %v, want [edge_tts]", got)
	}
}
