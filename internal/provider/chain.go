package provider

import (
	"fmt"
	"strings"
)

// Chain is the ordered, deduplicated list of provider keys tried for one capability.
type Chain struct {
	Capability Capability
	Keys       []string
}

// BuildChain puts preferred keys first, then appends defaults. Blank and
// repeated keys are dropped so a provider is never attempted twice.
func BuildChain(capability Capability, defaults []string, preferred ...string) Chain {
	keys := make([]string, 0, len(preferred)+len(defaults))
	seen := make(map[string]struct{}, cap(keys))
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" {
			return
		}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, k := range preferred {
		add(k)
	}
	for _, k := range defaults {
		add(k)
	}
	return Chain{Capability: capability, Keys: keys}
}

// Terminal is the last provider tried; it has no further fallback.
func (c Chain) Terminal() string {
	if len(c.Keys) == 0 {
		return ""
	}
	return c.Keys[len(c.Keys)-1]
}

func (c Chain) Len() int { return len(c.Keys) }

// ValidateChain checks a configured default ordering. Consecutive keys form
// primary->fallback edges; a repeated key would close a cycle.
func ValidateChain(capability Capability, keys []string, known func(string) bool) error {
	if len(keys) == 0 {
		return fmt.Errorf("%s chain: no terminal provider", capability)
	}
	next := make(map[string]string, len(keys))
	for i, k := range keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%s chain: blank provider at position %d", capability, i)
		}
		if known != nil && !known(k) {
			return fmt.Errorf("%s chain: %w %q", capability, ErrUnknownProvider, k)
		}
		if _, dup := next[k]; dup {
			return fmt.Errorf("%s chain: fallback from %q cycles back to itself", capability, k)
		}
		next[k] = ""
		if i > 0 {
			next[keys[i-1]] = k
		}
	}

	// Walk the edges from the head; reaching a key with no successor proves termination.
	cur, steps := keys[0], 0
	for next[cur] != "" {
		cur = next[cur]
		steps++
		if steps > len(keys) {
			return fmt.Errorf("%s chain: fallback edges cycle", capability)
		}
	}
	return nil
}
