package tts

import (
	"encoding/json"

	"github.com/ent0n29/vaani/internal/provider"
)

func marshal(name string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, provider.Rejected(name, "encode request: "+err.Error())
	}
	return b, nil
}
