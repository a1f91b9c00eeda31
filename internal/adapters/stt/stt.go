// Package stt holds the speech-to-text adapters. Each one performs a single
// upstream call sequence and reports failures through the provider taxonomy.
package stt

import (
	"encoding/base64"
	"strings"

	"github.com/ent0n29/vaani/internal/audio"
	"github.com/ent0n29/vaani/internal/provider"
)

// format resolves the container of a request, sniffing when the caller
// did not say.
func format(req provider.STTRequest) string {
	if f := strings.ToLower(strings.TrimSpace(req.Format)); f != "" {
		return f
	}
	return audio.Sniff(req.Audio)
}

func dataURL(req provider.STTRequest) string {
	return "data:" + audio.ContentType(format(req)) + ";base64," + base64.StdEncoding.EncodeToString(req.Audio)
}

func emptyAudio(name string) error {
	return provider.Rejected(name, "empty audio")
}
