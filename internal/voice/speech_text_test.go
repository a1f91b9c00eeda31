package voice

import "testing"

func TestSpeakableText(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "   ", ""},
		{"markdown", "**Namaste!** See [the docs](https://example.com) now.", "Namaste! See the docs now."},
		{"list", "- first\n- second", "first second"},
		{"code", "Run `go test` please", "Run please"},
		{"emoji", "Hello 👋 there", "Hello there"},
		{"devanagari", "नमस्ते। आप कैसे हैं?", "नमस्ते। आप कैसे हैं?"},
		{"tamil vowel signs", "வணக்கம்", "வணக்கம்"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SpeakableText(tc.in); got != tc.want {
				t.Fatalf("SpeakableText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
