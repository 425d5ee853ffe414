package agent

import "testing"

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "Here you go:\n```json\n{\"a\":1}\n```\nDone.", `{"a":1}`},
		{"unlabeled fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", "The result is {\"a\":1} as requested", `{"a":1}`},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSON(tc.in); got != tc.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Summary string `json:"summary"`
	}
	if err := DecodeJSON("```json\n{\"summary\":\"ok\"}\n```", &v); err != nil {
		t.Fatal(err)
	}
	if v.Summary != "ok" {
		t.Errorf("summary = %q", v.Summary)
	}

	if err := DecodeJSON("no json here", &v); err == nil {
		t.Error("expected parse error")
	}
}
