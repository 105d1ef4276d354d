package lenient

import "testing"

type payload struct {
	Title string `json:"title"`
	Level int    `json:"level"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTitle string
		wantErr   bool
	}{
		{
			name:      "strict JSON",
			raw:       `{"title":"Overbooked Night","level":3}`,
			wantTitle: "Overbooked Night",
		},
		{
			name:      "leading and trailing prose",
			raw:       "Sure! Here is the scenario:\n{\"title\":\"Late Checkout\",\"level\":1}\nLet me know if you need changes.",
			wantTitle: "Late Checkout",
		},
		{
			name:      "markdown fence",
			raw:       "```json\n{\"title\":\"Noise Complaint\",\"level\":2}\n```",
			wantTitle: "Noise Complaint",
		},
		{
			name:      "nested braces",
			raw:       `prefix {"title":"Nested","level":1,"extra":{"a":{"b":2}}} suffix`,
			wantTitle: "Nested",
		},
		{
			name:      "brace inside string value",
			raw:       `{"title":"Curly } Brace","level":1}`,
			wantTitle: "Curly } Brace",
		},
		{
			name:    "no JSON at all",
			raw:     "I could not produce a scenario this time.",
			wantErr: true,
		},
		{
			name:    "unterminated object",
			raw:     `{"title":"Broken","level":`,
			wantErr: true,
		},
		{
			name:    "empty input",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := Decode(tt.raw, &got)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Decode() = nil error, want failure (got %+v)", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
		})
	}
}

func TestExtractObjectEscapedQuote(t *testing.T) {
	raw := `{"title":"She said \"no { deal }\"","level":1}`
	if got := ExtractObject(raw); got != raw {
		t.Errorf("ExtractObject() = %q, want full object", got)
	}
}
