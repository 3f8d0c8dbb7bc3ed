package urlsanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain_url_passes_through",
			input:    "https://example.com/photo.png",
			expected: "https://example.com/photo.png",
		},
		{
			name:     "data_uri_passes_through",
			input:    "data:image/png;base64,AAAA",
			expected: "data:image/png;base64,AAAA",
		},
		{
			name:     "json_object_with_url_is_reserialized",
			input:    `{"url":"https://example.com/a.png"}`,
			expected: `{"url":"https://example.com/a.png"}`,
		},
		{
			name:     "json_object_is_reserialized",
			input:    `{"foo":"bar"}`,
			expected: `{"foo":"bar"}`,
		},
		{
			name:     "broken_json_falls_back_to_embedded_url",
			input:    `{"url":"https://example.com/a.png`,
			expected: "https://example.com/a.png",
		},
		{
			name:     "broken_json_falls_back_to_embedded_data_uri",
			input:    `{"image":"data:image/jpeg;base64,QUFB`,
			expected: "data:image/jpeg;base64,QUFB",
		},
		{
			name:     "broken_json_without_any_reference_yields_empty",
			input:    `{"oops`,
			expected: "",
		},
		{
			name:     "url_buried_in_garbage_is_extracted",
			input:    "garbage before http://x.com/a.png garbage after",
			expected: "http://x.com/a.png",
		},
		{
			name:     "text_without_reference_passes_through",
			input:    "just some text",
			expected: "just some text",
		},
		{
			name:     "empty_input",
			input:    "",
			expected: "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, Sanitize(testCase.input))
		})
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/photo.png",
		"data:image/png;base64,AAAA",
		`{"foo":"bar"}`,
		"garbage before http://x.com/a.png garbage after",
		`{"url":"https://example.com/a.png`,
		"just some text",
		"",
	}

	for _, input := range inputs {
		once := Sanitize(input)
		assert.Equal(t, once, Sanitize(once), "input %q", input)
	}
}
