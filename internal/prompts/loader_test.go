package prompts

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	ClearCache()

	t.Run("known key", func(t *testing.T) {
		prompt, err := Get("analysis.json", "analyze-document")
		require.NoError(t, err)
		assert.Contains(t, prompt, "Analyze the following document")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Get("nonexistent.json", "some-key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read prompt file")
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := Get("analysis.json", "nonexistent-key")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("repeated lookups are stable", func(t *testing.T) {
		first, err := Get("analysis.json", "analyze-document")
		require.NoError(t, err)
		second, err := Get("analysis.json", "analyze-document")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet("testcases.json", "write-test-cases"))
	})
	assert.Panics(t, func() { MustGet("nonexistent.json", "some-key") })
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("analysis.json")
	require.NoError(t, err)
	assert.Contains(t, keys, "analyze-document")
	assert.True(t, slices.IsSorted(keys), "keys should come back sorted")
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{
			name:     "substitutes all placeholders",
			template: "Analyze {{.DocumentContent}} for {{.Purpose}}",
			data:     map[string]string{"DocumentContent": "the login spec", "Purpose": "test generation"},
			want:     "Analyze the login spec for test generation",
		},
		{
			name:     "no placeholders",
			template: "No placeholders here",
			data:     map[string]string{"Key": "Value"},
			want:     "No placeholders here",
		},
		{
			name:     "unmatched placeholder stays",
			template: "Hello {{.Name}}",
			data:     map[string]string{},
			want:     "Hello {{.Name}}",
		},
		{
			name:     "values are not re-expanded",
			template: "{{.Outer}}",
			data:     map[string]string{"Outer": "{{.Inner}}", "Inner": "leaked"},
			want:     "{{.Inner}}",
		},
		{
			name:     "repeated placeholder",
			template: "{{.X}} and {{.X}}",
			data:     map[string]string{"X": "twice"},
			want:     "twice and twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestStagePromptsDeclareOutputShape(t *testing.T) {
	ClearCache()

	// Every generation prompt pins the exact JSON structure the stage
	// output types unmarshal into.
	checks := map[string]map[string]string{
		"analysis.json": {
			"analyze-document":       `"document_type"`,
			"decompose-requirements": `"functional_requirements"`,
			"identify-edge-cases":    `"boundary_values"`,
		},
		"testcases.json": {
			"write-test-cases":  `"test_cases"`,
			"review-test-cases": `"improved_test_cases"`,
			"finalize-test-set": `"final_test_cases"`,
		},
	}

	for filename, keys := range checks {
		for key, marker := range keys {
			prompt, err := Get(filename, key)
			require.NoError(t, err, "%s/%s", filename, key)
			assert.Contains(t, prompt, marker, "%s/%s", filename, key)
			assert.Contains(t, prompt, "Return ONLY valid JSON", "%s/%s", filename, key)
		}
	}
}

func TestCleanupPromptsTakeText(t *testing.T) {
	ClearCache()

	keys, err := List("cleanup.json")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"clean-pdf-text", "clean-spreadsheet-text", "clean-generic-text"}, keys)

	for _, key := range keys {
		prompt, err := Get("cleanup.json", key)
		require.NoError(t, err)
		assert.Contains(t, prompt, "{{.Text}}")
	}
}
