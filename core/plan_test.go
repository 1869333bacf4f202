package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"plan": [{"section_name": "Imports", "description": "import os"}, {"section_name": "Main", "description": "run"}]}`,
			want: []string{"Imports", "Main"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"plan\": [{\"section_name\": \"Imports\", \"description\": \"x\"}]}\n```",
			want: []string{"Imports"},
		},
		{
			name: "unknown keys ignored",
			raw:  `{"version": 2, "plan": [{"section_name": "Imports", "description": "x", "priority": 1}]}`,
			want: []string{"Imports"},
		},
		{
			name: "missing section name",
			raw:  `{"plan": [{"section_name": "Imports", "description": "x"}, {"description": "y"}]}`,
			want: []string{"Imports", "Section 2"},
		},
		{name: "not json", raw: "Here is your plan!", wantErr: true},
		{name: "missing plan key", raw: `{"steps": []}`, wantErr: true},
		{name: "empty plan", raw: `{"plan": []}`, wantErr: true},
		{name: "plan is not a list", raw: `{"plan": "imports then main"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ParsePlan(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tt.raw, pe.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Names())
		})
	}
}

func TestParsePlan_KeepsDescriptions(t *testing.T) {
	plan, err := ParsePlan(`{"plan": [{"section_name": " UI ", "description": "Title 'Converter', one number input"}]}`)
	require.NoError(t, err)
	assert.Equal(t, Plan{{SectionName: "UI", Description: "Title 'Converter', one number input"}}, plan)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean", "import os\nprint(1)", "import os\nprint(1)"},
		{"python fence", "```python\nimport os\n```", "import os"},
		{"bare fence", "```\nx = 1\n```\n", "x = 1"},
		{"json fence", "```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"surrounding space", "\n\n  ```py\nx\n```  \n", "x"},
		{"inner fence lines", "```python\na\n```\n```python\nb\n```", "a\nb"},
		{"inline backticks kept", "s = \"use ``` fences\"", "s = \"use ``` fences\""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripCodeFences(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, StripCodeFences(got), "stripping must be idempotent")
		})
	}
}
