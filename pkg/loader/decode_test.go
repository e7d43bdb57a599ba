package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format ModelFormat
	}{
		{
			name:   "json",
			input:  `{"tools": [{"name": "Jenkins"}]}`,
			format: ModelFormatJSON,
		},
		{
			name:   "json auto detected",
			input:  "  \n{\"tools\": [{\"name\": \"Jenkins\"}]}",
			format: ModelFormatAuto,
		},
		{
			name:   "trailing comma and single quotes",
			input:  `{tools: [{'name': 'Jenkins'},],}`,
			format: ModelFormatJSON,
		},
		{
			name:   "missing closing brackets",
			input:  `{"tools": [{"name": "Jenkins"`,
			format: ModelFormatAuto,
		},
		{
			name:   "double encoded",
			input:  `"{\"tools\": [{\"name\": \"Jenkins\"}]}"`,
			format: ModelFormatAuto,
		},
		{
			name:   "yaml",
			input:  "tools:\n  - name: Jenkins\n",
			format: ModelFormatYAML,
		},
		{
			name:   "yaml auto detected",
			input:  "tools:\n  - name: Jenkins\n",
			format: ModelFormatAuto,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := Decode([]byte(tt.input), tt.format)
			require.NoError(t, err)

			tools := model.Entities("tools")
			require.Len(t, tools, 1)
			name, ok := tools[0].ID("name")
			require.True(t, ok)
			assert.Equal(t, "Jenkins", name)
		})
	}
}

func TestDecode_YAMLNonStringKeys(t *testing.T) {
	input := "servers:\n  - hostname: vm-01\n    ports:\n      80: http\n      443: https\n"

	model, err := Decode([]byte(input), ModelFormatYAML)
	require.NoError(t, err)

	servers := model.Entities("servers")
	require.Len(t, servers, 1)
	assert.Equal(t, map[string]any{"80": "http", "443": "https"}, servers[0].Map("ports"))
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format ModelFormat
	}{
		{name: "yaml list root", input: "- a\n- b\n", format: ModelFormatYAML},
		{name: "scalar root", input: "just words", format: ModelFormatAuto},
		{name: "unknown format", input: `{}`, format: ModelFormat("toml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input), tt.format)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestDecode_JSONListRoot(t *testing.T) {
	_, err := Decode([]byte(`[1, 2]`), ModelFormatJSON)
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, ModelFormatJSON, FormatFromPath("models/org.JSON"))
	assert.Equal(t, ModelFormatYAML, FormatFromPath("org.yml"))
	assert.Equal(t, ModelFormatYAML, FormatFromPath("org.yaml"))
	assert.Equal(t, ModelFormatAuto, FormatFromPath("org"))
}

type staticSource struct {
	content []byte
	calls   int
}

func (s *staticSource) GetModelBytes(_ context.Context, _ ModelFile) ([]byte, error) {
	s.calls++
	return s.content, nil
}

func TestLoad(t *testing.T) {
	src := &staticSource{content: []byte("teams:\n  - name: Ops\n")}

	model, err := Load(context.Background(), NewModelFile("m1", "org.yaml", src))
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Len(t, model.Entities("teams"), 1)
	assert.IsType(t, common.OrganizationModel{}, model)

	_, err = Load(context.Background(), ModelFile{Path: "org.yaml"})
	assert.Error(t, err)
}
