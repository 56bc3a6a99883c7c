package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type entry struct {
	Path string `json:"path" yaml:"path"`
	Type string `json:"type" yaml:"type"`
}

type listing []entry

func (l listing) Headers() []string { return []string{"Path", "Type"} }

func (l listing) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, []string{e.Path, e.Type})
	}
	return rows
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{" JSON ", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter(t *testing.T) {
	data := listing{{Path: "/a/b", Type: "file"}, {Path: "/a/c", Type: "directory"}}

	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable).Print(data))

		out := buf.String()
		assert.Contains(t, out, "PATH")
		assert.Contains(t, out, "/a/b")
		assert.Contains(t, out, "directory")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatJSON).Print(data))

		var got []entry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, []entry(data), got)
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatYAML).Print(data))

		var got []entry
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, []entry(data), got)
	})

	t.Run("TableFallsBackToJSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable).Print(map[string]bool{"same": true}))
		assert.JSONEq(t, `{"same": true}`, buf.String())
	})

	t.Run("MessageOnlyForTables", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf, FormatJSON).Message("Deleted %s", "/x")
		assert.Empty(t, buf.String())

		NewPrinter(&buf, FormatTable).Message("Deleted %s", "/x")
		assert.Equal(t, "Deleted /x\n", buf.String())
	})
}

func TestPrintKeyValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintKeyValues(&buf, [][2]string{{"Name", "memfs"}, {"Read only", "false"}}))

	out := buf.String()
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "memfs")
	assert.Contains(t, out, "Read only")
}
