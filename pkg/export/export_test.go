package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Mentor applications",
		Headers: []string{"Name", "Status", "Score"},
		Rows: []map[string]string{
			{"Name": "Ada", "Status": "APPROVED", "Score": "85.00"},
			{"Name": "Linus", "Status": "COOLDOWN_ACTIVE"},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	out, err := Render(FormatCSV, sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Name,Status,Score\nAda,APPROVED,85.00\nLinus,COOLDOWN_ACTIVE,\n", string(out))
}

func TestRenderPDF(t *testing.T) {
	out, err := Render(FormatPDF, sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRejectsBadInput(t *testing.T) {
	_, err := Render(FormatCSV, Dataset{})
	require.Error(t, err)

	_, err = Render(Format("xlsx"), sampleDataset())
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 16))
}

func TestRenderCSVEscapesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Name", "Email"},
		Rows:    []map[string]string{{"Name": "=HYPERLINK(\"http://x\")", "Email": "@evil"}, {"Name": "Grace", "Email": "grace@example.com"}},
	}
	out, err := Render(FormatCSV, data)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"'=HYPERLINK(""http://x"")",'@evil`)
	assert.Contains(t, string(out), "Grace,grace@example.com")
}
