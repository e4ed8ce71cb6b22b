package accdist

import (
	"algoexec/pkg/algo/params"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUIDef_RowsReferenceFields(t *testing.T) {
	def := GetUIDef()
	for _, section := range def.Sections {
		for _, row := range section.Rows {
			for _, name := range row {
				assert.Contains(t, def.Fields, name, "section %s", section.Name)
			}
		}
	}
}

func TestGetUIDef_Options(t *testing.T) {
	def := GetUIDef()
	assert.Len(t, def.Fields["orderType"].Options, 3)
	assert.Len(t, def.Fields["relativeOffset.type"].Options, len(params.PriceRefTypes))
	assert.Equal(t, "RELATIVE", def.Sections[1].Visible["orderType"]["eq"])

	data, err := json.Marshal(def)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"accumulate_distribute"`)
}
