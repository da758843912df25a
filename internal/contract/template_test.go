package contract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/misterplus/btdex/internal/escrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArtifact = `{
	"sell":          {"machineCode": "010203", "takeMethodHash": "6638222143630714500", "codeHashId": "111"},
	"sellNoDeposit": {"machineCode": "040506", "takeMethodHash": "2",                   "codeHashId": "222"},
	"buy":           {"machineCode": "070809", "takeMethodHash": "3",                   "codeHashId": "333"}
}`

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contracts.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTemplates(t *testing.T) {
	templates, err := LoadTemplates(writeArtifact(t, sampleArtifact))
	require.NoError(t, err)
	require.Len(t, templates, 3)

	sell := templates[escrow.TypeSell]
	assert.Equal(t, escrow.TypeSell, sell.Type)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, sell.Code)
	assert.Equal(t, uint64(111), sell.CodeHashID)

	// 6638222143630714500 == 0x5c1fb3de6b3da684, little-endian on the wire
	assert.Equal(t, "84a63d6bdeb31f5c", sell.TakeMethodHashHex())
	assert.Equal(t, []byte{0x84, 0xa6, 0x3d, 0x6b, 0xde, 0xb3, 0x1f, 0x5c}, sell.TakeMethodHashBytes())
}

func TestLoadTemplatesMissingType(t *testing.T) {
	_, err := LoadTemplates(writeArtifact(t, `{"sell": {"machineCode": "01", "takeMethodHash": "1", "codeHashId": "1"}}`))
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestLoadTemplatesBadCode(t *testing.T) {
	_, err := LoadTemplates(writeArtifact(t, `{
		"sell":          {"machineCode": "zz", "takeMethodHash": "1", "codeHashId": "1"},
		"sellNoDeposit": {"machineCode": "01", "takeMethodHash": "1", "codeHashId": "1"},
		"buy":           {"machineCode": "01", "takeMethodHash": "1", "codeHashId": "1"}
	}`))
	assert.ErrorIs(t, err, ErrArtifactDecode)
}
