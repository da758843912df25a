package contract

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/misterplus/btdex/internal/escrow"
	"github.com/misterplus/btdex/internal/lib"
)

var (
	ErrArtifactRead    = errors.New("cannot read template artifact")
	ErrArtifactDecode  = errors.New("invalid template artifact")
	ErrArtifactMissing = errors.New("template artifact missing a contract type")
)

// Template is the compiled escrow contract for one contract type, produced
// by the contract compiler and fixed for the process lifetime. The take
// method hash identifies take calls in transaction payloads; the code hash
// id keys the node's deployed-instance listing.
type Template struct {
	Type           escrow.ContractType
	Code           []byte
	TakeMethodHash uint64
	CodeHashID     uint64
}

// TakeMethodHashBytes returns the 8-byte little-endian form of the take
// method hash, the exact prefix a take call carries in its payload.
func (t *Template) TakeMethodHashBytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, t.TakeMethodHash)
	return b
}

// TakeMethodHashHex renders the little-endian hash as hex for diagnostics
func (t *Template) TakeMethodHashHex() string {
	return hex.EncodeToString(t.TakeMethodHashBytes())
}

type Templates map[escrow.ContractType]*Template

// LoadTemplates reads the compiler artifact file, one entry per contract
// type. All three types must be present.
func LoadTemplates(path string) (Templates, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, lib.WrapError(ErrArtifactRead, err)
	}

	var file map[string]templateJSON
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, lib.WrapError(ErrArtifactDecode, err)
	}

	keys := map[escrow.ContractType]string{
		escrow.TypeSell:          "sell",
		escrow.TypeSellNoDeposit: "sellNoDeposit",
		escrow.TypeBuy:           "buy",
	}

	templates := make(Templates, len(keys))
	for typ, key := range keys {
		entry, ok := file[key]
		if !ok {
			return nil, lib.WrapError(ErrArtifactMissing, fmt.Errorf("missing %q", key))
		}
		template, err := entry.toTemplate(typ)
		if err != nil {
			return nil, err
		}
		templates[typ] = template
	}
	return templates, nil
}

type templateJSON struct {
	MachineCode    string `json:"machineCode"`
	TakeMethodHash string `json:"takeMethodHash"`
	CodeHashID     string `json:"codeHashId"`
}

func (j templateJSON) toTemplate(typ escrow.ContractType) (*Template, error) {
	code, err := hex.DecodeString(j.MachineCode)
	if err != nil {
		return nil, lib.WrapError(ErrArtifactDecode, err)
	}
	if len(code) == 0 {
		return nil, lib.WrapError(ErrArtifactDecode, fmt.Errorf("%s: empty machine code", typ))
	}
	takeHash, err := strconv.ParseUint(j.TakeMethodHash, 10, 64)
	if err != nil {
		return nil, lib.WrapError(ErrArtifactDecode, err)
	}
	codeHashID, err := strconv.ParseUint(j.CodeHashID, 10, 64)
	if err != nil {
		return nil, lib.WrapError(ErrArtifactDecode, err)
	}
	return &Template{
		Type:           typ,
		Code:           code,
		TakeMethodHash: takeHash,
		CodeHashID:     codeHashID,
	}, nil
}
