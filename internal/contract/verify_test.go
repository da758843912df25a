package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyCode(t *testing.T) {
	template := []byte{0x01, 0x02, 0x03, 0x04}

	cases := []struct {
		name     string
		deployed []byte
		trusted  bool
	}{
		{"exact copy", []byte{0x01, 0x02, 0x03, 0x04}, true},
		{"superset prefix", []byte{0x01, 0x02, 0x03, 0x04, 0xff, 0xff}, true},
		{"shorter", []byte{0x01, 0x02, 0x03}, false},
		{"first byte differs", []byte{0x00, 0x02, 0x03, 0x04}, false},
		{"last byte differs", []byte{0x01, 0x02, 0x03, 0x05, 0xff}, false},
		{"empty", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.trusted, VerifyCode(tc.deployed, template))
		})
	}
}
