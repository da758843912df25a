package contract

import "bytes"

// VerifyCode reports whether deployed machine code is a genuine copy of the
// template. The deployed code must be at least as long as the template and
// byte-identical over the template's length; anything else is untrusted.
// Prefix matching does not validate creation parameters or the initial data
// segment, which is a known gap of the protocol.
func VerifyCode(deployed, template []byte) bool {
	if len(deployed) < len(template) {
		return false
	}
	return bytes.Equal(deployed[:len(template)], template)
}

// Verify classifies deployed code against this template
func (t *Template) Verify(deployed []byte) bool {
	return VerifyCode(deployed, t.Code)
}
