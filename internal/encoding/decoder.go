package encoding

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeCommandOutput decodes the output of a hook command. Console programs
// on Windows often write in the OEM code page instead of UTF-8, so anything
// that is not valid UTF-8 is decoded as code page 850. The result is always
// valid UTF-8.
func DecodeCommandOutput(input []byte) (string, error) {
	trimmedInput := bytes.TrimSpace(input)

	var decoded string

	if utf8.Valid(trimmedInput) {
		decoded = string(trimmedInput)
	} else {
		reader := charmap.CodePage850.NewDecoder().Reader(bytes.NewReader(trimmedInput))
		output, err := io.ReadAll(reader)
		if err != nil {
			return "", err
		}
		decoded = string(output)
	}

	return strings.ToValidUTF8(decoded, ""), nil
}
