package bootcfg

import (
	"fmt"
	"strings"

	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
)

// tokenSpans returns the byte spans of the whitespace-separated tokens of
// a kernel command line. Newlines count as separators so a trailing
// newline never becomes part of a token.
func tokenSpans(content string) []span {
	var spans []span
	inTok := false
	start := 0
	for i := 0; i < len(content); i++ {
		c := content[i]
		isSpace := c == ' ' || c == '\t' || c == '\n' || c == '\r'
		if !inTok && !isSpace {
			inTok = true
			start = i
		} else if inTok && isSpace {
			spans = append(spans, span{start, i})
			inTok = false
		}
	}
	if inTok {
		spans = append(spans, span{start, len(content)})
	}
	return spans
}

// UpdateCmdline points the root= parameter of the kernel command line at
// path to device. Only the first root= token changes and only its value
// bytes are spliced, so spacing, ordering, any other parameters and the
// trailing newline stay exactly as they were. A parameter merely ending
// in "root=" (nfsroot=, usbroot=) is not a root= token. Errors when the
// file has no root= parameter.
func UpdateCmdline(fs types.FS, path, device string) error {
	device = utils.NormalizeDevice(device)
	data, err := fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading cmdline: %w", err)
	}

	content := string(data)
	for _, s := range tokenSpans(content) {
		if !strings.HasPrefix(content[s.start:s.end], "root=") {
			continue
		}
		if content[s.start:s.end] == "root="+device {
			return nil
		}
		patched := content[:s.start] + "root=" + device + content[s.end:]
		return fs.WriteFile(path, []byte(patched), statMode(fs, path))
	}
	return fmt.Errorf("no root= parameter found in %s", path)
}

// CmdlineRoot returns the device the first root= parameter of the kernel
// command line at path references.
func CmdlineRoot(fs types.FS, path string) (string, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading cmdline: %w", err)
	}

	content := string(data)
	for _, s := range tokenSpans(content) {
		if strings.HasPrefix(content[s.start:s.end], "root=") {
			return strings.TrimPrefix(content[s.start:s.end], "root="), nil
		}
	}
	return "", fmt.Errorf("no root= parameter found in %s", path)
}
