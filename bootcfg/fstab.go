// Package bootcfg rewrites the two files that decide which partition a
// provisioned tree boots from: the fstab inside the tree and the kernel
// command line on the boot partition. Both rewriters splice the new
// device into the exact byte span of the old one, every other byte of
// the file survives untouched, and feeding a file that already points at
// the device is a no-op.
package bootcfg

import (
	"fmt"
	"os"
	"strings"

	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
)

type span struct {
	start, end int
}

// fieldSpans returns the byte spans of the whitespace-separated fields
// of line.
func fieldSpans(line string) []span {
	var spans []span
	inField := false
	start := 0
	for i := 0; i < len(line); i++ {
		isSpace := line[i] == ' ' || line[i] == '\t'
		if !inField && !isSpace {
			inField = true
			start = i
		} else if inField && isSpace {
			spans = append(spans, span{start, i})
			inField = false
		}
	}
	if inField {
		spans = append(spans, span{start, len(line)})
	}
	return spans
}

// UpdateFstab points the root entry of the fstab at path to device. Only
// the source field of lines whose mount point is exactly "/" changes;
// comments, blank lines and field spacing stay as they were. Errors when
// the file has no root entry.
func UpdateFstab(fs types.FS, path, device string) error {
	device = utils.NormalizeDevice(device)
	data, err := fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading fstab: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	patched := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		spans := fieldSpans(line)
		if len(spans) < 2 {
			continue
		}
		if line[spans[1].start:spans[1].end] != "/" {
			continue
		}
		patched++
		if line[spans[0].start:spans[0].end] == device {
			continue
		}
		lines[i] = line[:spans[0].start] + device + line[spans[0].end:]
	}
	if patched == 0 {
		return fmt.Errorf("no root entry found in %s", path)
	}

	return fs.WriteFile(path, []byte(strings.Join(lines, "\n")), statMode(fs, path))
}

func statMode(fs types.FS, path string) os.FileMode {
	mode := constants.FilePerm
	if info, err := fs.Stat(path); err == nil {
		mode = info.Mode()
	}
	return mode
}
