package utils

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/multiroot-io/multiroot/types"
)

// OSRelease returns the value of key from the first readable os-release
// style file in files. Values come back unquoted the way the file's
// shell-compatible format defines them.
func OSRelease(fs types.FS, key string, files ...string) (string, error) {
	var release map[string]string
	for _, f := range files {
		data, err := fs.ReadFile(f)
		if err != nil {
			continue
		}
		release, err = godotenv.UnmarshalBytes(data)
		if err == nil {
			break
		}
	}
	if release == nil {
		return "", fmt.Errorf("no os-release file found among %v", files)
	}
	v, exists := release[key]
	if !exists {
		return "", fmt.Errorf("%s not set in os-release", key)
	}
	return v, nil
}
