package utils

import (
	"path/filepath"
	"strings"
)

// GetPathInfo returns the absolute form of relPath and its parent directory.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// Artifacts are the files one build produces.
type Artifacts struct {
	Asm    string
	Object string
	Exe    string
}

// OutputBase strips the extension from a source path: "dir/prog.gra" -> "dir/prog".
func OutputBase(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source))
}

// ArtifactPaths derives absolute artifact paths from an output base path.
// A trailing extension equal to exeExt is ignored.
func ArtifactPaths(output, objExt, exeExt string) (Artifacts, error) {
	full, _, err := GetPathInfo(output)
	if err != nil {
		return Artifacts{}, err
	}
	if exeExt != "" {
		full = strings.TrimSuffix(full, exeExt)
	}
	return Artifacts{
		Asm:    full + ".asm",
		Object: full + objExt,
		Exe:    full + exeExt,
	}, nil
}
