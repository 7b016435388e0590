package fsops

import "strings"

// split divides a logical path into its parent directory and final
// component. The root path ("") has no parent and splits to ("", "").
func split(path string) (dir, base string) {
	if path == "" {
		return "", ""
	}
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// join composes a parent path and a child name into a logical path, per
// spec §4.3's "path = parent.path / name".
func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
