//go:build !linux

package resolver

func renameNoReplace(src, dst string) error {
	return renameChecked(src, dst)
}
