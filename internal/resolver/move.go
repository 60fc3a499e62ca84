package resolver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
)

// errCrossDevice indica que origen y destino están en particiones distintas.
var errCrossDevice = errors.New("cross-device move")

// moveNoReplace mueve src a dst y falla con fs.ErrExist si dst ya existe.
func moveNoReplace(src, dst string) error {
	err := renameNoReplace(src, dst)
	if errors.Is(err, errCrossDevice) {
		// os.Rename falla entre discos distintos: Copy + Remove
		return copyThenRemove(src, dst)
	}
	return err
}

// renameChecked es el camino sin rename atómico: chequeo + rename.
// El Resolver ya serializa los movimientos hacia su destino.
func renameChecked(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return fmt.Errorf("%w: %v", errCrossDevice, err)
		}
		return err
	}
	return nil
}

// copyThenRemove copia a un archivo creado con O_EXCL y luego borra el origen.
// Si algo falla, el origen queda intacto y se limpia la copia parcial.
func copyThenRemove(src, dst string) error {
	input, err := os.Open(src)
	if err != nil {
		return err
	}
	defer input.Close()

	info, err := input.Stat()
	if err != nil {
		return err
	}

	output, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(output, input); err != nil {
		output.Close()
		os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	// Sync + Close explícitos para asegurar el flush antes de borrar
	if err := output.Sync(); err != nil {
		output.Close()
		os.Remove(dst)
		return fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := output.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close %s: %w", dst, err)
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	input.Close()

	if err := os.Remove(src); err != nil {
		// No dejamos dos copias: se deshace la copia
		os.Remove(dst)
		return err
	}
	return nil
}
