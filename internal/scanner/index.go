package scanner

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/soyunomas/dupesweep/internal/entities"
)

// Index resuelve el tamaño de cada ruta y agrupa por tamaño exacto.
// Map: [Tamaño] -> [Archivos en orden de entrada]
//
// Las rutas cuyo stat falla se descartan con un SizeError; los archivos
// menores que minSize se descartan sin error. No filtra por patrones de ruta.
func Index(ctx context.Context, fsys afero.Fs, paths []string, minSize uint64) (entities.SizeBuckets, []*entities.Error, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	buckets := make(entities.SizeBuckets)
	var errs []*entities.Error

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return buckets, errs, err
		}

		info, err := fsys.Stat(path)
		if err != nil {
			errs = append(errs, entities.NewError(entities.SizeError, path, err))
			continue
		}
		if !info.Mode().IsRegular() {
			errs = append(errs, entities.NewError(entities.SizeError, path, fmt.Errorf("not a regular file")))
			continue
		}

		size := uint64(info.Size())
		if size < minSize {
			continue
		}

		devID, inode := getSysInfo(info)
		buckets.Add(&entities.FileRecord{
			Path:     path,
			Size:     size,
			ModTime:  info.ModTime(),
			DeviceID: devID,
			Inode:    inode,
			// Hash se calcula en la siguiente fase
		})
	}

	return buckets, errs, nil
}
