package entities

import (
	"errors"
	"fmt"
)

// ErrNoScannableRoots es el único error fatal de una ejecución.
var ErrNoScannableRoots = errors.New("no scannable root paths")

// ErrorKind clasifica los fallos por etapa.
type ErrorKind int

const (
	EnumerationError ErrorKind = iota // Raíz inexistente o ilegible
	SizeError                         // No se pudo hacer stat
	ReadError                         // No se pudo leer durante el hash
	ResolutionError                   // Falló mover o borrar
)

var kindNames = map[ErrorKind]string{
	EnumerationError: "enumeration",
	SizeError:        "size",
	ReadError:        "read",
	ResolutionError:  "resolution",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText permite serializar el tipo como texto en JSON/YAML.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error es un fallo no fatal asociado a una ruta.
type Error struct {
	Kind ErrorKind `json:"kind" yaml:"kind"`
	Path string    `json:"path" yaml:"path"`
	Err  error     `json:"-" yaml:"-"`
}

// NewError construye un *Error.
func NewError(kind ErrorKind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause devuelve el mensaje de la causa (para reportes).
func (e *Error) Cause() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// CountByKind cuenta errores por categoría.
func CountByKind(errs []*Error) map[ErrorKind]int {
	counts := make(map[ErrorKind]int)
	for _, e := range errs {
		counts[e.Kind]++
	}
	return counts
}
