package types

import (
	"errors"
	"sync"
)

// Error kinds let a rate error keep its sentinel across the raw form.
var (
	kindsMu sync.RWMutex
	kinds   []errorKind
)

type errorKind struct {
	name string
	err  error
}

// RegisterErrorKind names a sentinel so rate errors wrapping it round-trip with errors.Is intact
func RegisterErrorKind(name string, err error) {
	kindsMu.Lock()
	defer kindsMu.Unlock()

	for i := range kinds {
		if kinds[i].name == name {
			kinds[i].err = err
			return
		}
	}
	kinds = append(kinds, errorKind{name: name, err: err})
}

func errorKindOf(err error) string {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

func errorForKind(name string) error {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	for _, k := range kinds {
		if k.name == name {
			return k.err
		}
	}
	return nil
}

// decodedError is an error read back from its raw message
type decodedError struct {
	msg  string
	kind error
}

func (e *decodedError) Error() string { return e.msg }

func (e *decodedError) Unwrap() error { return e.kind }

func decodeError(msg, kind string) error {
	return &decodedError{msg: msg, kind: errorForKind(kind)}
}
