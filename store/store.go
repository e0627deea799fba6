package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sw965/cartpole/policy"
	omwjson "github.com/sw965/omw/json"
)

// ErrNotExist marks a load or delete of a key with no saved model.
// Callers are expected to branch on it with errors.Is.
var ErrNotExist = errors.New("store: no saved model")

type Info struct {
	SavedAt time.Time
}

// Store keeps trained policy parameters under a directory, one JSON
// file per key. The architecture travels with the weights: it is
// implied by the saved shapes.
type Store struct {
	Dir string
}

func New(dir string) Store {
	return Store{Dir: dir}
}

func (s Store) filePath(key string) string {
	return filepath.Join(s.Dir, key+omwjson.EXTENSION)
}

// Exists reports whether a model is saved under key. Absence is a
// success state, not an error.
func (s Store) Exists(key string) (Info, bool, error) {
	fi, err := os.Stat(s.filePath(key))
	if errors.Is(err, os.ErrNotExist) {
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, err
	}
	return Info{SavedAt: fi.ModTime()}, true, nil
}

func (s Store) Save(key string, param *policy.Parameter) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	return param.WriteJSON(s.filePath(key))
}

func (s Store) Load(key string) (policy.Parameter, error) {
	_, ok, err := s.Exists(key)
	if err != nil {
		return policy.Parameter{}, err
	}
	if !ok {
		return policy.Parameter{}, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	return policy.LoadParameterJSON(s.filePath(key))
}

func (s Store) Delete(key string) error {
	err := os.Remove(s.filePath(key))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	return err
}
