package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"
)

// ErrUnknownKey means a key is not part of the configuration schema.
var ErrUnknownKey = errors.New("unknown config key")

// Store persists the flat key/value configuration as a JSON object.
// Writes are serialized through a lock file beside the config file.
type Store struct {
	path string
}

// NewStore returns a Store at path, or DefaultPath when path is empty.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{path: path}
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Keys returns the configuration schema, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKey reports whether key belongs to the schema.
func IsKey(key string) bool {
	_, ok := defaults[key]
	return ok
}

// Read returns every schema key's value. A missing file is created with
// defaults; keys absent from an existing file take their default.
func (s *Store) Read() (map[string]string, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.read()
}

// Get returns one value.
func (s *Store) Get(key string) (string, error) {
	if !IsKey(key) {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	values, err := s.Read()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Set updates one value and rewrites the file.
func (s *Store) Set(key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[key] = value
	return s.write(values)
}

func (s *Store) lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	fl := flock.New(s.path + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("locking config: %w", err)
	}
	return func() { _ = fl.Unlock() }, nil
}

func (s *Store) read() (map[string]string, error) {
	values := Defaults()

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(values); err != nil {
			return nil, err
		}
		return values, nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if filepath.Ext(s.path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	for k := range values {
		if v.IsSet(k) {
			values[k] = v.GetString(k)
		}
	}
	return values, nil
}

func (s *Store) write(values map[string]string) error {
	v := viper.New()
	v.SetConfigType("json")
	for k, val := range values {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
