package config

import (
	"fmt"
	"strconv"
)

// KeyInfo is one row of `config show`.
type KeyInfo struct {
	Key   string
	Type  string
	Env   string
	Value string
}

// settable yields the specs users may read and write; secrets come only from
// the environment or the secrets file.
func settable(yield func(keySpec) bool) {
	for _, s := range specs {
		if !s.secret && !yield(s) {
			return
		}
	}
}

func ShowAll(cfg Config) []KeyInfo {
	var out []KeyInfo
	for s := range settable {
		out = append(out, KeyInfo{Key: s.key, Type: s.typ.String(), Env: s.env, Value: fmt.Sprint(s.extract(cfg))})
	}
	return out
}

// SetKey writes a config key to the config file.
func SetKey(key, value string) error {
	return setKeyIn(newFileBackend(configFilePath()), key, value)
}

func setKeyIn(b ConfigBackend, key, value string) error {
	s, ok := lookupSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return fmt.Errorf("cannot set secret %q via config; use environment variable %s", key, s.env)
	}
	v, err := s.typ.parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s value for %s: %w", s.typ, key, err)
	}
	switch val := v.(type) {
	case int:
		return b.SetInt(key, val)
	case bool:
		return b.SetString(key, strconv.FormatBool(val))
	case float64:
		return b.SetString(key, strconv.FormatFloat(val, 'f', -1, 64))
	default:
		return b.SetString(key, value)
	}
}

// ValidKeys names every key SetKey accepts.
func ValidKeys() []string {
	var keys []string
	for s := range settable {
		keys = append(keys, s.key)
	}
	return keys
}
