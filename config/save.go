package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveGlobal writes one lifecycle key to ~/.config/promptflow/config.yaml,
// creating the file if needed.
func SaveGlobal(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	path, err := globalConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	return upsertYAML(path, 0o600, func(doc map[string]any) {
		doc[key] = typedValue(value)
	})
}

// SaveLocal writes one lifecycle key to the workspace .promptflow.yaml under
// root.
func SaveLocal(root, key, value string) error {
	if root == "" {
		return fmt.Errorf("workspace root not found")
	}
	if err := validateKey(key); err != nil {
		return err
	}

	// The workspace file is shared with the team and should be readable.
	return upsertYAML(filepath.Join(root, localFileName), 0o644, func(doc map[string]any) {
		doc[key] = typedValue(value)
	})
}

// DeleteGlobal removes a key from the global config file. Deleting an absent
// key or file is not an error.
func DeleteGlobal(key string) error {
	path, err := globalConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	return upsertYAML(path, 0o600, func(doc map[string]any) {
		delete(doc, key)
	})
}

func validateKey(key string) error {
	defaults := Defaults()
	if _, ok := defaults[key]; ok {
		return nil
	}

	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(keys, ", "))
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", globalDirName, globalFileName), nil
}

// upsertYAML loads a YAML mapping from path, applies mutate, and writes it
// back. An unreadable or malformed file starts from an empty mapping.
func upsertYAML(path string, perm os.FileMode, mutate func(map[string]any)) error {
	var doc map[string]any
	if data, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(data, &doc)
	}
	if doc == nil {
		doc = make(map[string]any)
	}

	mutate(doc)

	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

// typedValue keeps booleans and numbers typed in the written YAML so the
// files stay pleasant to hand-edit.
func typedValue(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
