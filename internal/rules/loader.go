package rules

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads escalation rules from a YAML file.
func LoadFromFile(path string) ([]*Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load loads escalation rules from a reader.
func Load(r io.Reader) ([]*Rule, error) {
	var config Config
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	if err := validateAll(config.Rules); err != nil {
		return nil, err
	}

	return config.Rules, nil
}

// LoadFromBytes loads escalation rules from YAML bytes.
func LoadFromBytes(data []byte) ([]*Rule, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	if err := validateAll(config.Rules); err != nil {
		return nil, err
	}

	return config.Rules, nil
}

// validateAll validates every rule and rejects duplicate rule ids.
func validateAll(rules []*Rule) error {
	seen := make(map[string]struct{}, len(rules))
	for i, rule := range rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("duplicate rule id %q at index %d", rule.ID, i)
		}
		seen[rule.ID] = struct{}{}
	}
	return nil
}
