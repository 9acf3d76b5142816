package optable

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// fileConfig is the layout of an operator table file:
//
//	[operators]
//	ADD = "+"
//
//	[tokens]
//	"**" = "POW"
//
// [operators] is name -> token, [tokens] the tokenizer's token -> name.
type fileConfig struct {
	Operators map[string]string `toml:"operators"`
	Tokens    map[string]string `toml:"tokens"`
}

// LoadFile reads an operator table from a TOML file.
func LoadFile(path string) (*Table, error) {
	var cfg fileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	t, err := cfg.table()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode reads an operator table from TOML text.
func Decode(data string) (*Table, error) {
	var cfg fileConfig
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return cfg.table()
}

func (c fileConfig) table() (*Table, error) {
	t, err := FromTokens(c.Tokens)
	if err != nil {
		return nil, err
	}
	for name, tok := range c.Operators {
		t.Set(name, tok)
	}
	return t, nil
}
