// Package config loads the server's optional TOML defaults file, per
// SPEC_FULL.md's AMBIENT STACK section: CLI flags always override it.
package config

import (
	"github.com/BurntSushi/toml"
)

// Server holds the subset of settings the server binary reads from an
// optional config file.
type Server struct {
	Port          int    `toml:"port"`
	DataDir       string `toml:"data_dir"`
	ModelDir      string `toml:"model_dir"`
}

// LoadServer decodes path into a Server. A missing file is returned as
// an error like any other; os.IsNotExist on it tells "no config" from
// "bad config".
func LoadServer(path string) (Server, error) {
	var cfg Server
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}
