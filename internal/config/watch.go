package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"github.com/adrg/xdg"
)

var watchCfgFile = "reversi-watch/config.json"

// WatchConfig is the spectator client's saved settings.
type WatchConfig struct {
	ServerURL  string `json:"server_url"`
	BlackGlyph string `json:"black_glyph"`
	WhiteGlyph string `json:"white_glyph"`
	EmptyGlyph string `json:"empty_glyph"`
}

var DefaultWatchConfig = WatchConfig{
	ServerURL:  "http://127.0.0.1:8080",
	BlackGlyph: "x",
	WhiteGlyph: "o",
	EmptyGlyph: ".",
}

// InitWatchConfig loads the saved config from the XDG config directory,
// falling back to defaults when no file exists.
func InitWatchConfig() (*WatchConfig, error) {
	cfg := DefaultWatchConfig
	absPath, err := xdg.SearchConfigFile(watchCfgFile)
	if err == nil {
		if rerr := readWatchFile(absPath, &cfg); rerr != nil {
			return nil, rerr
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *WatchConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("watch config: server_url must not be empty")
	}
	for _, g := range []string{c.BlackGlyph, c.WhiteGlyph, c.EmptyGlyph} {
		if g == "" {
			return fmt.Errorf("watch config: board glyphs must not be empty")
		}
	}
	return nil
}

// Save writes the config to the XDG config directory, creating it as
// needed.
func (c *WatchConfig) Save() error {
	absPath, err := xdg.ConfigFile(watchCfgFile)
	if err != nil {
		return err
	}
	return saveWatchFile(absPath, c, 0o664)
}

func saveWatchFile(filePath string, c *WatchConfig, perm fs.FileMode) error {
	jsonData, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, jsonData, perm)
}

func readWatchFile(filePath string, c *WatchConfig) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, c)
}
