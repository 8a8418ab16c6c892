package main

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"levelgen/internal/config"
)

func readSyncedConfig(t *testing.T, path string) config.Config {
	t.Helper()
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var decoded config.Config
	if err := json.Unmarshal(contents, &decoded); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return decoded
}

func TestWriteConfigFromEnvJSON(t *testing.T) {
	t.Setenv("LEVELGEN_CONFIG_YAML_B64", "")

	cfg := config.Default()
	cfg.Generation.Identifier = "json-config"
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	t.Setenv("LEVELGEN_CONFIG_JSON", string(data))

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	wrote, err := writeConfigFromEnv(path)
	if err != nil {
		t.Fatalf("writeConfigFromEnv: %v", err)
	}
	if !wrote {
		t.Fatalf("expected config to be written")
	}
	if got := readSyncedConfig(t, path).Generation.Identifier; got != "json-config" {
		t.Fatalf("unexpected identifier: %q", got)
	}
}

func TestWriteConfigFromEnvYAML(t *testing.T) {
	cfg := config.Default()
	cfg.Generation.Identifier = "yaml-config"
	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	t.Setenv("LEVELGEN_CONFIG_JSON", "")
	t.Setenv("LEVELGEN_CONFIG_YAML_B64", base64.StdEncoding.EncodeToString(data))

	path := filepath.Join(t.TempDir(), "config.json")
	wrote, err := writeConfigFromEnv(path)
	if err != nil {
		t.Fatalf("writeConfigFromEnv: %v", err)
	}
	if !wrote {
		t.Fatalf("expected config to be written")
	}
	if got := readSyncedConfig(t, path).Generation.Identifier; got != "yaml-config" {
		t.Fatalf("unexpected identifier: %q", got)
	}
}

func TestWriteConfigFromEnvRejectsInvalid(t *testing.T) {
	t.Setenv("LEVELGEN_CONFIG_YAML_B64", "")
	t.Setenv("LEVELGEN_CONFIG_JSON", `{"generation":{"width":-5}}`)

	if _, err := writeConfigFromEnv(filepath.Join(t.TempDir(), "config.json")); err == nil {
		t.Fatalf("expected invalid payload to fail validation")
	}
}

func TestWriteConfigFromEnvRequiresPath(t *testing.T) {
	t.Setenv("LEVELGEN_CONFIG_YAML_B64", "")
	t.Setenv("LEVELGEN_CONFIG_JSON", "{}")

	if _, err := writeConfigFromEnv(""); err == nil {
		t.Fatalf("expected missing path to fail")
	}
}

func TestWriteConfigFromEnvNoPayload(t *testing.T) {
	t.Setenv("LEVELGEN_CONFIG_JSON", "")
	t.Setenv("LEVELGEN_CONFIG_YAML_B64", "")

	wrote, err := writeConfigFromEnv(filepath.Join(t.TempDir(), "unused.json"))
	if err != nil {
		t.Fatalf("writeConfigFromEnv: %v", err)
	}
	if wrote {
		t.Fatalf("expected no config to be written")
	}
}

func TestFindBiome(t *testing.T) {
	cfg := config.Default()
	b, err := findBiome(cfg, "")
	if err != nil || b.Identifier != cfg.Biomes[0].Identifier {
		t.Fatalf("default biome: %v %v", b, err)
	}
	b, err = findBiome(cfg, "europanridge")
	if err != nil || b.Identifier != "europanridge" {
		t.Fatalf("named biome: %v %v", b, err)
	}
	if _, err := findBiome(cfg, "nowhere"); err == nil {
		t.Fatalf("expected unknown biome to fail")
	}
}
