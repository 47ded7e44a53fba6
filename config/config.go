// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cardinalhq/coalescer/internal/coalesce"
	"github.com/cardinalhq/coalescer/internal/planner"
)

// Config aggregates configuration for the application.
type Config struct {
	Coalesce CoalesceConfig `mapstructure:"coalesce"`
	DuckDB   DuckDBConfig   `mapstructure:"duckdb"`
}

// CoalesceConfig controls one coalesce run.
type CoalesceConfig struct {
	SizeMB   int64  `mapstructure:"size_mb"`
	Clean    bool   `mapstructure:"clean"`
	Time     bool   `mapstructure:"time"`
	Mode     string `mapstructure:"mode"`
	Codec    string `mapstructure:"codec"`
	Naming   string `mapstructure:"naming"`
	Verify   bool   `mapstructure:"verify"`
	WorkRoot string `mapstructure:"work_root"`
}

func DefaultCoalesceConfig() CoalesceConfig {
	return CoalesceConfig{
		SizeMB: coalesce.DefaultTargetSizeMB,
		Mode:   string(coalesce.IngestBulk),
		Codec:  string(coalesce.CodecSnappy),
		Naming: string(planner.NamingRequested),
	}
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"size":      "coalesce.size_mb",
	"clean":     "coalesce.clean",
	"time":      "coalesce.time",
	"mode":      "coalesce.mode",
	"codec":     "coalesce.codec",
	"naming":    "coalesce.naming",
	"verify":    "coalesce.verify",
	"work-root": "coalesce.work_root",
}

// Load reads configuration from an optional coalescer.yaml, environment
// variables and flags, in increasing order of precedence.
// Environment variables use the prefix "COALESCER" and the dot character
// in keys is replaced by an underscore. For example, "duckdb.memory_limit"
// becomes "COALESCER_DUCKDB_MEMORY_LIMIT". flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		Coalesce: DefaultCoalesceConfig(),
		DuckDB:   DefaultDuckDBConfig(),
	}

	v := viper.New()
	v.SetConfigName("coalescer")
	v.AddConfigPath(".")
	v.SetEnvPrefix("COALESCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	if c.Coalesce.SizeMB <= 0 {
		return fmt.Errorf("coalesce.size_mb must be positive, got %d", c.Coalesce.SizeMB)
	}
	if _, err := coalesce.ParseIngestMode(c.Coalesce.Mode); err != nil {
		return err
	}
	if _, err := coalesce.ParseCodec(c.Coalesce.Codec); err != nil {
		return err
	}
	if _, err := planner.ParseNamingMode(c.Coalesce.Naming); err != nil {
		return err
	}
	if c.DuckDB.MemoryLimit < 0 {
		return fmt.Errorf("duckdb.memory_limit must not be negative, got %d", c.DuckDB.MemoryLimit)
	}
	return nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
