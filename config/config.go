/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads process configuration from an optional YAML file, a
// .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/tomoncle/users-shared/database"
	"github.com/tomoncle/users-shared/logging"
)

// DotenvFile is read from the working directory when present.
const DotenvFile = ".env"

type Config struct {
	Environment string          `koanf:"environment" yaml:"environment" validate:"required"`
	Log         logging.Config  `koanf:"log" yaml:"log"`
	DB          database.Config `koanf:"db" yaml:"db"`
}

func Default() *Config {
	return &Config{
		Environment: logging.EnvironmentDevelopment,
		Log: logging.Config{
			Level:       "INFO",
			Environment: logging.EnvironmentDevelopment,
		},
		DB: *database.DefaultConfig(),
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped when
// path is empty), then .env, then environment variables. Recognised variables
// are LOG_LEVEL, LOG_ACCESS, ENVIRONMENT and DB_<FIELD>, e.g. DB_HOST or DB_MAX_OPEN_CONNS.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// variables already set in the environment win over .env
	if err := godotenv.Load(DotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotenvFile, err)
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cfg.Log.Environment = cfg.Environment

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps an environment variable onto a koanf path, or "" to skip it.
func envKey(name string) string {
	switch name {
	case logging.EnvLogLevel:
		return "log.level"
	case logging.EnvEnvironment:
		return "environment"
	case logging.EnvLogAccess:
		return "log.access"
	}
	if rest, ok := strings.CutPrefix(name, "DB_"); ok && rest != "" {
		return "db." + strings.ToLower(rest)
	}
	return ""
}
