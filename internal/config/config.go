/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration: a YAML file in the user
// scope, merged over defaults, with GB_* environment variables as read-only
// overrides. The photo API token lives in the OS keyring, never on disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gallerybuilder/internal/fsutil"
)

type EditorConfig struct {
	CanvasWidth   float64 `yaml:"canvas_width"`
	CanvasHeight  float64 `yaml:"canvas_height"`
	MinSize       float64 `yaml:"min_size"`
	DragThreshold float64 `yaml:"drag_threshold"`
	SnapThreshold float64 `yaml:"snap_threshold"` // 0 disables smart guides
}

type GalleryConfig struct {
	Style      string `yaml:"style"`       // grid | masonry | polaroid | timeline
	Direction  string `yaml:"direction"`   // vertical | horizontal
	FrameStyle string `yaml:"frame_style"` // rounded | square
	// Viewport used by the CLI when rendering without a window.
	ViewportWidth  float64 `yaml:"viewport_width"`
	ViewportHeight float64 `yaml:"viewport_height"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"` // filesystem | sqlite | postgres | memory
	Path        string `yaml:"path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type AssetsConfig struct {
	Driver     string `yaml:"driver"` // filesystem | sqlite | s3 | memory
	Path       string `yaml:"path"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	CatalogDir string `yaml:"catalog_dir"`
}

type PhotosConfig struct {
	Source    string `yaml:"source"` // placeholder | dir | api
	Dir       string `yaml:"dir"`
	APIURL    string `yaml:"api_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// The API token is not stored on disk; it lives in the OS keychain.
}

type ExportConfig struct {
	Quality         string `yaml:"quality"`
	Size            string `yaml:"size"`
	IncludeMetadata bool   `yaml:"include_metadata"`
	FontFile        string `yaml:"font_file"` // TTF/OTF for labels; empty uses the built-in face
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ImageHosts are the only remote hosts the server fetches images from
	// when it rasterizes a gallery.
	ImageHosts []string `yaml:"image_hosts"`
	// The auth secret is read from GB_AUTH_SECRET only.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
}

// AppConfig is the user-editable configuration.
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Editor        EditorConfig    `yaml:"editor"`
	Gallery       GalleryConfig   `yaml:"gallery"`
	Storage       StorageConfig   `yaml:"storage"`
	Assets        AssetsConfig    `yaml:"assets"`
	Photos        PhotosConfig    `yaml:"photos"`
	Export        ExportConfig    `yaml:"export"`
	Server        ServerConfig    `yaml:"server"`
	Logging       LoggingConfig   `yaml:"logging"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// Defaults returns the application defaults. Relative storage paths are
// resolved against DataDir by the caller.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor:        EditorConfig{CanvasWidth: 1000, CanvasHeight: 650, MinSize: 50, DragThreshold: 5, SnapThreshold: 6},
		Gallery:       GalleryConfig{Style: "grid", Direction: "vertical", FrameStyle: "rounded", ViewportWidth: 1000},
		Storage:       StorageConfig{Driver: "filesystem", Path: "layouts"},
		Assets:        AssetsConfig{Driver: "filesystem", Path: "assets"},
		Photos:        PhotosConfig{Source: "placeholder", APIURL: "http://localhost:4000", TimeoutMs: 15000},
		Export:        ExportConfig{Quality: "high", Size: "original"},
		Server:        ServerConfig{Addr: ":8080", ImageHosts: []string{"picsum.photos", "fastly.picsum.photos"}},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "GB_CONFIG"
	EnvDataDir         = "GB_DATA_DIR"
	EnvStorageDriver   = "GB_STORAGE_DRIVER"
	EnvStoragePath     = "GB_STORAGE_PATH"
	EnvPostgresDSN     = "GB_PG_DSN"
	EnvAssetsDriver    = "GB_ASSETS_DRIVER"
	EnvAssetsPath      = "GB_ASSETS_PATH"
	EnvS3Bucket        = "GB_S3_BUCKET"
	EnvS3Prefix        = "GB_S3_PREFIX"
	EnvCatalogDir      = "GB_CATALOG_DIR"
	EnvPhotoSource     = "GB_PHOTO_SOURCE"
	EnvPhotoDir        = "GB_PHOTO_DIR"
	EnvPhotoAPIURL     = "GB_PHOTO_API_URL"
	EnvPhotoTimeoutMs  = "GB_PHOTO_TIMEOUT_MS"
	EnvPhotoToken      = "GB_PHOTO_TOKEN"
	EnvGalleryStyle    = "GB_GALLERY_STYLE"
	EnvScrollDirection = "GB_SCROLL_DIRECTION"
	EnvServerAddr      = "GB_ADDR"
	EnvAllowedOrigins  = "GB_ALLOWED_ORIGINS"
	EnvImageHosts      = "GB_IMAGE_HOSTS"
	EnvAuthSecret      = "GB_AUTH_SECRET"
	EnvTelemetryOptIn  = "GB_TELEMETRY_OPT_IN"
	EnvLogLevel        = "GB_LOG_LEVEL"
	EnvLogFormat       = "GB_LOG_FORMAT"
	EnvLogSource       = "GB_LOG_SOURCE"
	EnvLogFile         = "GB_LOG_FILE"
)

type override struct {
	env   string
	key   string
	apply func(cfg *AppConfig, v string)
}

func setString(field func(*AppConfig) *string) func(*AppConfig, string) {
	return func(cfg *AppConfig, v string) { *field(cfg) = v }
}

func setLower(field func(*AppConfig) *string) func(*AppConfig, string) {
	return func(cfg *AppConfig, v string) { *field(cfg) = strings.ToLower(v) }
}

func setList(field func(*AppConfig) *[]string) func(*AppConfig, string) {
	return func(cfg *AppConfig, v string) {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*field(cfg) = out
	}
}

func setBool(field func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(cfg *AppConfig, v string) { *field(cfg) = parseBool(v) }
}

var overrides = []override{
	{EnvStorageDriver, "storage.driver", setLower(func(c *AppConfig) *string { return &c.Storage.Driver })},
	{EnvStoragePath, "storage.path", setString(func(c *AppConfig) *string { return &c.Storage.Path })},
	{EnvPostgresDSN, "storage.postgres_dsn", setString(func(c *AppConfig) *string { return &c.Storage.PostgresDSN })},
	{EnvAssetsDriver, "assets.driver", setLower(func(c *AppConfig) *string { return &c.Assets.Driver })},
	{EnvAssetsPath, "assets.path", setString(func(c *AppConfig) *string { return &c.Assets.Path })},
	{EnvS3Bucket, "assets.s3_bucket", setString(func(c *AppConfig) *string { return &c.Assets.S3Bucket })},
	{EnvS3Prefix, "assets.s3_prefix", setString(func(c *AppConfig) *string { return &c.Assets.S3Prefix })},
	{EnvCatalogDir, "assets.catalog_dir", setString(func(c *AppConfig) *string { return &c.Assets.CatalogDir })},
	{EnvPhotoSource, "photos.source", setLower(func(c *AppConfig) *string { return &c.Photos.Source })},
	{EnvPhotoDir, "photos.dir", setString(func(c *AppConfig) *string { return &c.Photos.Dir })},
	{EnvPhotoAPIURL, "photos.api_url", setString(func(c *AppConfig) *string { return &c.Photos.APIURL })},
	{EnvPhotoTimeoutMs, "photos.timeout_ms", func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.Photos.TimeoutMs = n
		}
	}},
	{EnvGalleryStyle, "gallery.style", setLower(func(c *AppConfig) *string { return &c.Gallery.Style })},
	{EnvScrollDirection, "gallery.direction", setLower(func(c *AppConfig) *string { return &c.Gallery.Direction })},
	{EnvServerAddr, "server.addr", setString(func(c *AppConfig) *string { return &c.Server.Addr })},
	{EnvAllowedOrigins, "server.allowed_origins", setList(func(c *AppConfig) *[]string { return &c.Server.AllowedOrigins })},
	{EnvImageHosts, "server.image_hosts", setList(func(c *AppConfig) *[]string { return &c.Server.ImageHosts })},
	{EnvTelemetryOptIn, "telemetry.opt_in", setBool(func(c *AppConfig) *bool { return &c.Telemetry.OptIn })},
	{EnvLogLevel, "logging.level", setLower(func(c *AppConfig) *string { return &c.Logging.Level })},
	{EnvLogFormat, "logging.format", setLower(func(c *AppConfig) *string { return &c.Logging.Format })},
	{EnvLogSource, "logging.source", setBool(func(c *AppConfig) *bool { return &c.Logging.Source })},
	{EnvLogFile, "logging.file", setString(func(c *AppConfig) *string { return &c.Logging.File })},
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ConfigPath returns the per-user config file path. GB_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := userDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir is where relative storage and asset paths live. GB_DATA_DIR
// overrides it.
func DataDir() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvDataDir)); p != "" {
		return p, nil
	}
	return userDir()
}

func userDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "GalleryBuilder"), nil
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Application Support", "GalleryBuilder"), nil
		}
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "gallerybuilder"), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", "gallerybuilder"), nil
		}
	}
	return "", errors.New("cannot resolve config directory: HOME is not set")
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The photo API token comes from GB_PHOTO_TOKEN or
// the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read config: %w", err)
	}
	applyEnvOverrides(&cfg)
	if err := resolvePaths(&cfg); err != nil {
		return cfg, "", err
	}
	tok := strings.TrimSpace(os.Getenv(EnvPhotoToken))
	if tok == "" {
		tok, _ = tokenStore.Get(keyringService, keyringToken)
	}
	return cfg, tok, nil
}

// resolvePaths anchors relative storage and asset paths in DataDir.
func resolvePaths(cfg *AppConfig) error {
	for _, p := range []*string{&cfg.Storage.Path, &cfg.Assets.Path} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		dir, err := DataDir()
		if err != nil {
			return err
		}
		*p = filepath.Join(dir, *p)
	}
	return nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring when non-empty.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, token)
}

// SaveTo is Save with an explicit config file path.
func SaveTo(path string, cfg AppConfig, token string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

func mergeString(dst *string, src string) {
	if v := strings.TrimSpace(src); v != "" {
		*dst = v
	}
}

func mergeFloat(dst *float64, src float64) {
	if src != 0 {
		*dst = src
	}
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	mergeFloat(&dst.Editor.CanvasWidth, src.Editor.CanvasWidth)
	mergeFloat(&dst.Editor.CanvasHeight, src.Editor.CanvasHeight)
	mergeFloat(&dst.Editor.MinSize, src.Editor.MinSize)
	mergeFloat(&dst.Editor.DragThreshold, src.Editor.DragThreshold)
	mergeFloat(&dst.Editor.SnapThreshold, src.Editor.SnapThreshold)

	mergeString(&dst.Gallery.Style, strings.ToLower(src.Gallery.Style))
	mergeString(&dst.Gallery.Direction, strings.ToLower(src.Gallery.Direction))
	mergeString(&dst.Gallery.FrameStyle, strings.ToLower(src.Gallery.FrameStyle))
	mergeFloat(&dst.Gallery.ViewportWidth, src.Gallery.ViewportWidth)
	mergeFloat(&dst.Gallery.ViewportHeight, src.Gallery.ViewportHeight)

	mergeString(&dst.Storage.Driver, strings.ToLower(src.Storage.Driver))
	mergeString(&dst.Storage.Path, src.Storage.Path)
	mergeString(&dst.Storage.PostgresDSN, src.Storage.PostgresDSN)

	mergeString(&dst.Assets.Driver, strings.ToLower(src.Assets.Driver))
	mergeString(&dst.Assets.Path, src.Assets.Path)
	mergeString(&dst.Assets.S3Bucket, src.Assets.S3Bucket)
	mergeString(&dst.Assets.S3Prefix, src.Assets.S3Prefix)
	mergeString(&dst.Assets.CatalogDir, src.Assets.CatalogDir)

	mergeString(&dst.Photos.Source, strings.ToLower(src.Photos.Source))
	mergeString(&dst.Photos.Dir, src.Photos.Dir)
	mergeString(&dst.Photos.APIURL, src.Photos.APIURL)
	if src.Photos.TimeoutMs != 0 {
		dst.Photos.TimeoutMs = src.Photos.TimeoutMs
	}

	mergeString(&dst.Export.Quality, strings.ToLower(src.Export.Quality))
	mergeString(&dst.Export.Size, strings.ToLower(src.Export.Size))
	mergeString(&dst.Export.FontFile, src.Export.FontFile)
	// booleans: copy directly from src (file) so user preferences persist
	dst.Export.IncludeMetadata = src.Export.IncludeMetadata

	mergeString(&dst.Server.Addr, src.Server.Addr)
	if len(src.Server.AllowedOrigins) > 0 {
		dst.Server.AllowedOrigins = append([]string(nil), src.Server.AllowedOrigins...)
	}
	if len(src.Server.ImageHosts) > 0 {
		dst.Server.ImageHosts = append([]string(nil), src.Server.ImageHosts...)
	}

	mergeString(&dst.Logging.Level, strings.ToLower(src.Logging.Level))
	mergeString(&dst.Logging.Format, strings.ToLower(src.Logging.Format))
	dst.Logging.Source = src.Logging.Source
	mergeString(&dst.Logging.File, src.Logging.File)

	dst.Telemetry.OptIn = src.Telemetry.OptIn
	mergeString(&dst.Telemetry.EventsURL, src.Telemetry.EventsURL)
	mergeString(&dst.Telemetry.CrashURL, src.Telemetry.CrashURL)
}

func applyEnvOverrides(cfg *AppConfig) {
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			o.apply(cfg, v)
		}
	}
}

// EnvOverrideFor returns the env var name if the dotted key (for example
// "storage.driver") is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	for _, o := range overrides {
		if o.key == key && os.Getenv(o.env) != "" {
			return o.env, true
		}
	}
	return "", false
}

// AuthSecret returns the HTTP API write secret from the environment.
func AuthSecret() string { return strings.TrimSpace(os.Getenv(EnvAuthSecret)) }

// Timeout returns the photo API timeout, falling back to the default.
func (p PhotosConfig) Timeout() time.Duration {
	if p.TimeoutMs <= 0 {
		return time.Duration(Defaults().Photos.TimeoutMs) * time.Millisecond
	}
	return time.Duration(p.TimeoutMs) * time.Millisecond
}
