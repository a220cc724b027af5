package config

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/vango-dev/devserver/internal/errors"
	"github.com/vango-dev/devserver/internal/vfs"
)

const (
	// DefaultPagesDir is the default pages-mode routed directory.
	DefaultPagesDir = "/pages"

	// DefaultAppDir is the default app-mode routed directory.
	DefaultAppDir = "/app"

	// DefaultPublicDir is the default public static-assets directory.
	DefaultPublicDir = "/public"

	// PublicEnvPrefix marks an env var as safe to expose to the browser.
	PublicEnvPrefix = "NEXT_PUBLIC_"
)

// configFileNames lists the framework config files searched, in order, by
// the Config Resolver. The first one found wins.
var configFileNames = []string{"vango.config.json", "next.config.json", "vango.json"}

// configScriptNames lists JS-flavored framework config files. These are not
// executed; the recognized keys are extracted as quoted string values.
var configScriptNames = []string{"vango.config.js", "next.config.js", "next.config.mjs"}

var (
	reBasePathValue    = regexp.MustCompile(`basePath['"]?\s*:\s*['"]([^'"]*)['"]`)
	reAssetPrefixValue = regexp.MustCompile(`assetPrefix['"]?\s*:\s*['"]([^'"]*)['"]`)
)

// aliasFileNames lists the TypeScript-style path-config files searched for
// import aliases, in order.
var aliasFileNames = []string{"tsconfig.json", "jsconfig.json"}

// PreferRouter is the tri-state router-mode override.
type PreferRouter int

const (
	// PreferAuto selects app mode if a root page/layout exists there, else
	// falls back to pages mode.
	PreferAuto PreferRouter = iota
	PreferApp
	PreferPages
)

// Config is the Config Resolver's resolved view (component A): base path,
// asset prefix, alias map, routed directories, router-mode preference, and
// the mutable env map.
type Config struct {
	BasePath    string
	AssetPrefix string

	// AliasMap maps an import-path prefix (alias without its trailing "*",
	// e.g. "@/") to a VFS-absolute prefix (target without its trailing "*").
	AliasMap map[string]string

	PagesDir        string
	AppDir          string
	PublicDir       string
	PreferAppRouter PreferRouter

	env map[string]string
}

// tsconfigFile is the subset of tsconfig.json/jsconfig.json this resolver
// reads: compilerOptions.paths.
type tsconfigFile struct {
	CompilerOptions struct {
		Paths map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// frameworkConfigFile is the subset of the framework config files this
// resolver recognizes.
type frameworkConfigFile struct {
	BasePath    string `json:"basePath"`
	AssetPrefix string `json:"assetPrefix"`
}

// Resolve scans fsys for framework config and path-alias config, normalizes
// the values (leading "/" forced, trailing "/" removed), and
// returns a Config with defaults applied for anything unspecified.
//
// Malformed config files are not a hard failure (ConfigParseError in the
// error table): they are logged by the caller and treated as absent.
func Resolve(fsys vfs.VFS) (*Config, []*errors.DevError) {
	cfg := &Config{
		PagesDir:        DefaultPagesDir,
		AppDir:          DefaultAppDir,
		PublicDir:       DefaultPublicDir,
		PreferAppRouter: PreferAuto,
		AliasMap:        make(map[string]string),
		env:             make(map[string]string),
	}

	var warnings []*errors.DevError

	for _, name := range configFileNames {
		path := vfs.Join("/", name)
		if !fsys.ExistsSync(path) {
			continue
		}
		data, err := fsys.ReadFileSync(path)
		if err != nil {
			continue
		}
		var parsed frameworkConfigFile
		if err := json.Unmarshal(data, &parsed); err != nil {
			warnings = append(warnings, errors.New("E260").
				WithLocation(path, 0, 0).
				WithDetail(err.Error()))
			continue
		}
		cfg.BasePath = normalizePrefix(parsed.BasePath)
		cfg.AssetPrefix = normalizePrefix(parsed.AssetPrefix)
		break
	}

	if cfg.BasePath == "" && cfg.AssetPrefix == "" {
		for _, name := range configScriptNames {
			path := vfs.Join("/", name)
			if !fsys.ExistsSync(path) {
				continue
			}
			data, err := fsys.ReadFileSync(path)
			if err != nil {
				continue
			}
			if m := reBasePathValue.FindSubmatch(data); m != nil {
				cfg.BasePath = normalizePrefix(string(m[1]))
			}
			if m := reAssetPrefixValue.FindSubmatch(data); m != nil {
				cfg.AssetPrefix = normalizePrefix(string(m[1]))
			}
			break
		}
	}

	for _, name := range aliasFileNames {
		path := vfs.Join("/", name)
		if !fsys.ExistsSync(path) {
			continue
		}
		data, err := fsys.ReadFileSync(path)
		if err != nil {
			continue
		}
		var parsed tsconfigFile
		if err := json.Unmarshal(data, &parsed); err != nil {
			warnings = append(warnings, errors.New("E261").
				WithLocation(path, 0, 0).
				WithDetail(err.Error()))
			continue
		}
		for pattern, targets := range parsed.CompilerOptions.Paths {
			if !strings.HasSuffix(pattern, "*") || len(targets) == 0 {
				continue
			}
			aliasPrefix := strings.TrimSuffix(pattern, "*")
			targetPrefix := strings.TrimSuffix(targets[0], "*")
			if _, exists := cfg.AliasMap[aliasPrefix]; !exists {
				cfg.AliasMap[aliasPrefix] = vfs.Join("/", targetPrefix)
			}
		}
		break
	}

	if fsys.IsDirectorySync("/app") {
		hasRootPage := fsys.ExistsSync("/app/page.tsx") || fsys.ExistsSync("/app/page.jsx") ||
			fsys.ExistsSync("/app/page.ts") || fsys.ExistsSync("/app/page.js")
		hasRootLayout := fsys.ExistsSync("/app/layout.tsx") || fsys.ExistsSync("/app/layout.jsx") ||
			fsys.ExistsSync("/app/layout.ts") || fsys.ExistsSync("/app/layout.js")
		if hasRootPage || hasRootLayout {
			cfg.PreferAppRouter = PreferApp
		}
	}

	return cfg, warnings
}

// normalizePrefix forces a leading "/" and strips any trailing "/".
func normalizePrefix(s string) string {
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return strings.TrimSuffix(s, "/")
}

// ForceRouter overrides the auto-detected router mode.
func (c *Config) ForceRouter(mode PreferRouter) {
	c.PreferAppRouter = mode
}

// UsesAppRouter reports whether app mode should be used.
func (c *Config) UsesAppRouter() bool {
	return c.PreferAppRouter == PreferApp
}

// SetEnv sets an environment variable. env is the only config surface
// mutable after construction.
func (c *Config) SetEnv(key, value string) {
	if c.env == nil {
		c.env = make(map[string]string)
	}
	c.env[key] = value
}

// GetEnv returns an environment variable's value and whether it was set.
func (c *Config) GetEnv(key string) (string, bool) {
	v, ok := c.env[key]
	return v, ok
}

// Env returns a copy of the full environment map (used by handler
// execution, which needs every var, not just public ones).
func (c *Config) Env() map[string]string {
	out := make(map[string]string, len(c.env))
	for k, v := range c.env {
		out[k] = v
	}
	return out
}

// PublicEnv returns only the entries whose key begins with PublicEnvPrefix,
// per the HTML Shell Synthesizer's env-isolation requirement.
func (c *Config) PublicEnv() map[string]string {
	out := make(map[string]string)
	for k, v := range c.env {
		if strings.HasPrefix(k, PublicEnvPrefix) {
			out[k] = v
		}
	}
	return out
}

// ResolveAlias rewrites an import specifier beginning with a configured
// alias prefix to its VFS-absolute target. Returns the rewritten path and
// true if an alias matched.
func (c *Config) ResolveAlias(specifier string) (string, bool) {
	for prefix, target := range c.AliasMap {
		if strings.HasPrefix(specifier, prefix) {
			return vfs.Join(target, strings.TrimPrefix(specifier, prefix)), true
		}
	}
	return "", false
}
