// Package config implements the Config Resolver: it scans the VFS for
// framework config and path-alias config and exposes the normalized result
// (base path, asset prefix, alias map, routed directories, router-mode
// preference) plus a mutable env map for public variable injection.
//
// # Recognized files
//
// Framework config (first match wins): vango.config.json, next.config.json,
// vango.json, then the JS-flavored vango.config.js, next.config.js and
// next.config.mjs, from which recognized keys are extracted as quoted
// string values. Only "basePath" and "assetPrefix" are recognized keys.
//
// Path aliases (first match wins): tsconfig.json, jsconfig.json. Only
// compilerOptions.paths entries ending in "*" are registered; the first
// target for a given pattern wins.
//
// # Usage
//
//	cfg, warnings := config.Resolve(fsys)
//	for _, w := range warnings {
//	    logger.Warn(w.FormatCompact())
//	}
package config
