package routeresolve

import (
	"strings"

	"github.com/vango-dev/devserver/internal/vfs"
)

// resolvePagesPage implements Pages mode resolution: extension-priority
// lookup, then index files, then dynamic segments.
func (r *Resolver) resolvePagesPage(pathname string) (*Route, bool) {
	p := pathname
	if p == "/" {
		p = "/index"
	}

	for _, ext := range extensions {
		file := vfs.Join(r.cfg.PagesDir, p+ext)
		if r.fsys.ExistsSync(file) && !r.fsys.IsDirectorySync(file) {
			return &Route{HandlerFile: file, Params: Params{}}, true
		}
	}

	for _, ext := range extensions {
		file := vfs.Join(r.cfg.PagesDir, p, "index"+ext)
		if r.fsys.ExistsSync(file) {
			return &Route{HandlerFile: file, Params: Params{}}, true
		}
	}

	segments := splitSegments(pathname)
	params := Params{}
	file, ok := r.resolvePagesDynamic(r.cfg.PagesDir, segments, params)
	if !ok {
		return nil, false
	}
	return &Route{HandlerFile: file, Params: params}, true
}

// resolvePagesDynamic walks dir consuming segments in tie-break order:
// exact child (dir or file); dynamic single-segment dir; dynamic
// single-segment file; catch-all file.
func (r *Resolver) resolvePagesDynamic(dir string, segments []string, params Params) (string, bool) {
	if len(segments) == 0 {
		for _, ext := range extensions {
			f := vfs.Join(dir, "index"+ext)
			if r.fsys.ExistsSync(f) {
				return f, true
			}
		}
		return "", false
	}

	seg := segments[0]
	rest := segments[1:]

	if len(rest) == 0 {
		for _, ext := range extensions {
			f := vfs.Join(dir, seg+ext)
			if r.fsys.ExistsSync(f) && !r.fsys.IsDirectorySync(f) {
				return f, true
			}
		}
	}

	exactDir := vfs.Join(dir, seg)
	if r.fsys.IsDirectorySync(exactDir) {
		if f, ok := r.resolvePagesDynamic(exactDir, rest, params); ok {
			return f, true
		}
	}

	if name, childDir, ok := r.findBracketDir(dir, matchDynamicSingle); ok {
		params[name] = ParamValue{Single: seg}
		if f, ok2 := r.resolvePagesDynamic(childDir, rest, params); ok2 {
			return f, true
		}
		delete(params, name)
	}

	if len(rest) == 0 {
		if name, file, ok := r.findBracketFile(dir, matchDynamicSingle); ok {
			params[name] = ParamValue{Single: seg}
			return file, true
		}
	}

	if name, file, ok := r.findBracketFile(dir, matchCatchAll); ok {
		all := append([]string{seg}, rest...)
		params[name] = ParamValue{List: all, IsList: true}
		return file, true
	}

	return "", false
}

// findBracketDir scans dir for a subdirectory whose name matches matcher,
// e.g. "[id]".
func (r *Resolver) findBracketDir(dir string, matcher func(string) (string, bool)) (name, child string, ok bool) {
	entries, err := r.fsys.ReaddirSync(dir)
	if err != nil {
		return "", "", false
	}
	for _, e := range entries {
		full := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(full) {
			continue
		}
		if n, matched := matcher(e); matched {
			return n, full, true
		}
	}
	return "", "", false
}

// findBracketFile scans dir for a file whose extension is supported and
// whose base name (extension stripped) matches matcher, trying extensions
// in priority order.
func (r *Resolver) findBracketFile(dir string, matcher func(string) (string, bool)) (name, file string, ok bool) {
	entries, err := r.fsys.ReaddirSync(dir)
	if err != nil {
		return "", "", false
	}
	for _, ext := range extensions {
		for _, e := range entries {
			if !strings.HasSuffix(e, ext) {
				continue
			}
			base := strings.TrimSuffix(e, ext)
			if n, matched := matcher(base); matched {
				return n, vfs.Join(dir, e), true
			}
		}
	}
	return "", "", false
}
