package routeresolve

import "github.com/vango-dev/devserver/internal/vfs"

// resolveAppPage resolves pathname against the app-routed tree.
func (r *Resolver) resolveAppPage(pathname string) (*Route, bool) {
	segments := splitSegments(pathname)
	params := Params{}
	var layouts []string

	r.appendLayout(r.cfg.AppDir, &layouts)
	dir, ok := r.walkAppSegments(r.cfg.AppDir, segments, params, &layouts)
	if !ok {
		return nil, false
	}

	pageFile, ok := r.findPageInDirOrGroups(dir, &layouts)
	if !ok {
		pageFile, ok = r.findOptionalCatchAllPage(dir, params, &layouts)
	}
	if !ok {
		return nil, false
	}

	return &Route{
		HandlerFile: pageFile,
		Layouts:     layouts,
		Params:      params,
		Conventions: r.collectConventions(parentDir(pageFile)),
	}, true
}

// walkAppSegments consumes segments one at a time, delegating to
// consumeSegment. An empty segment list means the walk has reached the
// directory that should contain page.<ext> (or, for ResolveRouteHandler,
// route.<ext>).
func (r *Resolver) walkAppSegments(dir string, segments []string, params Params, layouts *[]string) (string, bool) {
	if len(segments) == 0 {
		return dir, true
	}
	return r.consumeSegment(dir, segments[0], segments[1:], params, layouts)
}

// consumeSegment tries, in tie-break order: exact-named child; route-group
// child (URL-transparent, re-tries the same segment inside it);
// single-dynamic "[name]" child; catch-all "[...name]" child; optional
// catch-all "[[...name]]" child.
func (r *Resolver) consumeSegment(dir string, seg string, rest []string, params Params, layouts *[]string) (string, bool) {
	entries, err := r.fsys.ReaddirSync(dir)
	if err != nil {
		return "", false
	}

	for _, e := range entries {
		if e != seg {
			continue
		}
		child := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(child) {
			continue
		}
		savedLen := len(*layouts)
		r.appendLayout(child, layouts)
		if d, ok := r.walkAppSegments(child, rest, params, layouts); ok {
			return d, true
		}
		*layouts = (*layouts)[:savedLen]
	}

	for _, e := range entries {
		if !isRouteGroup(e) {
			continue
		}
		group := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(group) {
			continue
		}
		savedLen := len(*layouts)
		r.appendLayout(group, layouts)
		if d, ok := r.consumeSegment(group, seg, rest, params, layouts); ok {
			return d, true
		}
		*layouts = (*layouts)[:savedLen]
	}

	for _, e := range entries {
		name, ok := matchDynamicSingle(e)
		if !ok {
			continue
		}
		child := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(child) {
			continue
		}
		params[name] = ParamValue{Single: seg}
		savedLen := len(*layouts)
		r.appendLayout(child, layouts)
		if d, ok2 := r.walkAppSegments(child, rest, params, layouts); ok2 {
			return d, true
		}
		*layouts = (*layouts)[:savedLen]
		delete(params, name)
	}

	for _, e := range entries {
		name, ok := matchCatchAll(e)
		if !ok {
			continue
		}
		child := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(child) {
			continue
		}
		all := append([]string{seg}, rest...)
		params[name] = ParamValue{List: all, IsList: true}
		r.appendLayout(child, layouts)
		return child, true
	}

	for _, e := range entries {
		name, ok := matchOptionalCatchAll(e)
		if !ok {
			continue
		}
		child := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(child) {
			continue
		}
		all := append([]string{seg}, rest...)
		params[name] = ParamValue{List: all, IsList: true}
		r.appendLayout(child, layouts)
		return child, true
	}

	return "", false
}

// findPageInDirOrGroups looks for page.<ext> in dir; if absent, tries inside
// each route-group child, since groups are URL-transparent. A non-group
// page/layout wins over one reached through a group when both exist at the
// same level, because group children are only tried after the direct check
// fails.
func (r *Resolver) findPageInDirOrGroups(dir string, layouts *[]string) (string, bool) {
	for _, ext := range extensions {
		f := vfs.Join(dir, "page"+ext)
		if r.fsys.ExistsSync(f) {
			return f, true
		}
	}

	entries, err := r.fsys.ReaddirSync(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !isRouteGroup(e) {
			continue
		}
		group := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(group) {
			continue
		}
		savedLen := len(*layouts)
		r.appendLayout(group, layouts)
		if f, ok := r.findPageInDirOrGroups(group, layouts); ok {
			return f, true
		}
		*layouts = (*layouts)[:savedLen]
	}
	return "", false
}

// findOptionalCatchAllPage covers the zero-segment form of "[[...name]]":
// when the walk exhausts its segments and the directory has no page of its
// own, a page inside an optional catch-all child still matches, binding
// the name to an empty list. Route-group children are searched too, since
// groups stay URL-transparent here as everywhere else.
func (r *Resolver) findOptionalCatchAllPage(dir string, params Params, layouts *[]string) (string, bool) {
	entries, err := r.fsys.ReaddirSync(dir)
	if err != nil {
		return "", false
	}

	for _, e := range entries {
		name, ok := matchOptionalCatchAll(e)
		if !ok {
			continue
		}
		child := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(child) {
			continue
		}
		savedLen := len(*layouts)
		r.appendLayout(child, layouts)
		if f, ok2 := r.findPageInDirOrGroups(child, layouts); ok2 {
			params[name] = ParamValue{List: []string{}, IsList: true}
			return f, true
		}
		*layouts = (*layouts)[:savedLen]
	}

	for _, e := range entries {
		if !isRouteGroup(e) {
			continue
		}
		group := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(group) {
			continue
		}
		savedLen := len(*layouts)
		r.appendLayout(group, layouts)
		if f, ok := r.findOptionalCatchAllPage(group, params, layouts); ok {
			return f, true
		}
		*layouts = (*layouts)[:savedLen]
	}

	return "", false
}

// appendLayout adds dir's layout.<ext>, if any, to layouts unless already
// present. Layouts stay ordered outermost-first with no duplicates.
func (r *Resolver) appendLayout(dir string, layouts *[]string) {
	for _, ext := range extensions {
		f := vfs.Join(dir, "layout"+ext)
		if !r.fsys.ExistsSync(f) {
			continue
		}
		for _, existing := range *layouts {
			if existing == f {
				return
			}
		}
		*layouts = append(*layouts, f)
		return
	}
}

// collectConventions walks upward from dir toward the app root, recording
// the nearest loading/error/not-found ancestor files.
func (r *Resolver) collectConventions(dir string) Conventions {
	var conv Conventions
	cur := dir
	for {
		if conv.Loading == "" {
			conv.Loading = r.findConventionFile(cur, "loading")
		}
		if conv.Error == "" {
			conv.Error = r.findConventionFile(cur, "error")
		}
		if conv.NotFound == "" {
			conv.NotFound = r.findConventionFile(cur, "not-found")
		}
		if cur == r.cfg.AppDir {
			break
		}
		parent := parentDir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return conv
}

// ResolveNotFound looks up the not-found convention file at the app root,
// used when page resolution fails outright. Nested not-found files nearer
// a failed path are covered by Conventions on any route that did resolve
// a page; this is the fallback for paths that match no directory at all.
func (r *Resolver) ResolveNotFound() (string, bool) {
	f := r.findConventionFile(r.cfg.AppDir, "not-found")
	return f, f != ""
}

func (r *Resolver) findConventionFile(dir, name string) string {
	for _, ext := range extensions {
		f := vfs.Join(dir, name+ext)
		if r.fsys.ExistsSync(f) {
			return f
		}
	}
	return ""
}
