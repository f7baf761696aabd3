package static

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SlashMode selects how directory-ish paths resolve.
type SlashMode string

const (
	SlashNever  SlashMode = "never"
	SlashIgnore SlashMode = "ignore"
	SlashAlways SlashMode = "always"
)

// Decision is the outcome of trailing-slash resolution: either a redirect
// target or the filesystem path to stream.
type Decision struct {
	FilePath   string
	IsDir      bool
	RedirectTo string // non-empty means a 301 to this path
}

// statFunc lets tests stub directory probing. Stat failures are treated as
// non-directory, never as errors.
type statFunc func(string) (fs.FileInfo, error)

// Resolve strips the base prefix, joins the URL path onto the client root
// and applies the trailing-slash mode. Redirect targets carry no query;
// the caller re-appends it.
func Resolve(urlPath string, mode SlashMode, clientRoot, base string, stat statFunc) Decision {
	if stat == nil {
		stat = os.Stat
	}
	fp := resolveFilePath(urlPath, clientRoot, base)
	isDir := false
	if fi, err := stat(fp); err == nil {
		isDir = fi.IsDir()
	}
	hasSlash := strings.HasSuffix(urlPath, "/")

	switch mode {
	case SlashNever:
		if isDir && hasSlash && urlPath != "/" {
			return Decision{RedirectTo: strings.TrimSuffix(urlPath, "/")}
		}
	case SlashAlways:
		if !hasSlash && path.Ext(urlPath) == "" && !isInternalPath(urlPath) {
			return Decision{RedirectTo: urlPath + "/"}
		}
	case SlashIgnore:
	}
	if isDir {
		fp = filepath.Join(fp, "index.html")
	}
	return Decision{FilePath: fp, IsDir: isDir}
}

// resolveFilePath maps a URL path to a path under the client root. The
// path is cleaned so traversal cannot escape the root.
func resolveFilePath(urlPath, clientRoot, base string) string {
	p := urlPath
	if base != "" && base != "/" {
		p = strings.TrimPrefix(p, strings.TrimSuffix(base, "/"))
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return filepath.Join(clientRoot, filepath.FromSlash(path.Clean(p)))
}

// isInternalPath marks reserved paths that never get a slash appended.
func isInternalPath(urlPath string) bool {
	return strings.HasPrefix(urlPath, "/_")
}
