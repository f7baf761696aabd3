package static

import (
	"path"
	"strings"
)

// assetExtensions is the static-asset extension set. Anything else is
// HTML-page-like and may trigger middleware.
var assetExtensions = map[string]struct{}{
	"css": {}, "js": {}, "json": {}, "xml": {}, "txt": {}, "ico": {},
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "svg": {},
	"woff": {}, "woff2": {}, "ttf": {}, "eot": {},
	"webp": {}, "avif": {}, "map": {},
}

// IsAsset reports whether a URL path is asset-like: under the assets
// directory prefix, or carrying a known static-asset extension.
func IsAsset(urlPath, assetsPrefix string) bool {
	if assetsPrefix != "" {
		if urlPath == assetsPrefix || strings.HasPrefix(urlPath, assetsPrefix+"/") {
			return true
		}
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(urlPath), "."))
	_, ok := assetExtensions[ext]
	return ok
}
