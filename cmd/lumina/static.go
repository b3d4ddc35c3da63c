package main

import "path/filepath"

// staticFilePath maps a request path onto the static directory. The URL path
// is rooted and cleaned before joining, so "../" segments cannot escape the
// directory.
func staticFilePath(dir, urlPath string) string {
	if urlPath == "/" {
		urlPath = "/index.html"
	}
	return filepath.Join(dir, filepath.Clean("/"+urlPath))
}
