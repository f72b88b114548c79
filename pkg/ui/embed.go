// Package ui provides the embedded web UI for fbgrab.
//
// The page is an html/template: the server renders it with the list of
// recently processed videos and caches the result until a new video is
// processed.
package ui

import (
	_ "embed"
)

// IndexHTML is the template for the home page form.
//
//go:embed index.html
var IndexHTML []byte
