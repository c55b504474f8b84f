// Package web embeds the static single-page dashboard served at /.
package web

import "embed"

// StaticFS embeds static assets (html/css/js).
//
//go:embed static/*
var StaticFS embed.FS
