// Package static contains static assets like css, js, images, etc.
package static

import (
	"embed"
	"io/fs"
)

//go:embed assets/*
var embedded embed.FS

// Assets is rooted at the assets directory so /assets/style.css maps to style.css.
var Assets fs.FS

func init() {
	var err error
	Assets, err = fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
}
