package templates

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetExecute(t *testing.T) {
	fsys := fstest.MapFS{
		"page.html": {Data: []byte(`{{define "page"}}<h1>{{.}}</h1>{{template "footer"}}{{end}}`)},
		"foot.html": {Data: []byte(`{{define "footer"}}<footer>ok</footer>{{end}}`)},
	}
	set := MustParseFS(fsys, nil, "*.html")

	var buf strings.Builder
	require.NoError(t, set.Execute("page", "<b>hi</b>").Render(context.Background(), &buf))
	assert.Equal(t, "<h1>&lt;b&gt;hi&lt;/b&gt;</h1><footer>ok</footer>", buf.String())

	assert.Panics(t, func() { set.Execute("missing", nil) })
}

func TestEmbed(t *testing.T) {
	html, err := Embed(context.Background(), FromString(`<p>{{.}}</p>`, "x & y"))
	require.NoError(t, err)
	assert.Equal(t, "<p>x &amp; y</p>", string(html))
}
