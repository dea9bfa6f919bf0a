package page

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/matzehuels/visstudy/pkg/errors"
)

// Minifier shrinks rendered pages, including inline styles and scripts.
// It is safe for concurrent use.
type Minifier struct {
	m *minify.M
}

// NewMinifier returns a minifier for HTML with embedded CSS and JavaScript.
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return &Minifier{m: m}
}

// HTML minifies an HTML document. A nil Minifier returns b unchanged.
func (mf *Minifier) HTML(b []byte) ([]byte, error) {
	if mf == nil {
		return b, nil
	}
	out, err := mf.m.Bytes("text/html", b)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "minify page")
	}
	return out, nil
}
