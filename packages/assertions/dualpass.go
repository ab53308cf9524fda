package assertions

import (
	"github.com/abdul-hamid-achik/tplspec/packages/core/template"
)

// renderTwice renders body in a fresh child scope, throws the result away
// and renders it again in another fresh scope. The second string is the
// subject; an error from either pass is returned as is. Bodies that only
// fail once something has already been evaluated rely on both passes.
func renderTwice(ctx *template.Context, body []template.Node) (string, error) {
	if _, err := ctx.Child().RenderString(body); err != nil {
		return "", err
	}
	return ctx.Child().RenderString(body)
}
