package overlay

import (
	"fmt"
	"strings"

	"github.com/parla-app/parla/internal/dom"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"golang.org/x/net/html"
)

const (
	StyleID       = "parla-overlay-style"
	DisabledClass = "parla-disabled"
	textCSS       = "text/css"
)

// stylesheet hides the host's captions while the overlay is live. The
// parla-disabled body class restores them.
const stylesheet = `
#parla-static-subtitle-container {
  display: none;
  pointer-events: auto;
  text-align: center;
}
#parla-static-subtitle-container.active {
  display: block;
}
#parla-static-subtitle-container .subtitle-text {
  display: inline-block;
  padding: 8px 16px;
  background: rgba(8, 8, 8, 0.75);
  color: #ffffff;
  font-size: 28px;
  line-height: 36px;
  border-radius: 6px;
}
#parla-static-subtitle-container .subtitle-word {
  cursor: pointer;
  border-radius: 3px;
}
#parla-static-subtitle-container .subtitle-word:hover {
  background: rgba(255, 214, 0, 0.45);
}
%s {
  visibility: hidden !important;
}
body.parla-disabled #parla-static-subtitle-container {
  display: none !important;
}
%s {
  visibility: visible !important;
}
`

// Stylesheet renders the minified overlay stylesheet. native lists the
// host caption selectors to hide.
func Stylesheet(native []string) (string, error) {
	hide, restore := "#parla-none", "#parla-none"
	if len(native) > 0 {
		hide = strings.Join(native, ",")
		restore = "body." + DisabledClass + " " + strings.Join(native, ",body."+DisabledClass+" ")
	}

	m := minify.New()
	m.AddFunc(textCSS, css.Minify)
	out, err := m.String(textCSS, fmt.Sprintf(stylesheet, hide, restore))
	if err != nil {
		return "", fmt.Errorf("minify overlay stylesheet: %w", err)
	}
	return out, nil
}

// InstallStyles injects the stylesheet into the document head, replacing an
// earlier copy.
func InstallStyles(doc *dom.Document, native []string) (*html.Node, error) {
	text, err := Stylesheet(native)
	if err != nil {
		return nil, err
	}
	RemoveStyles(doc)

	style := doc.CreateElement("style")
	doc.SetAttr(style, "id", StyleID)
	doc.AppendChild(style, doc.CreateText(text))
	doc.AppendChild(doc.Head(), style)
	return style, nil
}

// RemoveStyles drops the injected stylesheet, if any.
func RemoveStyles(doc *dom.Document) {
	if n := doc.QueryFirst("#" + StyleID); n != nil {
		doc.RemoveNode(n)
	}
}

// SetDisabled toggles the body class that hides the overlay and restores
// native captions.
func SetDisabled(doc *dom.Document, disabled bool) {
	if disabled {
		doc.AddClass(doc.Body(), DisabledClass)
		return
	}
	doc.RemoveClass(doc.Body(), DisabledClass)
}
