package repair

import (
	"golang.org/x/net/html"

	"iconrepair/dom"
)

// vendorOrder is the lookup order for prefixed matching primitives.
var vendorOrder = []string{"ms", "webkit"}

// InstallShim fills in Matches and Closest on the document's capability
// surface where the host lacks them. Entries the host provides are left
// alone, so calling it again installs nothing. It reports whether anything
// was installed.
//
// Without a native or vendor matcher, Matches stays nil and the installed
// Closest finds nothing.
func InstallShim(doc *dom.Document) bool {
	caps := &doc.Caps
	installed := false
	if caps.Matches == nil {
		for _, v := range vendorOrder {
			if m := caps.VendorMatches[v]; m != nil {
				caps.Matches = m
				installed = true
				break
			}
		}
	}
	if caps.Closest == nil {
		caps.Closest = closestFallback(caps)
		installed = true
	}
	return installed
}

func closestFallback(caps *dom.Capabilities) dom.ClosestFunc {
	return func(el *html.Node, selector string) *html.Node {
		if caps.Matches == nil {
			return nil
		}
		for n := el; n != nil && n.Type == html.ElementNode; n = n.Parent {
			if caps.Matches(n, selector) {
				return n
			}
		}
		return nil
	}
}
