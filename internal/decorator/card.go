package decorator

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/prylval/affiliates/internal/domain"
)

const (
	attrProduct         = "data-product"
	attrAffiliateImage  = "data-affiliate-image"
	attrAffiliateButton = "data-affiliate-button"

	defaultImageWidth  = "400"
	defaultImageHeight = "200"

	sponsoredRel   = "sponsored nofollow noopener"
	affiliateClass = "is-affiliate"
	buttonText     = "Se hos butik"
)

var (
	buttonClasses = []string{"btn-primary", "pick-btn", "card-btn"}
	footerClasses = []string{"card-footer", "pick-footer", "product-footer"}

	rasterExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png)`)
)

func decorateCard(card *html.Node, name string, entry domain.AffiliateEntry) {
	if img := findFirst(card, isElement(atom.Img)); img != nil {
		replaceImage(img, entry.ImageURL, name)
	}

	if btn := findFirst(card, hasAnyClass(buttonClasses)); btn != nil {
		updateButton(btn, entry.TrackingURL, name)
		return
	}

	container := findFirst(card, hasAnyClass(footerClasses))
	if container == nil {
		container = card
	}
	createButton(container, entry.TrackingURL, name)
}

// replaceImage swaps img for a <picture> showing the affiliate image, with an
// AVIF source when one is available.
func replaceImage(img *html.Node, imageURL, name string) {
	if imageURL == "" || img.Parent == nil {
		return
	}
	if v, _ := attr(img, attrAffiliateImage); v == imageURL {
		return
	}

	picture := element(atom.Picture)

	if strings.Contains(strings.ToLower(imageURL), ".avif") {
		picture.AppendChild(avifSource(imageURL))
	} else if src, _ := attr(img, "src"); src != "" {
		if loc := rasterExt.FindStringIndex(src); loc != nil {
			picture.AppendChild(avifSource(src[:loc[0]] + ".avif" + src[loc[1]:]))
		}
	}

	alt := attrOr(img, "alt", name)
	replacement := element(atom.Img,
		html.Attribute{Key: "src", Val: imageURL},
		html.Attribute{Key: "alt", Val: alt},
		html.Attribute{Key: "width", Val: attrOr(img, "width", defaultImageWidth)},
		html.Attribute{Key: "height", Val: attrOr(img, "height", defaultImageHeight)},
		html.Attribute{Key: "loading", Val: "lazy"},
		html.Attribute{Key: "decoding", Val: "async"},
		html.Attribute{Key: attrAffiliateImage, Val: imageURL},
	)
	picture.AppendChild(replacement)

	img.Parent.InsertBefore(picture, img)
	img.Parent.RemoveChild(img)
}

func avifSource(srcset string) *html.Node {
	return element(atom.Source,
		html.Attribute{Key: "srcset", Val: srcset},
		html.Attribute{Key: "type", Val: "image/avif"},
	)
}

func updateButton(btn *html.Node, trackingURL, name string) {
	if trackingURL == "" {
		return
	}
	if v, _ := attr(btn, attrAffiliateButton); v == trackingURL {
		return
	}

	setAttr(btn, "href", trackingURL)
	setAttr(btn, "rel", sponsoredRel)
	setAttr(btn, "target", "_blank")
	setAttr(btn, attrAffiliateButton, trackingURL)
	addClass(btn, affiliateClass)
	if v, _ := attr(btn, "aria-label"); v == "" {
		setAttr(btn, "aria-label", ariaLabel(name))
	}
}

func createButton(container *html.Node, trackingURL, name string) {
	if trackingURL == "" {
		return
	}
	if findFirst(container, hasAttr(attrAffiliateButton)) != nil {
		return
	}

	a := element(atom.A,
		html.Attribute{Key: "href", Val: trackingURL},
		html.Attribute{Key: "class", Val: "btn btn-primary affiliate-btn " + affiliateClass},
		html.Attribute{Key: "rel", Val: sponsoredRel},
		html.Attribute{Key: "target", Val: "_blank"},
		html.Attribute{Key: attrAffiliateButton, Val: trackingURL},
		html.Attribute{Key: "aria-label", Val: ariaLabel(name)},
	)
	a.AppendChild(&html.Node{Type: html.TextNode, Data: buttonText})
	container.AppendChild(a)
}

func ariaLabel(name string) string {
	return fmt.Sprintf("Se %s hos butik (annonslänk)", name)
}

// Node helpers

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrOr(n *html.Node, key, fallback string) string {
	if v, _ := attr(n, key); v != "" {
		return v
	}
	return fallback
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func classes(n *html.Node) []string {
	v, _ := attr(n, "class")
	return strings.Fields(v)
}

func addClass(n *html.Node, class string) {
	cs := classes(n)
	if slices.Contains(cs, class) {
		return
	}
	setAttr(n, "class", strings.Join(append(cs, class), " "))
}

func isProductCard(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	_, ok := attr(n, attrProduct)
	return ok
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func hasAttr(key string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		_, ok := attr(n, key)
		return ok
	}
}

func hasAnyClass(want []string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		return slices.ContainsFunc(classes(n), func(c string) bool {
			return slices.Contains(want, c)
		})
	}
}

// findFirst returns the first descendant of n in document order matching
// match, or nil.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every descendant of n matching match, in document order.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}
