package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/MeKo-Tech/intygscan/internal/layout"
)

// ParseHOCR reads an hOCR document (Tesseract, Document AI exports) into a
// Result. Only the first ocr_page is used. Text keeps one line per ocr_line.
func ParseHOCR(data []byte) (*Result, error) {
	if !isUTF8Declared(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode hocr: %w", err)
		}
		data = decoded
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}
	page := findClass(doc, "ocr_page")
	if page == nil {
		return nil, errors.New("no ocr_page element in hocr")
	}

	res := &Result{}
	if box, ok := parseBBox(attr(page, "title")); ok {
		res.Width, res.Height = int(box[2]), int(box[3])
	}

	var lines []string
	var walk func(n *html.Node, line *[]string)
	walk = func(n *html.Node, line *[]string) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "ocr_line") || hasClass(n, "ocrx_line"):
				var words []string
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c, &words)
				}
				if len(words) > 0 {
					lines = append(lines, strings.Join(words, " "))
				}
				return
			case hasClass(n, "ocrx_word"):
				text := strings.TrimSpace(nodeText(n))
				title := attr(n, "title")
				box, ok := parseBBox(title)
				if text == "" || !ok {
					return
				}
				res.Words = append(res.Words, layout.Word{
					Text: text, X1: box[0], Y1: box[1], X2: box[2], Y2: box[3],
					Confidence: titleFloat(title, "x_wconf"),
				})
				if line != nil {
					*line = append(*line, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, line)
		}
	}
	walk(page, nil)
	res.Text = strings.Join(lines, "\n")
	return res, nil
}

// isUTF8Declared reports whether the document is UTF-8, which is assumed
// unless a meta charset says otherwise.
func isUTF8Declared(data []byte) bool {
	head := strings.ToLower(string(data[:min(len(data), 2048)]))
	i := strings.Index(head, "charset=")
	if i < 0 {
		return true
	}
	cs := strings.TrimLeft(head[i+len("charset="):], `"' `)
	return strings.HasPrefix(cs, "utf-8") || strings.HasPrefix(cs, "utf8")
}

func findClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findClass(c, class); f != nil {
			return f
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// titleProps splits an hOCR title ("bbox 1 2 3 4; x_wconf 95") into its
// properties.
func titleProps(title string) map[string][]string {
	out := map[string][]string{}
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			out[items[0]] = items[1:]
		}
	}
	return out
}

func parseBBox(title string) ([4]float64, bool) {
	var box [4]float64
	vals := titleProps(title)["bbox"]
	if len(vals) < 4 {
		return box, false
	}
	for i := range box {
		v, err := strconv.ParseFloat(vals[i], 64)
		if err != nil {
			return box, false
		}
		box[i] = v
	}
	return box, true
}

func titleFloat(title, key string) float64 {
	vals := titleProps(title)[key]
	if len(vals) == 0 {
		return 0
	}
	v, _ := strconv.ParseFloat(vals[0], 64)
	return v
}
