// Package annotation builds the annotation payloads understood by the document server.
//
// Builders are pure. Sending a payload is the caller's business.
package annotation

import (
	"strconv"

	"github.com/zeptools/gw-invoicer/layout"
)

const (
	TypeText  = "pspdfkit/text"
	TypeLine  = "pspdfkit/shape/line"
	TypeImage = "pspdfkit/image"
)

// RuleHeight is the bbox height of a horizontal rule
const RuleHeight = 5

// Annotation is the body of an annotation create/update request.
type Annotation struct {
	ID      string  `json:"id"`
	Content Content `json:"content"`
}

// Content is a flat JSON object. Updates and style overrides apply key by key.
type Content map[string]any

// BBox is [left, top, width, height] in page units
type BBox [4]float64

// Point is [x, y] in page units
type Point [2]float64

func (c Content) Type() string {
	s, _ := c["type"].(string)
	return s
}

func (c Content) Text() string {
	s, _ := c["text"].(string)
	return s
}

func (c Content) BBox() (BBox, bool) {
	switch v := c["bbox"].(type) {
	case BBox:
		return v, true
	case []any: // decoded from JSON
		if len(v) != 4 {
			return BBox{}, false
		}
		var b BBox
		for i := range v {
			f, ok := v[i].(float64)
			if !ok {
				return BBox{}, false
			}
			b[i] = f
		}
		return b, true
	}
	return BBox{}, false
}

// Merge returns a new Content with the keys of every override applied over c in order.
func (c Content) Merge(overrides ...map[string]any) Content {
	size := len(c)
	for _, o := range overrides {
		size += len(o)
	}
	out := make(Content, size)
	for k, v := range c {
		out[k] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

func textDefaults() Content {
	return Content{
		"v":               1,
		"type":            TypeText,
		"pageIndex":       0,
		"opacity":         1,
		"font":            "Arial",
		"fontSize":        12,
		"fontColor":       "#000000",
		"horizontalAlign": "left",
		"verticalAlign":   "top",
	}
}

// Text builds a text annotation. props are applied over the defaults in order,
// so later keys win.
func Text(id string, props ...map[string]any) Annotation {
	return Annotation{ID: id, Content: textDefaults().Merge(props...)}
}

// RuleID names the rule drawn at top, e.g. "ht-485"
func RuleID(top float64) string {
	return "ht-" + strconv.FormatFloat(top, 'f', -1, 64)
}

// Rule builds a horizontal line starting at the left margin.
// The bbox is pageWidth-2*margin wide while the line ends at pageWidth-margin;
// documents built earlier rely on exactly these coordinates.
func Rule(id string, l layout.Layout, top float64) Annotation {
	return Annotation{ID: id, Content: Content{
		"v":           1,
		"type":        TypeLine,
		"pageIndex":   0,
		"bbox":        BBox{l.Margin, top, l.PageWidth - 2*l.Margin, RuleHeight},
		"opacity":     1,
		"startPoint":  Point{l.Margin, top},
		"endPoint":    Point{l.PageWidth - l.Margin, top},
		"strokeWidth": 1,
		"strokeColor": "#000000",
	}}
}

// Image builds an image annotation referencing an attachment by its content hash.
func Image(id string, bbox BBox, contentHash string, contentType string) Annotation {
	return Annotation{ID: id, Content: Content{
		"v":                 1,
		"type":              TypeImage,
		"pageIndex":         0,
		"bbox":              bbox,
		"opacity":           1,
		"imageAttachmentId": contentHash,
		"contentType":       contentType,
	}}
}
