package layout

import "math"

type PaperSize struct {
	Name   string
	Width  float64 // in `pt` (1" = 72pts)
	Height float64 // in `pt`
}

var (
	LetterSize = PaperSize{Name: "Letter", Width: 612, Height: 792}        // 8.5" x 11"
	A4Size     = PaperSize{Name: "A4", Width: 595.27559, Height: 841.88976} // 210mm x 297mm
	LegalSize  = PaperSize{Name: "Legal", Width: 612, Height: 1008}        // 8.5" x 14"
)

var knownPaperSizes = []PaperSize{LetterSize, A4Size, LegalSize}

// MatchPaperSize names the standard paper size of a page, within 1pt, in either orientation.
func MatchPaperSize(width, height float64) (PaperSize, bool) {
	for _, p := range knownPaperSizes {
		if near(p.Width, width) && near(p.Height, height) {
			return p, true
		}
		if near(p.Width, height) && near(p.Height, width) {
			return PaperSize{Name: p.Name + " landscape", Width: p.Height, Height: p.Width}, true
		}
	}
	return PaperSize{Width: width, Height: height}, false
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1
}
