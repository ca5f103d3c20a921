package landmark

import (
	"image"
	"image/color"
	"image/png"
	"io"
)

// Point is a keypoint projected to pixel space.
type Point struct {
	Section Section `json:"-"`
	Name    string  `json:"section"`
	Index   int     `json:"index"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
}

// Line is a skeleton edge projected to pixel space.
type Line struct {
	Section Section `json:"-"`
	Name    string  `json:"section"`
	X1      int     `json:"x1"`
	Y1      int     `json:"y1"`
	X2      int     `json:"x2"`
	Y2      int     `json:"y2"`
}

// Overlay is a drawable skeleton for one frame.
type Overlay struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Points []Point `json:"points"`
	Lines  []Line  `json:"lines"`
}

// BuildOverlay projects f onto a width×height canvas. Sections without
// data are skipped entirely, as are sentinel keypoints and every edge that
// touches one.
func BuildOverlay(f Frame, width, height int) Overlay {
	ov := Overlay{Width: width, Height: height}

	for _, s := range Sections {
		points := f.Section(s)
		if !HasData(points) {
			continue
		}

		px := make([]image.Point, len(points))
		present := make([]bool, len(points))
		for i, kp := range points {
			kp = kp.Sanitized()
			if kp.IsZero() {
				continue
			}
			present[i] = true
			px[i] = image.Pt(project(kp.X, width), project(kp.Y, height))
			ov.Points = append(ov.Points, Point{Section: s, Name: s.String(), Index: i, X: px[i].X, Y: px[i].Y})
		}

		for _, c := range ConnectionsFor(s) {
			if c.From >= len(points) || c.To >= len(points) || !present[c.From] || !present[c.To] {
				continue
			}
			a, b := px[c.From], px[c.To]
			ov.Lines = append(ov.Lines, Line{Section: s, Name: s.String(), X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y})
		}
	}

	return ov
}

// project maps a normalized coordinate to pixels, clamped to one canvas
// length beyond either edge.
func project(v float64, size int) int {
	p := v * float64(size)
	lo, hi := -float64(size), 2*float64(size)
	if p < lo {
		p = lo
	}
	if p > hi {
		p = hi
	}
	return int(p)
}

var sectionColors = map[Section]color.RGBA{
	SectionPose:      {R: 0x00, G: 0xc8, B: 0x50, A: 0xff},
	SectionLeftHand:  {R: 0xff, G: 0x55, B: 0x00, A: 0xff},
	SectionRightHand: {R: 0x00, G: 0x7f, B: 0xff, A: 0xff},
}

const pointRadius = 2

// Draw renders the overlay onto img. Lines are drawn first so points sit
// on top of them.
func (ov Overlay) Draw(img *image.RGBA) {
	for _, l := range ov.Lines {
		drawLine(img, l.X1, l.Y1, l.X2, l.Y2, sectionColors[l.Section])
	}
	for _, p := range ov.Points {
		c := sectionColors[p.Section]
		for dy := -pointRadius; dy <= pointRadius; dy++ {
			for dx := -pointRadius; dx <= pointRadius; dx++ {
				if dx*dx+dy*dy <= pointRadius*pointRadius {
					setPixel(img, p.X+dx, p.Y+dy, c)
				}
			}
		}
	}
}

// PNG renders the overlay on a black canvas and writes it as PNG.
func (ov Overlay) PNG(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, ov.Width, ov.Height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	ov.Draw(img)
	return png.Encode(w, img)
}

// drawLine is Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		setPixel(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Rect) {
		img.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
