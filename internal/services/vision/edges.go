package vision

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Default Canny parameters.
const (
	DefaultLowThreshold  = 50.0
	DefaultHighThreshold = 150.0
	// DefaultBlurSigma matches the sigma OpenCV derives for a 5x5 kernel.
	DefaultBlurSigma = 1.1
)

const (
	tan22 = 0.41421356237309503 // tan(22.5 deg)
	tan67 = 2.414213562373095   // tan(67.5 deg)
)

// EdgeMap is a binary edge image: 255 on edges, 0 elsewhere.
type EdgeMap struct {
	Width  int
	Height int
	Pix    []uint8
	count  int
}

// Count is the number of edge pixels.
func (m *EdgeMap) Count() int { return m.count }

// At reports the edge value at (x, y).
func (m *EdgeMap) At(x, y int) uint8 { return m.Pix[y*m.Width+x] }

// gaussianKernel returns a normalized 1-D Gaussian of the given odd size.
// sigma <= 0 derives it from the size the way OpenCV does.
func gaussianKernel(size int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	k := make([]float64, size)
	half := size / 2
	sum := 0.0
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// blurKernel5x5 is the outer product of the 5-tap Gaussian with itself.
func blurKernel5x5(sigma float64) [25]float64 {
	g := gaussianKernel(5, sigma)
	var k [25]float64
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			k[y*5+x] = g[y] * g[x]
		}
	}
	return k
}

// smoothLuma converts the grid to 8-bit luma and applies a 5x5 Gaussian blur.
// Returns the intensity plane, one byte per pixel.
func smoothLuma(grid *PixelGrid, sigma float64) []uint8 {
	gray := imaging.Grayscale(grid.NRGBA())
	blurred := imaging.Convolve5x5(gray, blurKernel5x5(sigma), nil)
	return plane(blurred, grid.Width, grid.Height)
}

func plane(img *image.NRGBA, w, h int) []uint8 {
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			out[y*w+x] = row[x*4]
		}
	}
	return out
}

// canny runs Sobel (L1 magnitude), non-maximum suppression and hysteresis
// over an intensity plane.
func canny(src []uint8, w, h int, low, high float64) *EdgeMap {
	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		return float64(src[y*w+x])
	}

	gx := make([]float64, w*h)
	gy := make([]float64, w*h)
	mag := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			dy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			i := y*w + x
			gx[i], gy[i] = dx, dy
			mag[i] = math.Abs(dx) + math.Abs(dy)
		}
	}

	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	// 0 = suppressed, 1 = weak candidate, 2 = strong
	class := make([]uint8, w*h)
	stack := make([]int, 0, 256)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}
			ax, ay := math.Abs(gx[i]), math.Abs(gy[i])
			var a, b float64
			switch {
			case ay <= ax*tan22:
				a, b = magAt(x-1, y), magAt(x+1, y)
			case ay > ax*tan67:
				a, b = magAt(x, y-1), magAt(x, y+1)
			case gx[i]*gy[i] > 0:
				a, b = magAt(x-1, y-1), magAt(x+1, y+1)
			default:
				a, b = magAt(x+1, y-1), magAt(x-1, y+1)
			}
			if m <= a || m < b {
				continue
			}
			if m > high {
				class[i] = 2
				stack = append(stack, i)
			} else {
				class[i] = 1
			}
		}
	}

	edges := &EdgeMap{Width: w, Height: h, Pix: make([]uint8, w*h)}
	for _, i := range stack {
		edges.Pix[i] = 255
	}
	edges.count = len(stack)

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if class[j] == 1 && edges.Pix[j] == 0 {
					edges.Pix[j] = 255
					edges.count++
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

// columnPeak smooths column x of the edge map with a vertical kernel and
// returns the row of the strongest response. Ties resolve to the first
// row, so a column without edges yields 0.
func columnPeak(edges *EdgeMap, x int, kernel []float64) int {
	h := edges.Height
	half := len(kernel) / 2
	best, bestRow := 0.0, 0
	for y := 0; y < h; y++ {
		v := 0.0
		for k, kv := range kernel {
			yy := y + k - half
			if yy < 0 {
				yy = 0
			} else if yy >= h {
				yy = h - 1
			}
			v += kv * float64(edges.Pix[yy*edges.Width+x])
		}
		if v > best {
			best, bestRow = v, y
		}
	}
	return bestRow
}
