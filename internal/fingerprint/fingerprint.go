// Package fingerprint computes perceptual hashes and embedding vectors used
// to decide whether two photos show the same scene.
package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/bits"
	"slices"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const (
	dctSize  = 32
	hashSide = 8
	hashBits = hashSide * hashSide
)

// Hashes holds the perceptual hashes of one image.
type Hashes struct {
	PHash uint64 `json:"-"`
	DHash uint64 `json:"-"`
}

// PHashHex returns the pHash as 16 hex digits.
func (h Hashes) PHashHex() string { return fmt.Sprintf("%016x", h.PHash) }

// DHashHex returns the dHash as 16 hex digits.
func (h Hashes) DHashHex() string { return fmt.Sprintf("%016x", h.DHash) }

// ComputeHashes decodes encoded image data and hashes it.
func ComputeHashes(imageData []byte) (Hashes, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return Hashes{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return HashImage(img), nil
}

// HashImage computes pHash and dHash of a decoded image.
func HashImage(img image.Image) Hashes {
	return Hashes{PHash: perceptualHash(img), DHash: differenceHash(img)}
}

// HammingDistance counts differing bits.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similarity maps the Hamming distance of two 64-bit hashes to [0,1],
// 1 meaning identical hashes.
func Similarity(a, b uint64) float64 {
	return 1 - float64(HammingDistance(a, b))/hashBits
}

// perceptualHash is the DCT hash: the low 8x8 frequencies of a 32x32 gray
// thumbnail (DC term excluded) compared against their median.
func perceptualHash(img image.Image) uint64 {
	gray := grayscale(img, dctSize, dctSize)
	coeffs := dct2(gray)

	low := make([]float64, 0, hashBits)
	for u := range hashSide {
		for v := range hashSide {
			if u == 0 && v == 0 {
				continue
			}
			low = append(low, coeffs[u][v])
		}
	}
	// 63 AC terms, the 64th bit reuses the first coefficient outside the block.
	low = append(low, coeffs[0][hashSide])

	med := median(low)
	var hash uint64
	for i, c := range low {
		if c > med {
			hash |= 1 << (hashBits - 1 - i)
		}
	}
	return hash
}

// differenceHash compares horizontally adjacent pixels of a 9x8 thumbnail.
func differenceHash(img image.Image) uint64 {
	gray := grayscale(img, hashSide+1, hashSide)
	var hash uint64
	bit := hashBits - 1
	for y := range hashSide {
		for x := range hashSide {
			if gray[y][x] > gray[y][x+1] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

// grayscale scales img to w x h and returns BT.601 luma values indexed [y][x].
func grayscale(img image.Image, w, h int) [][]float64 {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	out := make([][]float64, h)
	for y := range h {
		out[y] = make([]float64, w)
		for x := range w {
			i := dst.PixOffset(x, y)
			r, g, b := dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2]
			out[y][x] = 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
		}
	}
	return out
}

// dct2 is a separable 2D DCT-II of a square matrix.
func dct2(m [][]float64) [][]float64 {
	n := len(m)
	basis := make([][]float64, n)
	for k := range n {
		basis[k] = make([]float64, n)
		for i := range n {
			basis[k][i] = math.Cos(math.Pi * float64(k) * (2*float64(i) + 1) / (2 * float64(n)))
		}
	}

	// rows first, then columns
	tmp := make([][]float64, n)
	for y := range n {
		tmp[y] = make([]float64, n)
		for k := range n {
			var s float64
			for x := range n {
				s += m[y][x] * basis[k][x]
			}
			tmp[y][k] = s
		}
	}
	out := make([][]float64, n)
	for u := range n {
		out[u] = make([]float64, n)
		for v := range n {
			var s float64
			for y := range n {
				s += tmp[y][v] * basis[u][y]
			}
			out[u][v] = s
		}
	}
	return out
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// CosineSimilarity returns the cosine of the angle between two vectors, 0
// for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
