package frame

// A Color holds the red, green and blue channels of one
// pixel.
type Color [3]float64

// A Buffer is a row-major frame of pixels with three
// contiguous channels per pixel.
//
// A new Buffer is all zeros, which is the neutral value
// for merging by summation.
type Buffer struct {
	Width  int
	Height int
	Pix    []float64
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]float64, 3*width*height),
	}
}

// Offset returns the index of a pixel's first channel.
func (b *Buffer) Offset(row, col int) int {
	return 3 * (row*b.Width + col)
}

// Set stores a pixel.
func (b *Buffer) Set(row, col int, c Color) {
	copy(b.Pix[b.Offset(row, col):], c[:])
}

// At loads a pixel.
func (b *Buffer) At(row, col int) Color {
	var c Color
	copy(c[:], b.Pix[b.Offset(row, col):])
	return c
}
