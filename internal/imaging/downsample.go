package imaging

import "fmt"

// Downsample resizes src to dstW x dstH by nearest-neighbour sampling.
// Destination pixel (x, y) copies source pixel (x*srcW/dstW, y*srcH/dstH),
// using integer floor division. When the sizes already match, src is returned
// as is; callers must not mutate it afterwards if they still hold the original.
func Downsample(src Frame, dstW, dstH int) (Frame, error) {
	if err := src.Validate(); err != nil {
		return Frame{}, err
	}
	if dstW <= 0 || dstH <= 0 {
		return Frame{}, fmt.Errorf("%w: target %dx%d", ErrFrameSize, dstW, dstH)
	}
	if src.Width == dstW && src.Height == dstH {
		return src, nil
	}

	dst := NewFrame(dstW, dstH)
	cols := sourceIndices(src.Width, dstW)
	for y := 0; y < dstH; y++ {
		sy := y * src.Height / dstH
		srcRow := sy * src.Width
		dstRow := y * dstW
		for x, sx := range cols {
			si := (srcRow + sx) * BytesPerPixel
			di := (dstRow + x) * BytesPerPixel
			copy(dst.Pix[di:di+BytesPerPixel], src.Pix[si:si+BytesPerPixel])
		}
	}
	return dst, nil
}

// sourceIndices precomputes the sampled source column for every destination column.
func sourceIndices(srcLen, dstLen int) []int {
	idx := make([]int, dstLen)
	for i := range idx {
		idx[i] = i * srcLen / dstLen
	}
	return idx
}
