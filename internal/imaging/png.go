package imaging

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// CompressionLevel is the zlib level used for the image data stream.
const CompressionLevel = 6

// ErrEncoding marks a failure to produce an image from a frame. It only
// happens for malformed input and is treated as a programming error.
var ErrEncoding = errors.New("png encoding failed")

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	bitDepth       = 8
	colorTypeRGB   = 2
	filterNone     = 0
	rgbBytesPerPix = 3
)

// EncodePNG writes f as an 8-bit truecolor PNG with filter type 0 on every
// scanline. Alpha is dropped. The output depends only on the pixels, so the
// same frame always encodes to the same bytes.
func EncodePNG(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	idat, err := compressScanlines(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(f.Width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(f.Height))
	ihdr[8] = bitDepth
	ihdr[9] = colorTypeRGB
	// compression method, filter method, interlace method all 0

	out := bytes.NewBuffer(make([]byte, 0, len(pngSignature)+3*12+len(ihdr)+len(idat)))
	out.Write(pngSignature)
	writeChunk(out, "IHDR", ihdr[:])
	writeChunk(out, "IDAT", idat)
	writeChunk(out, "IEND", nil)
	return out.Bytes(), nil
}

// compressScanlines converts BGRA rows to filter-prefixed RGB rows and deflates them.
func compressScanlines(f Frame) ([]byte, error) {
	stride := f.Width*rgbBytesPerPix + 1
	raw := make([]byte, stride*f.Height)
	for y := 0; y < f.Height; y++ {
		row := raw[y*stride : (y+1)*stride]
		row[0] = filterNone
		src := f.Pix[f.Offset(0, y):f.Offset(0, y+1)]
		for x := 0; x < f.Width; x++ {
			s := x * BytesPerPixel
			d := 1 + x*rgbBytesPerPix
			row[d] = src[s+2]
			row[d+1] = src[s+1]
			row[d+2] = src[s]
		}
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, CompressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeChunk frames payload as length | tag | payload | crc32(tag+payload).
func writeChunk(w *bytes.Buffer, tag string, payload []byte) {
	var word [4]byte
	binary.BigEndian.PutUint32(word[:], uint32(len(payload)))
	w.Write(word[:])

	crc := crc32.NewIEEE()
	crc.Write([]byte(tag))
	crc.Write(payload)

	w.WriteString(tag)
	w.Write(payload)
	binary.BigEndian.PutUint32(word[:], crc.Sum32())
	w.Write(word[:])
}
