package loader

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chewxy/math32"
)

// splatRecordSize is the byte size of one record in a .splat file: position (3 x f32),
// scale (3 x f32), color (4 x u8) and rotation (4 x u8), little endian.
const splatRecordSize = 32

// splatLoaderBackendImpl is the implementation of splatLoaderBackend.
type splatLoaderBackendImpl struct{}

// splatLoaderBackend is a loaderBackend for the headerless .splat record format.
type splatLoaderBackend interface {
	loaderBackend
}

var _ splatLoaderBackend = &splatLoaderBackendImpl{}

// newSplatLoaderBackend creates a new .splat loader backend.
//
// Returns:
//   - splatLoaderBackend: the loader backend for .splat files
func newSplatLoaderBackend() splatLoaderBackend {
	return &splatLoaderBackendImpl{}
}

func (b *splatLoaderBackendImpl) LoadReader(name string, r io.Reader) (*Cloud, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("splat: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("splat: no records")
	}
	if len(data)%splatRecordSize != 0 {
		return nil, fmt.Errorf("splat: size %d is not a multiple of %d", len(data), splatRecordSize)
	}

	points := make([]Point, len(data)/splatRecordSize)
	for i := range points {
		rec := data[i*splatRecordSize : (i+1)*splatRecordSize]
		var p Point
		for axis := range 3 {
			p.Position[axis] = math32.Float32frombits(binary.LittleEndian.Uint32(rec[axis*4:]))
		}
		var sum float32
		for axis := range 3 {
			sum += math32.Float32frombits(binary.LittleEndian.Uint32(rec[12+axis*4:]))
		}
		p.Radius = sum / 3
		for c := range 4 {
			p.Color[c] = float32(rec[24+c]) / 255
		}
		points[i] = p
	}
	return newCloud(name, points), nil
}
