package camera

import (
	"encoding/binary"
	"unsafe"

	"github.com/chewxy/math32"
)

// GPUCameraUniform mirrors the Camera struct in the splat shader (144 bytes).
type GPUCameraUniform struct {
	View       [16]float32 // offset   0
	Projection [16]float32 // offset  64
	Viewport   [2]float32  // offset 128: width, height in pixels
	_pad       [2]float32  // offset 136
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the uniform into a little-endian byte buffer for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	put := func(offset int, v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math32.Float32bits(v))
	}
	for i := range 16 {
		put(i*4, g.View[i])
		put(64+i*4, g.Projection[i])
	}
	put(128, g.Viewport[0])
	put(132, g.Viewport[1])
	return buf
}
