package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/chewxy/math32"
)

// shC0 is the zeroth-order spherical harmonic constant used by 3D Gaussian splatting exports.
const shC0 = 0.28209479177387814

// defaultPointRadius is used for plain point clouds that carry no per-point scale.
const defaultPointRadius = 0.01

type plyFormat int

const (
	plyASCII plyFormat = iota
	plyBinaryLittleEndian
	plyBinaryBigEndian
)

type plyProperty struct {
	name   string
	kind   string
	size   int
	offset int
}

type plyHeader struct {
	format     plyFormat
	vertices   int
	properties []plyProperty
	stride     int
}

// index returns the position of a property by name, or -1.
func (h *plyHeader) index(name string) int {
	for i, p := range h.properties {
		if p.name == name {
			return i
		}
	}
	return -1
}

var plyTypeSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4, "double": 8, "float64": 8,
}

// plyLoaderBackendImpl is the implementation of plyLoaderBackend.
type plyLoaderBackendImpl struct{}

// plyLoaderBackend is a loaderBackend for PLY point clouds. It reads ascii and binary files
// with either the 3D Gaussian splatting property layout or plain red/green/blue colors.
type plyLoaderBackend interface {
	loaderBackend
}

var _ plyLoaderBackend = &plyLoaderBackendImpl{}

// newPLYLoaderBackend creates a new PLY loader backend.
//
// Returns:
//   - plyLoaderBackend: the loader backend for .ply files
func newPLYLoaderBackend() plyLoaderBackend {
	return &plyLoaderBackendImpl{}
}

func (b *plyLoaderBackendImpl) LoadReader(name string, r io.Reader) (*Cloud, error) {
	br := bufio.NewReader(r)
	h, err := readPLYHeader(br)
	if err != nil {
		return nil, err
	}
	if h.vertices == 0 {
		return nil, fmt.Errorf("ply: no vertices")
	}

	values := make([]float64, len(h.properties))
	mapper := newPLYMapper(h)
	points := make([]Point, h.vertices)

	switch h.format {
	case plyASCII:
		for i := range h.vertices {
			line, err := br.ReadString('\n')
			if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
				return nil, fmt.Errorf("ply: vertex %d: %w", i, io.ErrUnexpectedEOF)
			}
			fields := strings.Fields(line)
			if len(fields) < len(h.properties) {
				return nil, fmt.Errorf("ply: vertex %d: expected %d values, got %d", i, len(h.properties), len(fields))
			}
			for j := range h.properties {
				v, err := strconv.ParseFloat(fields[j], 64)
				if err != nil {
					return nil, fmt.Errorf("ply: vertex %d property %s: %w", i, h.properties[j].name, err)
				}
				values[j] = v
			}
			points[i] = mapper.point(values)
		}
	default:
		var order binary.ByteOrder = binary.LittleEndian
		if h.format == plyBinaryBigEndian {
			order = binary.BigEndian
		}
		record := make([]byte, h.stride)
		for i := range h.vertices {
			if _, err := io.ReadFull(br, record); err != nil {
				return nil, fmt.Errorf("ply: vertex %d: %w", i, err)
			}
			for j, p := range h.properties {
				values[j] = decodePLYValue(record[p.offset:p.offset+p.size], p.kind, order)
			}
			points[i] = mapper.point(values)
		}
	}

	return newCloud(name, points), nil
}

func readPLYHeader(br *bufio.Reader) (*plyHeader, error) {
	magic, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("ply: missing magic header")
	}

	h := &plyHeader{}
	formatSeen := false
	// element currently being declared; properties are only collected for "vertex"
	element := ""
	vertexSeen := false
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("ply: header not terminated: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "comment", "obj_info":
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("ply: malformed format line")
			}
			switch fields[1] {
			case "ascii":
				h.format = plyASCII
			case "binary_little_endian":
				h.format = plyBinaryLittleEndian
			case "binary_big_endian":
				h.format = plyBinaryBigEndian
			default:
				return nil, fmt.Errorf("ply: unknown format %q", fields[1])
			}
			formatSeen = true
		case "element":
			if len(fields) < 3 {
				return nil, fmt.Errorf("ply: malformed element line")
			}
			element = fields[1]
			if element != "vertex" {
				if !vertexSeen {
					return nil, fmt.Errorf("ply: element %q precedes vertex data", element)
				}
				continue
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("ply: bad vertex count %q", fields[2])
			}
			h.vertices = n
			vertexSeen = true
		case "property":
			if element != "vertex" {
				continue
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("ply: malformed property line")
			}
			if fields[1] == "list" {
				return nil, fmt.Errorf("ply: list property %q on vertex is not supported", fields[len(fields)-1])
			}
			size, ok := plyTypeSizes[fields[1]]
			if !ok {
				return nil, fmt.Errorf("ply: unknown property type %q", fields[1])
			}
			h.properties = append(h.properties, plyProperty{name: fields[2], kind: fields[1], size: size, offset: h.stride})
			h.stride += size
		case "end_header":
			if !formatSeen {
				return nil, fmt.Errorf("ply: missing format line")
			}
			if !vertexSeen {
				return nil, fmt.Errorf("ply: no vertex element")
			}
			return h, nil
		default:
			return nil, fmt.Errorf("ply: unexpected header line %q", strings.TrimSpace(line))
		}
	}
}

func decodePLYValue(b []byte, kind string, order binary.ByteOrder) float64 {
	switch kind {
	case "char", "int8":
		return float64(int8(b[0]))
	case "uchar", "uint8":
		return float64(b[0])
	case "short", "int16":
		return float64(int16(order.Uint16(b)))
	case "ushort", "uint16":
		return float64(order.Uint16(b))
	case "int", "int32":
		return float64(int32(order.Uint32(b)))
	case "uint", "uint32":
		return float64(order.Uint32(b))
	case "float", "float32":
		return float64(math32.Float32frombits(order.Uint32(b)))
	default:
		return math32.Float64frombits(order.Uint64(b))
	}
}

// plyMapper turns one vertex record into a Point using the property indices found in the header.
type plyMapper struct {
	pos      [3]int
	dc       [3]int
	rgb      [3]int
	rgbScale float64
	opacity  int
	alpha    int
	scale    [3]int
}

func newPLYMapper(h *plyHeader) *plyMapper {
	m := &plyMapper{
		pos:     [3]int{h.index("x"), h.index("y"), h.index("z")},
		dc:      [3]int{h.index("f_dc_0"), h.index("f_dc_1"), h.index("f_dc_2")},
		rgb:     [3]int{h.index("red"), h.index("green"), h.index("blue")},
		opacity: h.index("opacity"),
		alpha:   h.index("alpha"),
		scale:   [3]int{h.index("scale_0"), h.index("scale_1"), h.index("scale_2")},
	}
	m.rgbScale = 1
	if m.rgb[0] >= 0 && h.properties[m.rgb[0]].size == 1 {
		m.rgbScale = 1.0 / 255
	}
	return m
}

func (m *plyMapper) point(v []float64) Point {
	p := Point{Radius: defaultPointRadius, Color: [4]float32{1, 1, 1, 1}}
	for i := range 3 {
		if m.pos[i] >= 0 {
			p.Position[i] = float32(v[m.pos[i]])
		}
	}

	switch {
	case all(m.dc):
		for i := range 3 {
			p.Color[i] = common.Clamp(float32(0.5+shC0*v[m.dc[i]]), 0, 1)
		}
	case all(m.rgb):
		for i := range 3 {
			p.Color[i] = common.Clamp(float32(v[m.rgb[i]]*m.rgbScale), 0, 1)
		}
	}

	switch {
	case m.opacity >= 0:
		p.Color[3] = sigmoid(float32(v[m.opacity]))
	case m.alpha >= 0:
		p.Color[3] = common.Clamp(float32(v[m.alpha]*m.rgbScale), 0, 1)
	}

	if all(m.scale) {
		var sum float32
		for i := range 3 {
			sum += math32.Exp(float32(v[m.scale[i]]))
		}
		p.Radius = sum / 3
	}
	return p
}

func all(idx [3]int) bool {
	return idx[0] >= 0 && idx[1] >= 0 && idx[2] >= 0
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}
