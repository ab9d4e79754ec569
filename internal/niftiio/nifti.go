// Package niftiio is a concrete implementation of the internal/ioutil
// Reader/Writer interfaces for the NIfTI-1 single-file (.nii) format, the
// on-disk container fslmaths/niimath actually read and write. spec.md
// treats container I/O as an external collaborator and specifies only the
// interface; this package is the "swapped in" concrete adapter the
// ioutil doc comment anticipates, so cmd/voxelmath has something real to
// drive. It is grounded on the teacher's internal/container package: a
// fixed-size binary header parsed field-by-field in a known byte layout,
// using little-endian accessors, the way container/constants.go's
// ReadLE16/ReadLE32/PutLE16/PutLE32 read/write the RIFF/VP8 header
// fields. NIfTI-1's header happens to be little-endian-or-big-endian
// self-describing (the sizeof_hdr magic number), but this package only
// implements the little-endian case, the overwhelmingly common one in
// practice.
package niftiio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/voxelmath/voxelmath/internal/affine"
	"github.com/voxelmath/voxelmath/internal/datatype"
	"github.com/voxelmath/voxelmath/internal/ioutil"
	"github.com/voxelmath/voxelmath/internal/numeric"
	"github.com/voxelmath/voxelmath/internal/pool"
)

const (
	headerSize = 348
	magicSingle = "n+1\x00"
)

// Reader implements ioutil.Reader[T] for NIfTI-1 single-file volumes.
type Reader[T numeric.Float] struct{}

// Writer implements ioutil.Writer[T] for NIfTI-1 single-file volumes.
type Writer[T numeric.Float] struct{}

var (
	// ErrBadMagic is returned when the header's magic bytes don't match
	// the NIfTI-1 single-file signature.
	ErrBadMagic = fmt.Errorf("niftiio: not a NIfTI-1 single-file volume")
	// ErrTruncated is returned when the file is shorter than its own header declares.
	ErrTruncated = fmt.Errorf("niftiio: truncated file")
)

// header mirrors the fields of the 348-byte NIfTI-1 header this package
// reads and writes; byte offsets are from the NIfTI-1 specification.
type header struct {
	dim                [8]int16
	datatype           int16
	bitpix             int16
	pixdim             [8]float32
	voxOffset          float32
	sclSlope           float32
	sclInter           float32
	qformCode          int16
	sformCode          int16
	quaternB, quaternC, quaternD float32
	qoffsetX, qoffsetY, qoffsetZ float32
	srowX, srowY, srowZ [4]float32
}

func le16(b []byte, off int) int16   { return int16(binary.LittleEndian.Uint16(b[off:])) }
func le32f(b []byte, off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }

func putLE16(b []byte, off int, v int16)   { binary.LittleEndian.PutUint16(b[off:], uint16(v)) }
func putLE32f(b []byte, off int, v float32) { binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v)) }

// parseHeader decodes the fixed NIfTI-1 header fields this package needs
// out of the first headerSize bytes of buf.
func parseHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, ErrTruncated
	}
	if string(buf[344:348]) != magicSingle {
		return header{}, ErrBadMagic
	}
	var h header
	for i := 0; i < 8; i++ {
		h.dim[i] = le16(buf, 40+2*i)
		h.pixdim[i] = le32f(buf, 76+4*i)
	}
	h.datatype = le16(buf, 70)
	h.bitpix = le16(buf, 72)
	h.voxOffset = le32f(buf, 108)
	h.sclSlope = le32f(buf, 112)
	h.sclInter = le32f(buf, 116)
	h.qformCode = le16(buf, 252)
	h.sformCode = le16(buf, 254)
	h.quaternB = le32f(buf, 256)
	h.quaternC = le32f(buf, 260)
	h.quaternD = le32f(buf, 264)
	h.qoffsetX = le32f(buf, 268)
	h.qoffsetY = le32f(buf, 272)
	h.qoffsetZ = le32f(buf, 276)
	for i := 0; i < 4; i++ {
		h.srowX[i] = le32f(buf, 280+4*i)
		h.srowY[i] = le32f(buf, 296+4*i)
		h.srowZ[i] = le32f(buf, 312+4*i)
	}
	return h, nil
}

// quaternAffine builds the 4x4 affine from the quaternion-derived qform
// (method 2 of the NIfTI-1 spec), the collaborator's fallback when no
// sform is present or it loses the "higher code wins" comparison (spec §3).
func quaternAffine(h header) affine.Matrix {
	b, c, d := float64(h.quaternB), float64(h.quaternC), float64(h.quaternD)
	a2 := 1.0 - (b*b + c*c + d*d)
	var a float64
	if a2 > 1e-7 {
		a = math.Sqrt(a2)
	}
	qfac := float64(h.pixdim[0])
	if qfac != -1 {
		qfac = 1
	}
	dx, dy, dz := float64(h.pixdim[1]), float64(h.pixdim[2]), float64(h.pixdim[3])*qfac

	m := affine.Identity()
	m[0][0] = (a*a + b*b - c*c - d*d) * dx
	m[0][1] = 2 * (b*c - a*d) * dy
	m[0][2] = 2 * (b*d + a*c) * dz
	m[1][0] = 2 * (b*c + a*d) * dx
	m[1][1] = (a*a + c*c - b*b - d*d) * dy
	m[1][2] = 2 * (c*d - a*b) * dz
	m[2][0] = 2 * (b*d - a*c) * dx
	m[2][1] = 2 * (c*d + a*b) * dy
	m[2][2] = (a*a + d*d - b*b - c*c) * dz
	m[0][3] = float64(h.qoffsetX)
	m[1][3] = float64(h.qoffsetY)
	m[2][3] = float64(h.qoffsetZ)
	return m
}

func sformAffine(h header) affine.Matrix {
	m := affine.Identity()
	for i := 0; i < 4; i++ {
		m[0][i] = float64(h.srowX[i])
		m[1][i] = float64(h.srowY[i])
		m[2][i] = float64(h.srowZ[i])
	}
	return m
}

// resolveAffine applies spec §3's rule: the sform with the higher code
// wins; if equal, sform wins. qformCode/sformCode are both "codes" in the
// NIfTI-1 sense (0 means "not present").
func resolveAffine(h header) affine.Matrix {
	switch {
	case h.sformCode > 0 && h.sformCode >= h.qformCode:
		return sformAffine(h)
	case h.qformCode > 0:
		return quaternAffine(h)
	default:
		m := affine.Identity()
		m = m.ScaleAxis(0, float64(h.pixdim[1]))
		m = m.ScaleAxis(1, float64(h.pixdim[2]))
		m = m.ScaleAxis(2, float64(h.pixdim[3]))
		return m
	}
}

// Read implements ioutil.Reader[T] (spec §6 "read(path) -> {buffer,
// dims, spacing, datatype, slope, intercept, affine}").
func (Reader[T]) Read(path string) (ioutil.Loaded[T], error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ioutil.Loaded[T]{}, err
	}
	h, err := parseHeader(raw)
	if err != nil {
		return ioutil.Loaded[T]{}, err
	}

	nx, ny := int(h.dim[1]), int(h.dim[2])
	nz, nt := 1, 1
	if h.dim[0] >= 3 {
		nz = int(h.dim[3])
	}
	if h.dim[0] >= 4 {
		nt = int(h.dim[4])
	}
	if nx < 1 || ny < 1 || nz < 1 || nt < 1 {
		return ioutil.Loaded[T]{}, fmt.Errorf("niftiio: invalid dims %v", h.dim)
	}

	code := datatype.Code(h.datatype)
	nvox := nx * ny * nz * nt
	voxOffset := int(h.voxOffset)
	if voxOffset < headerSize {
		voxOffset = headerSize
	}
	body := raw[voxOffset:]

	slope, intercept := float64(h.sclSlope), float64(h.sclInter)
	data, err := decodeBody[T](body, code, nvox, slope, intercept)
	if err != nil {
		return ioutil.Loaded[T]{}, err
	}

	return ioutil.Loaded[T]{
		Data:      data,
		NX:        nx, NY: ny, NZ: nz, NT: nt,
		DX:        float64(h.pixdim[1]), DY: float64(h.pixdim[2]), DZ: float64(h.pixdim[3]), DT: float64(h.pixdim[4]),
		Datatype:  code,
		Slope:     slope, Intercept: intercept,
		Affine:    resolveAffine(h),
	}, nil
}

func decodeBody[T numeric.Float](body []byte, code datatype.Code, nvox int, slope, intercept float64) ([]T, error) {
	out := make([]T, nvox)
	bytesPer, ok := bytesPerVoxel(code)
	if !ok {
		return nil, fmt.Errorf("niftiio: unsupported datatype code %d", code)
	}
	if len(body) < nvox*bytesPer {
		return nil, ErrTruncated
	}
	for i := 0; i < nvox; i++ {
		raw := readRaw(body[i*bytesPer:], code)
		out[i] = datatype.ToWorking[T](raw, slope, intercept)
	}
	return out, nil
}

func bytesPerVoxel(code datatype.Code) (int, bool) {
	switch code {
	case datatype.Uint8, datatype.Int8:
		return 1, true
	case datatype.Int16, datatype.Uint16:
		return 2, true
	case datatype.Int32, datatype.Uint32, datatype.Float32:
		return 4, true
	case datatype.Float64:
		return 8, true
	default:
		return 0, false
	}
}

func readRaw(b []byte, code datatype.Code) float64 {
	switch code {
	case datatype.Uint8:
		return float64(b[0])
	case datatype.Int8:
		return float64(int8(b[0]))
	case datatype.Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case datatype.Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case datatype.Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case datatype.Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case datatype.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case datatype.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

func writeRaw(b []byte, code datatype.Code, v float64) {
	switch code {
	case datatype.Uint8:
		b[0] = byte(v)
	case datatype.Int8:
		b[0] = byte(int8(v))
	case datatype.Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case datatype.Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case datatype.Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case datatype.Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case datatype.Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case datatype.Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

// Write implements ioutil.Writer[T] (spec §6 "write(volume, path,
// postfix?)"). postfix is inserted before the file extension.
func (Writer[T]) Write(req ioutil.WriteRequest[T], path string) error {
	path = withPostfix(path, req.Postfix)

	bytesPer, ok := bytesPerVoxel(req.Datatype)
	if !ok {
		return fmt.Errorf("niftiio: unsupported output datatype code %d", req.Datatype)
	}
	nvox := req.NX * req.NY * req.NZ * req.NT
	if len(req.Data) != nvox {
		return fmt.Errorf("niftiio: buffer length %d does not match dims (%d,%d,%d,%d)",
			len(req.Data), req.NX, req.NY, req.NZ, req.NT)
	}

	bufSize := headerSize + nvox*bytesPer
	buf := pool.Get(bufSize)
	defer pool.Put(buf)
	binary.LittleEndian.PutUint32(buf[0:], 348)
	copy(buf[344:348], magicSingle)

	ndim := int16(4)
	if req.NT <= 1 {
		ndim = 3
	}
	putLE16(buf, 40, ndim)
	putLE16(buf, 42, int16(req.NX))
	putLE16(buf, 44, int16(req.NY))
	putLE16(buf, 46, int16(req.NZ))
	putLE16(buf, 48, int16(req.NT))
	putLE16(buf, 70, int16(req.Datatype))
	putLE16(buf, 72, int16(bytesPer*8))
	putLE32f(buf, 108, float32(headerSize))
	putLE32f(buf, 112, float32(req.Slope))
	putLE32f(buf, 116, float32(req.Intercept))
	putLE32f(buf, 76, 1)
	putLE32f(buf, 80, float32(req.DX))
	putLE32f(buf, 84, float32(req.DY))
	putLE32f(buf, 88, float32(req.DZ))
	putLE32f(buf, 92, float32(req.DT))

	putLE16(buf, 254, 1) // sform code: 1 (scanner anat), so the written sform is honoured on read-back.
	for i := 0; i < 4; i++ {
		putLE32f(buf, 280+4*i, float32(req.Affine[0][i]))
		putLE32f(buf, 296+4*i, float32(req.Affine[1][i]))
		putLE32f(buf, 312+4*i, float32(req.Affine[2][i]))
	}

	body := buf[headerSize:]
	slope, intercept := req.Slope, req.Intercept
	for i, v := range req.Data {
		raw := datatype.FromWorking(v, req.Datatype, slope, intercept)
		writeRaw(body[i*bytesPer:], req.Datatype, raw)
	}

	return os.WriteFile(path, buf, 0o644)
}

func withPostfix(path, postfix string) string {
	if postfix == "" {
		return path
	}
	ext := ".nii"
	base := path
	if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
		base = path[:len(path)-len(ext)]
	}
	return base + postfix + ext
}
