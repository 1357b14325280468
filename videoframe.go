package webcodecs

import (
	"sync"

	"github.com/e1z0/gowebcodecs/format"
	"github.com/e1z0/gowebcodecs/werror"
)

// Rect mirrors DOMRectReadOnly's integer subset used throughout
// spec.md §3/§4.B (codedRect / visibleRect / copyTo overrides).
type Rect struct {
	X, Y, Width, Height int
}

// PlaneLayout is the per-plane (offset, stride) pair of spec.md §3.
type PlaneLayout struct {
	Offset int
	Stride int
}

// VideoFrameBufferInit mirrors the WebCodecs VideoFrameBufferInit
// dictionary used when constructing a VideoFrame directly from bytes
// (spec.md §4.B "construct from buffer + init").
type VideoFrameBufferInit struct {
	Format       format.PixelFormat
	CodedWidth   int
	CodedHeight  int
	VisibleRect  *Rect
	DisplayWidth  int // 0 means "unset"; must be set together with DisplayHeight
	DisplayHeight int
	Timestamp    int64
	Duration     *int64
	Layout       []PlaneLayout // optional; tight-packed when nil
	Data         []byte
	Transfer     bool
}

// VideoFrame owns a pixel buffer plus the plane layout and geometry
// metadata describing it (spec.md §3/§4.B).
type VideoFrame struct {
	mu  sync.Mutex
	buf ownedBuffer

	format format.PixelFormat

	codedWidth, codedHeight   int
	visibleRect               Rect
	displayWidth, displayHeight int

	timestamp int64
	duration  *int64

	layout []PlaneLayout

	nonSquarePixels bool
	sarNum, sarDen  int
}

func tightPackLayout(f format.PixelFormat, codedWidth, codedHeight int) ([]PlaneLayout, error) {
	n, err := f.PlaneCount()
	if err != nil {
		return nil, err
	}
	layout := make([]PlaneLayout, n)
	offset := 0
	for i := 0; i < n; i++ {
		hssf, vssf, err := f.SubsamplingFactors(i)
		if err != nil {
			return nil, err
		}
		bps, err := f.BytesPerSample(i)
		if err != nil {
			return nil, err
		}
		w := ceilDiv(codedWidth, hssf)
		h := ceilDiv(codedHeight, vssf)
		stride := w * bps
		layout[i] = PlaneLayout{Offset: offset, Stride: stride}
		offset += stride * h
	}
	return layout, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

func planeRows(f format.PixelFormat, plane, codedHeight int) (int, error) {
	_, vssf, err := f.SubsamplingFactors(plane)
	if err != nil {
		return 0, err
	}
	return ceilDiv(codedHeight, vssf), nil
}

// NewVideoFrame constructs a VideoFrame from a raw pixel buffer
// (spec.md §4.B "construct from buffer + init").
func NewVideoFrame(init VideoFrameBufferInit) (*VideoFrame, error) {
	if !init.Format.Valid() {
		return nil, werror.TypeErrorf("VideoFrame: unknown pixel format %q", init.Format)
	}
	if init.CodedWidth <= 0 || init.CodedHeight <= 0 {
		return nil, werror.TypeErrorf("VideoFrame: codedWidth/codedHeight must be > 0, got %dx%d", init.CodedWidth, init.CodedHeight)
	}

	visible := Rect{X: 0, Y: 0, Width: init.CodedWidth, Height: init.CodedHeight}
	if init.VisibleRect != nil {
		visible = *init.VisibleRect
		if visible.X < 0 || visible.Y < 0 || visible.Width <= 0 || visible.Height <= 0 {
			return nil, werror.TypeErrorf("VideoFrame: invalid visibleRect %+v", visible)
		}
		if visible.X+visible.Width > init.CodedWidth || visible.Y+visible.Height > init.CodedHeight {
			return nil, werror.TypeErrorf("VideoFrame: visibleRect %+v exceeds coded size %dx%d", visible, init.CodedWidth, init.CodedHeight)
		}
		n, err := init.Format.PlaneCount()
		if err != nil {
			return nil, werror.TypeErrorf("VideoFrame: %v", err)
		}
		for i := 0; i < n; i++ {
			hssf, vssf, err := init.Format.SubsamplingFactors(i)
			if err != nil {
				return nil, err
			}
			if visible.X%hssf != 0 || visible.Y%vssf != 0 {
				return nil, werror.TypeErrorf("VideoFrame: visibleRect (%d,%d) not aligned to plane %d subsampling (%d,%d)", visible.X, visible.Y, i, hssf, vssf)
			}
		}
	}

	if (init.DisplayWidth == 0) != (init.DisplayHeight == 0) {
		return nil, werror.TypeErrorf("VideoFrame: displayWidth/displayHeight must be set together")
	}
	displayW, displayH := init.DisplayWidth, init.DisplayHeight
	if displayW == 0 {
		displayW, displayH = visible.Width, visible.Height
	} else if displayW < 0 || displayH < 0 {
		return nil, werror.TypeErrorf("VideoFrame: displayWidth/displayHeight must be > 0")
	}

	layout := init.Layout
	if layout == nil {
		var err error
		layout, err = tightPackLayout(init.Format, init.CodedWidth, init.CodedHeight)
		if err != nil {
			return nil, err
		}
	}

	data := init.Data
	if !init.Transfer {
		// Slice to the enclosing region covering all plane rows and
		// rebase offsets (spec.md §3 Plane layout).
		minOff, maxEnd := layout[0].Offset, 0
		rebased := make([]PlaneLayout, len(layout))
		for i, pl := range layout {
			rows, err := planeRows(init.Format, i, init.CodedHeight)
			if err != nil {
				return nil, err
			}
			end := pl.Offset + pl.Stride*rows
			if pl.Offset < minOff {
				minOff = pl.Offset
			}
			if end > maxEnd {
				maxEnd = end
			}
		}
		if maxEnd > len(data) {
			return nil, werror.TypeErrorf("VideoFrame: data too short: have %d bytes, need %d", len(data), maxEnd)
		}
		sliced := make([]byte, maxEnd-minOff)
		copy(sliced, data[minOff:maxEnd])
		for i, pl := range layout {
			rebased[i] = PlaneLayout{Offset: pl.Offset - minOff, Stride: pl.Stride}
		}
		layout = rebased
		data = sliced
	} else {
		maxEnd := 0
		for i, pl := range layout {
			rows, err := planeRows(init.Format, i, init.CodedHeight)
			if err != nil {
				return nil, err
			}
			if end := pl.Offset + pl.Stride*rows; end > maxEnd {
				maxEnd = end
			}
		}
		if maxEnd > len(data) {
			return nil, werror.TypeErrorf("VideoFrame: data too short: have %d bytes, need %d", len(data), maxEnd)
		}
	}

	vf := &VideoFrame{
		buf:          newOwnedBuffer(data, true),
		format:       init.Format,
		codedWidth:   init.CodedWidth,
		codedHeight:  init.CodedHeight,
		visibleRect:  visible,
		displayWidth: displayW,
		displayHeight: displayH,
		timestamp:    init.Timestamp,
		duration:     init.Duration,
		layout:       layout,
	}
	vf.deriveSAR()
	return vf, nil
}

// deriveSAR computes (nonSquarePixels, sar_num, sar_den) when the
// display size differs from the visible size. The correct SAR
// formula is sar_num = displayWidth*visibleHeight, sar_den =
// displayHeight*visibleWidth (SAR = (dw/vw)/(dh/vh)) — this is the
// reading pinned by spec.md §8 scenario (d) (1280x360 display over a
// 640x360 visible rect yields (460800, 230400) = 2:1), which the
// prose in §3 states with num/den transposed; see DESIGN.md.
func (vf *VideoFrame) deriveSAR() {
	if vf.displayWidth == vf.visibleRect.Width && vf.displayHeight == vf.visibleRect.Height {
		vf.nonSquarePixels = false
		vf.sarNum, vf.sarDen = 1, 1
		return
	}
	vf.nonSquarePixels = true
	vf.sarNum = vf.displayWidth * vf.visibleRect.Height
	vf.sarDen = vf.displayHeight * vf.visibleRect.Width
}

func (vf *VideoFrame) Format() format.PixelFormat { return vf.format }
func (vf *VideoFrame) CodedWidth() int            { return vf.codedWidth }
func (vf *VideoFrame) CodedHeight() int           { return vf.codedHeight }
func (vf *VideoFrame) CodedRect() Rect            { return Rect{0, 0, vf.codedWidth, vf.codedHeight} }
func (vf *VideoFrame) VisibleRect() Rect          { return vf.visibleRect }
func (vf *VideoFrame) DisplayWidth() int          { return vf.displayWidth }
func (vf *VideoFrame) DisplayHeight() int         { return vf.displayHeight }
func (vf *VideoFrame) Timestamp() int64           { return vf.timestamp }
func (vf *VideoFrame) Duration() *int64           { return vf.duration }
func (vf *VideoFrame) NonSquarePixels() bool      { return vf.nonSquarePixels }
func (vf *VideoFrame) SAR() (num, den int)        { return vf.sarNum, vf.sarDen }
func (vf *VideoFrame) Layout() []PlaneLayout {
	cp := make([]PlaneLayout, len(vf.layout))
	copy(cp, vf.layout)
	return cp
}

// VideoFrameCopyToOptions mirrors VideoFrameCopyToOptions; Rect
// overrides the region copied (defaults to VisibleRect), Layout
// overrides destination plane placement (defaults to tight-packed in
// plane order). Per spec.md §1 Non-goals, no pixel-format conversion
// is performed by copyTo.
type VideoFrameCopyToOptions struct {
	Rect   *Rect
	Layout []PlaneLayout
}

type planeCopyPlan struct {
	destOffset, destStride int
	srcOffset, srcStride   int
	rows, rowBytes         int
}

// parseCopyToLayout implements "Parse VideoFrameCopyToOptions"
// (spec.md §4.B).
func (vf *VideoFrame) parseCopyToLayout(opts VideoFrameCopyToOptions) ([]planeCopyPlan, error) {
	rect := vf.visibleRect
	if opts.Rect != nil {
		rect = *opts.Rect
		if rect.X < 0 || rect.Y < 0 || rect.Width <= 0 || rect.Height <= 0 ||
			rect.X+rect.Width > vf.codedWidth || rect.Y+rect.Height > vf.codedHeight {
			return nil, werror.TypeErrorf("VideoFrame.copyTo: rect %+v out of bounds", rect)
		}
	}

	n, err := vf.format.PlaneCount()
	if err != nil {
		return nil, err
	}

	plans := make([]planeCopyPlan, n)
	nextOffset := 0
	for i := 0; i < n; i++ {
		hssf, vssf, err := vf.format.SubsamplingFactors(i)
		if err != nil {
			return nil, err
		}
		bps, err := vf.format.BytesPerSample(i)
		if err != nil {
			return nil, err
		}
		if rect.X%hssf != 0 || rect.Y%vssf != 0 {
			return nil, werror.TypeErrorf("VideoFrame.copyTo: rect (%d,%d) not aligned to plane %d subsampling (%d,%d)", rect.X, rect.Y, i, hssf, vssf)
		}
		rowBytes := ceilDiv(rect.Width, hssf) * bps
		rows := ceilDiv(rect.Height, vssf)
		srcTop := rect.Y / vssf
		srcLeftBytes := (rect.X / hssf) * bps

		destOffset, destStride := nextOffset, rowBytes
		if opts.Layout != nil {
			if i >= len(opts.Layout) {
				return nil, werror.TypeErrorf("VideoFrame.copyTo: layout missing entry for plane %d", i)
			}
			destOffset = opts.Layout[i].Offset
			destStride = opts.Layout[i].Stride
			if destStride < rowBytes {
				return nil, werror.RangeErrorf("VideoFrame.copyTo: plane %d stride %d shorter than row width %d", i, destStride, rowBytes)
			}
		}

		plans[i] = planeCopyPlan{
			destOffset: destOffset,
			destStride: destStride,
			srcOffset:  vf.layout[i].Offset + srcTop*vf.layout[i].Stride + srcLeftBytes,
			srcStride:  vf.layout[i].Stride,
			rows:       rows,
			rowBytes:   rowBytes,
		}
		nextOffset = destOffset + destStride*rows
	}

	if err := checkNoOverlap(plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func checkNoOverlap(plans []planeCopyPlan) error {
	for i := range plans {
		a0, a1 := plans[i].destOffset, plans[i].destOffset+plans[i].destStride*plans[i].rows
		for j := i + 1; j < len(plans); j++ {
			b0, b1 := plans[j].destOffset, plans[j].destOffset+plans[j].destStride*plans[j].rows
			if a0 < b1 && b0 < a1 {
				return werror.TypeErrorf("VideoFrame.copyTo: plane %d destination overlaps plane %d", i, j)
			}
		}
	}
	return nil
}

// AllocationSize returns the byte length copyTo would require for opts.
func (vf *VideoFrame) AllocationSize(opts VideoFrameCopyToOptions) (int, error) {
	vf.mu.Lock()
	defer vf.mu.Unlock()
	if _, err := vf.buf.bytes(); err != nil {
		return 0, err
	}
	plans, err := vf.parseCopyToLayout(opts)
	if err != nil {
		return 0, err
	}
	size := 0
	for _, p := range plans {
		if end := p.destOffset + p.destStride*p.rows; end > size {
			size = end
		}
	}
	return size, nil
}

// CopyTo copies the visible (or overridden) rect's pixel rows into
// dst per opts (spec.md §4.B).
func (vf *VideoFrame) CopyTo(dst []byte, opts VideoFrameCopyToOptions) error {
	vf.mu.Lock()
	defer vf.mu.Unlock()
	src, err := vf.buf.bytes()
	if err != nil {
		return err
	}
	plans, err := vf.parseCopyToLayout(opts)
	if err != nil {
		return err
	}
	size := 0
	for _, p := range plans {
		if end := p.destOffset + p.destStride*p.rows; end > size {
			size = end
		}
	}
	if len(dst) < size {
		return werror.RangeErrorf("VideoFrame.copyTo: destination too small: have %d bytes, need %d", len(dst), size)
	}
	for _, p := range plans {
		for row := 0; row < p.rows; row++ {
			s := p.srcOffset + row*p.srcStride
			d := p.destOffset + row*p.destStride
			copy(dst[d:d+p.rowBytes], src[s:s+p.rowBytes])
		}
	}
	return nil
}

// Clone preserves all attributes and copies the pixel buffer (spec.md
// §4.B; Go has no zero-copy ArrayBuffer-transfer equivalent to share
// across independent owners, so clone always duplicates).
func (vf *VideoFrame) Clone() (*VideoFrame, error) {
	vf.mu.Lock()
	defer vf.mu.Unlock()
	if _, err := vf.buf.bytes(); err != nil {
		return nil, err
	}
	cp := *vf
	cp.mu = sync.Mutex{}
	cp.buf = vf.buf.clone()
	cp.layout = vf.Layout()
	return &cp, nil
}

// Close detaches the buffer (spec.md §3).
func (vf *VideoFrame) Close() {
	vf.mu.Lock()
	defer vf.mu.Unlock()
	vf.buf.close()
}

// Closed reports whether Close has been called.
func (vf *VideoFrame) Closed() bool {
	vf.mu.Lock()
	defer vf.mu.Unlock()
	return vf.buf.closed
}
