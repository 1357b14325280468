package webcodecs

import (
	"errors"
	"testing"

	"github.com/e1z0/gowebcodecs/format"
	"github.com/e1z0/gowebcodecs/werror"
)

func makeI420(t *testing.T, w, h int) *VideoFrame {
	t.Helper()
	size := w*h + 2*((w+1)/2)*((h+1)/2)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	vf, err := NewVideoFrame(VideoFrameBufferInit{
		Format:      format.I420,
		CodedWidth:  w,
		CodedHeight: h,
		Timestamp:   0,
		Data:        data,
		Transfer:    true,
	})
	if err != nil {
		t.Fatalf("NewVideoFrame: %v", err)
	}
	return vf
}

func TestVideoFrameTightPackDefaultsToSquareSAR(t *testing.T) {
	vf := makeI420(t, 16, 8)
	if vf.NonSquarePixels() {
		t.Fatal("NonSquarePixels true for a frame with no displayWidth override")
	}
	num, den := vf.SAR()
	if num != 1 || den != 1 {
		t.Fatalf("SAR = %d/%d, want 1/1", num, den)
	}
}

func TestVideoFrameDeriveSARScenario(t *testing.T) {
	// spec.md §8 scenario (d): display 1280x360 over a 640x360 visible
	// rect resolves to SAR 2:1, i.e. (1280*360, 360*640) = (460800, 230400).
	rect := &Rect{X: 0, Y: 0, Width: 640, Height: 360}
	size := 1280*720 + 2*640*360
	data := make([]byte, size)
	vf, err := NewVideoFrame(VideoFrameBufferInit{
		Format:        format.I420,
		CodedWidth:    1280,
		CodedHeight:   720,
		VisibleRect:   rect,
		DisplayWidth:  1280,
		DisplayHeight: 360,
		Data:          data,
		Transfer:      true,
	})
	if err != nil {
		t.Fatalf("NewVideoFrame: %v", err)
	}
	num, den := vf.SAR()
	if num != 460800 || den != 230400 {
		t.Fatalf("SAR = %d/%d, want 460800/230400", num, den)
	}
}

func TestVideoFrameVisibleRectMisalignedRejected(t *testing.T) {
	rect := &Rect{X: 1, Y: 0, Width: 14, Height: 8}
	_, err := NewVideoFrame(VideoFrameBufferInit{
		Format:      format.I420,
		CodedWidth:  16,
		CodedHeight: 8,
		VisibleRect: rect,
		Data:        make([]byte, 16*8+2*8*4),
		Transfer:    true,
	})
	if !errors.Is(err, werror.ErrType) {
		t.Fatalf("err = %v, want TypeError for an odd-X visibleRect on 4:2:0", err)
	}
}

func TestVideoFrameCopyToTightPacked(t *testing.T) {
	vf := makeI420(t, 16, 8)
	size, err := vf.AllocationSize(VideoFrameCopyToOptions{})
	if err != nil {
		t.Fatalf("AllocationSize: %v", err)
	}
	dst := make([]byte, size)
	if err := vf.CopyTo(dst, VideoFrameCopyToOptions{}); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
}

func TestVideoFrameCopyToOverlappingLayoutRejected(t *testing.T) {
	vf := makeI420(t, 16, 8)
	bad := []PlaneLayout{
		{Offset: 0, Stride: 16},
		{Offset: 8, Stride: 8}, // overlaps plane 0
		{Offset: 200, Stride: 8},
	}
	if _, err := vf.AllocationSize(VideoFrameCopyToOptions{Layout: bad}); err == nil {
		t.Fatal("expected error for overlapping destination planes")
	}
}

func TestVideoFrameCloseThenOperationFails(t *testing.T) {
	vf := makeI420(t, 16, 8)
	vf.Close()
	if !vf.Closed() {
		t.Fatal("Closed() = false after Close")
	}
	if _, err := vf.AllocationSize(VideoFrameCopyToOptions{}); err == nil {
		t.Fatal("expected error operating on a closed VideoFrame")
	}
}
