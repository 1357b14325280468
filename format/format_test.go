package format

import "testing"

func TestSampleFormatBytesPerSample(t *testing.T) {
	cases := []struct {
		f    SampleFormat
		want int
	}{
		{U8, 1}, {U8Planar, 1},
		{S16, 2}, {S16Planar, 2},
		{S32, 4}, {S32Planar, 4},
		{F32, 4}, {F32Planar, 4},
	}
	for _, c := range cases {
		got, err := c.f.BytesPerSample()
		if err != nil {
			t.Fatalf("%s: %v", c.f, err)
		}
		if got != c.want {
			t.Errorf("%s: got %d, want %d", c.f, got, c.want)
		}
	}
}

func TestSampleFormatPlanar(t *testing.T) {
	if U8.IsPlanar() || F32.IsPlanar() {
		t.Fatal("interleaved formats must not report planar")
	}
	if !U8Planar.IsPlanar() || !F32Planar.IsPlanar() {
		t.Fatal("planar formats must report planar")
	}
}

func TestSampleFormatUnknown(t *testing.T) {
	if SampleFormat("bogus").Valid() {
		t.Fatal("unknown format reported valid")
	}
}

func TestPixelFormatPlaneCount(t *testing.T) {
	cases := []struct {
		p    PixelFormat
		want int
	}{
		{RGBA, 1}, {BGRX, 1},
		{NV12, 2},
		{I420, 3}, {I444, 3},
		{I420A, 4}, {I444A, 4},
	}
	for _, c := range cases {
		got, err := c.p.PlaneCount()
		if err != nil {
			t.Fatalf("%s: %v", c.p, err)
		}
		if got != c.want {
			t.Errorf("%s: got %d, want %d", c.p, got, c.want)
		}
	}
}

func TestPixelFormatSubsampling(t *testing.T) {
	hs, vs, err := I420.SubsamplingFactors(1)
	if err != nil || hs != 2 || vs != 2 {
		t.Fatalf("I420 chroma: got (%d,%d,%v), want (2,2,nil)", hs, vs, err)
	}
	hs, vs, err = I422.SubsamplingFactors(1)
	if err != nil || hs != 2 || vs != 1 {
		t.Fatalf("I422 chroma: got (%d,%d,%v), want (2,1,nil)", hs, vs, err)
	}
	hs, vs, err = I444.SubsamplingFactors(2)
	if err != nil || hs != 1 || vs != 1 {
		t.Fatalf("I444 chroma: got (%d,%d,%v), want (1,1,nil)", hs, vs, err)
	}
	// luma plane and alpha plane are always 1x1.
	hs, vs, err = I420A.SubsamplingFactors(0)
	if err != nil || hs != 1 || vs != 1 {
		t.Fatalf("I420A luma: got (%d,%d,%v), want (1,1,nil)", hs, vs, err)
	}
	hs, vs, err = I420A.SubsamplingFactors(3)
	if err != nil || hs != 1 || vs != 1 {
		t.Fatalf("I420A alpha: got (%d,%d,%v), want (1,1,nil)", hs, vs, err)
	}
}

func TestPixelFormatBytesPerSample(t *testing.T) {
	if n, _ := I420P10.BytesPerSample(0); n != 2 {
		t.Fatalf("I420P10 luma: got %d, want 2", n)
	}
	if n, _ := NV12.BytesPerSample(1); n != 2 {
		t.Fatalf("NV12 chroma: got %d, want 2", n)
	}
	if n, _ := RGBA.BytesPerSample(0); n != 4 {
		t.Fatalf("RGBA: got %d, want 4", n)
	}
}

func TestPixelFormatUnknownRejected(t *testing.T) {
	p := PixelFormat("bogus")
	if p.Valid() {
		t.Fatal("unknown pixel format reported valid")
	}
	if _, err := p.PlaneCount(); err == nil {
		t.Fatal("expected error for unknown pixel format")
	}
}

func TestPixelFormatPlaneOutOfRange(t *testing.T) {
	if _, _, err := I420.SubsamplingFactors(3); err == nil {
		t.Fatal("expected out-of-range error for I420 plane 3")
	}
}
