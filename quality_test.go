package mediapick

import (
	"strings"
	"testing"
)

func TestCheckQuality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		data       func(t *testing.T) []byte
		minW, minH int
		wantPass   bool
		wantReason string // substring; empty means exact pass
	}{
		{
			name:     "good image passes",
			data:     func(t *testing.T) []byte { return makeNoisePNG(t, 800, 600, 1) },
			wantPass: true,
		},
		{
			name:       "undersized width",
			data:       func(t *testing.T) []byte { return makeNoisePNG(t, 500, 800, 2) },
			wantReason: "undersized",
		},
		{
			name:       "undersized height",
			data:       func(t *testing.T) []byte { return makeNoisePNG(t, 800, 500, 3) },
			wantReason: "undersized",
		},
		{
			name:       "stricter caller threshold wins",
			data:       func(t *testing.T) []byte { return makeNoisePNG(t, 800, 600, 4) },
			minW:       900,
			wantReason: "undersized",
		},
		{
			name:       "caller threshold below global is raised",
			data:       func(t *testing.T) []byte { return makeNoisePNG(t, 640, 500, 5) },
			minW:       100,
			minH:       100,
			wantReason: "undersized",
		},
		{
			name:       "byte size too small",
			data:       func(t *testing.T) []byte { return makeSolidPNG(t, 800, 600) },
			wantReason: "too small",
		},
		{
			name:       "extreme aspect ratio wide",
			data:       func(t *testing.T) []byte { return makeNoisePNG(t, 1900, 600, 6) },
			wantReason: "aspect ratio",
		},
		{
			name:       "extreme aspect ratio tall",
			data:       func(t *testing.T) []byte { return makeNoisePNG(t, 600, 1900, 7) },
			wantReason: "aspect ratio",
		},
		{
			name:       "corrupt bytes",
			data:       func(t *testing.T) []byte { return garbageBytes(40 * 1024) },
			wantReason: "quality check failed",
		},
		{
			name:       "empty input",
			data:       func(t *testing.T) []byte { return nil },
			wantReason: "too small",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := CheckQuality(tt.data(t), tt.minW, tt.minH)
			if res.Passed != tt.wantPass {
				t.Fatalf("Passed = %v, want %v (reason: %q)", res.Passed, tt.wantPass, res.Reason)
			}
			if !tt.wantPass && !strings.Contains(res.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want substring %q", res.Reason, tt.wantReason)
			}
		})
	}
}

func TestCheckQuality_FillsMetadata(t *testing.T) {
	t.Parallel()

	data := makeNoisePNG(t, 800, 640, 8)
	res := CheckQuality(data, 0, 0)
	if !res.Passed {
		t.Fatalf("expected pass, got %q", res.Reason)
	}
	if res.Width != 800 || res.Height != 640 {
		t.Errorf("dimensions = %dx%d, want 800x640", res.Width, res.Height)
	}
	if res.ByteSize != len(data) {
		t.Errorf("ByteSize = %d, want %d", res.ByteSize, len(data))
	}
}

func TestCheckQuality_TooLarge(t *testing.T) {
	t.Parallel()

	// Gray noise stays close to raw size, so 3000x2200 lands well past 5MB.
	data := makeNoisePNG(t, 3000, 2200, 9)
	if len(data) <= maxImageBytes {
		t.Skipf("fixture compressed below limit: %d bytes", len(data))
	}
	res := CheckQuality(data, 0, 0)
	if res.Passed {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(res.Reason, "too large") {
		t.Errorf("Reason = %q, want too large", res.Reason)
	}
}

func TestIsLogoOrBanner(t *testing.T) {
	t.Parallel()

	if !IsLogoOrBanner("https://example.com/assets/logo.png") {
		t.Error("logo URL not detected")
	}
	if IsLogoOrBanner("https://example.com/photos/event.jpg") {
		t.Error("photo URL wrongly flagged")
	}
}
