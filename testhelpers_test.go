package mediapick

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
)

// makeNoisePNG encodes a grayscale noise image. Noise keeps the PNG close
// to its raw size, so dimensions translate predictably into byte size, and
// distinct seeds produce perceptually distinct images for dedup tests.
func makeNoisePNG(t *testing.T, width, height int, seed int64) []byte {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(rng.Intn(256))})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// makeSolidPNG encodes a solid-color image, which compresses to almost
// nothing — useful for byte-size rejection tests.
func makeSolidPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// garbageBytes returns n bytes that do not decode as any image format.
func garbageBytes(n int) []byte {
	rng := rand.New(rand.NewSource(99))
	data := make([]byte, n)
	rng.Read(data)
	// Clobber anything that could look like a magic number.
	data[0], data[1] = 0x00, 0x00
	return data
}

func intPtr(v int) *int { return &v }

// seedEngagement writes records straight into the engagement document.
func seedEngagement(t *testing.T, storage Storage, records []EngagementRecord) {
	t.Helper()
	if err := storage.Set(context.Background(), engagementDocument, records); err != nil {
		t.Fatalf("seed engagement: %v", err)
	}
}

// metricsRecord builds a record with engagement metrics present.
func metricsRecord(source string, likes, retweets, replies int) EngagementRecord {
	return EngagementRecord{
		SelectionID: source + "-rec",
		SourceName:  source,
		Verdict:     VerdictApproved,
		Likes:       intPtr(likes),
		Retweets:    intPtr(retweets),
		Replies:     intPtr(replies),
		Impressions: intPtr(0),
	}
}
