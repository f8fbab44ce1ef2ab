package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/lodexport/internal/lidar"
)

func TestNarrowSamples(t *testing.T) {
	tests := []struct {
		name      string
		raw       []rawSample
		wantColor []lidar.RGB
		wantInt   []uint8
	}{
		{
			name: "8-bit values in 16-bit fields",
			raw: []rawSample{
				{intensity: 40, rgb: [3]uint16{200, 100, 50}, hasRGB: true},
				{intensity: 255, rgb: [3]uint16{255, 0, 1}, hasRGB: true},
			},
			wantColor: []lidar.RGB{{R: 200, G: 100, B: 50}, {R: 255, G: 0, B: 1}},
			wantInt:   []uint8{40, 255},
		},
		{
			name: "full 16-bit range",
			raw: []rawSample{
				{intensity: 0xff00, rgb: [3]uint16{0xc800, 0x6400, 0x3200}, hasRGB: true},
				{intensity: 0x0100, rgb: [3]uint16{0xffff, 0, 0x01ff}, hasRGB: true},
			},
			wantColor: []lidar.RGB{{R: 200, G: 100, B: 50}, {R: 255, G: 0, B: 1}},
			wantInt:   []uint8{255, 1},
		},
		{
			name: "colour and intensity ranges are independent",
			raw: []rawSample{
				{intensity: 1000, rgb: [3]uint16{10, 20, 30}, hasRGB: true},
			},
			wantColor: []lidar.RGB{{R: 10, G: 20, B: 30}},
			wantInt:   []uint8{3},
		},
		{
			name: "no colour is white",
			raw: []rawSample{
				{intensity: 7},
				{intensity: 9, rgb: [3]uint16{1, 2, 3}, hasRGB: true},
			},
			wantColor: []lidar.RGB{{R: 255, G: 255, B: 255}, {R: 1, G: 2, B: 3}},
			wantInt:   []uint8{7, 9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := make([]lidar.StoredPoint, len(tt.raw))
			narrowSamples(pts, tt.raw)
			for i := range pts {
				assert.Equal(t, tt.wantColor[i], pts[i].Color, "point %d colour", i)
				assert.Equal(t, tt.wantInt[i], pts[i].Intensity, "point %d intensity", i)
			}
		})
	}
}
