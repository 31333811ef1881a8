package artwork

import "testing"

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, limit  int
		wantW, wantH int
	}{
		{800, 600, 150, 150, 112},
		{600, 800, 150, 112, 150},
		{500, 500, 300, 300, 300},
		{100, 80, 300, 100, 80},
		{3000, 1, 150, 150, 1},
		{640, 480, 0, 640, 480},
	}

	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.limit)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.limit, w, h, tt.wantW, tt.wantH)
		}
	}
}
