package identity

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		a, b   string
		min    float64
		max    float64
	}{
		{"identical", "usb-c cable 2m", "usb-c cable 2m", 1, 1},
		{"both empty", "", "", 0, 0},
		{"one empty", "usb-c cable", "", 0, 0},
		{"reordered tokens", "cable usb-c 2m", "usb-c cable 2m", 1, 1},
		{"hyphen variant", "usb c cable 2m", "usb-c cable 2m", 1, 1},
		{"stop words ignored", "usb-c cable free shipping", "usb-c cable", 1, 1},
		{"partial overlap", "usb-c charging cable 2m", "usb-c cable", 0.3, 0.8},
		{"unrelated", "garden hose 10m", "usb-c cable", 0, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %f, want in [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "usb-c charging cable 2m braided", "usb-c cable 2m"
	if Similarity(a, b) != Similarity(b, a) {
		t.Errorf("similarity is not symmetric for %q / %q", a, b)
	}
}

func TestTokenizeDropsNoise(t *testing.T) {
	tokens := tokenize("new usb-c cable, 2m (black) - free shipping!")

	for _, want := range []string{"usb", "c", "cable", "2m", "black"} {
		if _, ok := tokens[want]; !ok {
			t.Errorf("missing token %q", want)
		}
	}
	for _, unwanted := range []string{"new", "free", "shipping", ""} {
		if _, ok := tokens[unwanted]; ok {
			t.Errorf("unexpected token %q", unwanted)
		}
	}
}
