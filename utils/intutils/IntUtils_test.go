package intutils

import "testing"

func TestMinMax(t *testing.T) {
	if have := Min(3, -1, 7); have != -1 {
		t.Errorf("min: want -1, have %v", have)
	}
	if have := Max(3, -1, 7); have != 7 {
		t.Errorf("max: want 7, have %v", have)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, want int
	}{
		{-1, 0, 4, 0},
		{0, 0, 4, 0},
		{2, 0, 4, 2},
		{4, 0, 4, 4},
		{30, 0, 4, 4},
	}

	for _, test := range tests {
		if have := Clip(test.value, test.min, test.max); have != test.want {
			t.Errorf("clip(%v, %v, %v): want %v, have %v", test.value,
				test.min, test.max, test.want, have)
		}
	}
}
