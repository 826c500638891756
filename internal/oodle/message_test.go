package oodle

import "testing"

func TestNextID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msgs []Message
		want int
	}{
		{"empty", nil, 1},
		{"single", []Message{{ID: 1}}, 2},
		{"sequential", []Message{{ID: 1}, {ID: 2}, {ID: 3}}, 4},
		{"with gaps", []Message{{ID: 1}, {ID: 5}}, 6},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := NextID(testCase.msgs)
			if got != testCase.want {
				t.Errorf("NextID = %d, want %d", got, testCase.want)
			}
		})
	}
}
