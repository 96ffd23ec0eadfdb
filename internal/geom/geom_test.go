package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRect_Contains(t *testing.T) {
	r := NewRect(10, 10, 100, 50)

	tests := []struct {
		name string
		p    Position
		want bool
	}{
		{"origin", Position{X: 10, Y: 10}, true},
		{"inside", Position{X: 50, Y: 30}, true},
		{"right edge", Position{X: 110, Y: 30}, false},
		{"bottom edge", Position{X: 50, Y: 60}, false},
		{"above", Position{X: 50, Y: 9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.p))
		})
	}
}

func TestRect_MaxAndString(t *testing.T) {
	r := NewRect(1, 2, 3, 4)
	assert.Equal(t, Position{X: 4, Y: 6}, r.Max())
	assert.Equal(t, "(1,2)+3x4", r.String())
}

func TestPosition_Arithmetic(t *testing.T) {
	p := Position{X: 1, Y: 2}
	d := Position{X: 0.5, Y: -2}
	assert.Equal(t, Position{X: 1.5, Y: 0}, p.Add(d))
	assert.Equal(t, p, p.Add(d).Sub(d))
	assert.True(t, Position{}.IsZero())
	assert.False(t, p.IsZero())
}

func TestSize_Exceeds(t *testing.T) {
	base := Size{Width: 100, Height: 100}
	assert.False(t, base.Exceeds(base))
	assert.True(t, Size{Width: 101, Height: 10}.Exceeds(base))
	assert.True(t, Size{Width: 10, Height: 101}.Exceeds(base))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5.0, Clamp(5, 0, 10))
	assert.Equal(t, 0.0, Clamp(-1, 0, 10))
	assert.Equal(t, 10.0, Clamp(11, 0, 10))
	assert.Equal(t, 3.0, Clamp(1, 3, 2), "lo wins when hi < lo")
}
