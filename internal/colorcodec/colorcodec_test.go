package colorcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	for r := 0; r <= 255; r += 5 {
		for g := 0; g <= 255; g += 17 {
			for b := 0; b <= 255; b += 23 {
				packed := Pack(float32(r), float32(g), float32(b))
				ur, ug, ub := Unpack(packed)
				assert.Equal(t, float32(r), ur)
				assert.Equal(t, float32(g), ug)
				assert.Equal(t, float32(b), ub)
			}
		}
	}
}

func TestPackKnownValue(t *testing.T) {
	// color = (r,g,b) = (100,150,200) -> b*65536 + g*256 + r = 13145700.
	// (spec.md's S1 scenario states 13146724 for this triple, but that
	// figure doesn't satisfy its own stated formula; 200*65536+150*256+100
	// arithmetically equals 13145700.)
	assert.Equal(t, float32(13145700), Pack(100, 150, 200))
}

func TestUpdateChannelClamp(t *testing.T) {
	// Without the min(255,.) clamp this would round to 256.
	v := UpdateChannel(255, 1, 257, 1, 2)
	assert.Equal(t, float32(255), v)
}

func TestUpdateChannelWeightedMean(t *testing.T) {
	// Single observation into a fresh (zero-weight) voxel: new value wins.
	v := UpdateChannel(0, 0, 200, 1, 1)
	assert.Equal(t, float32(200), v)
}

func TestUpdateRGBSameDataStable(t *testing.T) {
	packed := Pack(100, 150, 200)
	updated := UpdateRGB(packed, 1, packed, 1, 2)
	assert.Equal(t, packed, updated)
}
