// Package colorcodec packs and unpacks an 8-bit RGB triple into the single
// float32 scalar the voxel grid stores per voxel, and implements the
// running weighted-mean update applied to each channel during fusion.
package colorcodec

import "math"

// ColorConst is the base for the packed representation: B*ColorConst +
// G*256 + R.
const ColorConst = 65536

// Pack encodes r, g, b (each assumed in [0,255]) as b*65536 + g*256 + r.
func Pack(r, g, b float32) float32 {
	return b*ColorConst + g*256 + r
}

// Unpack decodes a packed color back into its r, g, b channels.
func Unpack(c float32) (r, g, b float32) {
	b = float32(math.Floor(float64(c / ColorConst)))
	g = float32(math.Floor(float64((c - b*ColorConst) / 256)))
	r = c - b*ColorConst - g*256
	return r, g, b
}

// UpdateChannel computes the running weighted mean of one color channel:
// v' = min(255, round((wOld*vOld + wObs*vNew) / wNew)).
//
// The min(255,.) clamp is load-bearing: without it, round-trip pack/unpack
// can return a value outside [0,255] after rounding and desynchronize the
// channel boundaries of the packed float.
func UpdateChannel(vOld, wOld, vNew, wObs, wNew float32) float32 {
	v := float32(math.Round(float64((wOld*vOld + wObs*vNew) / wNew)))
	if v > 255 {
		return 255
	}
	return v
}

// UpdateRGB applies UpdateChannel to all three channels of a packed color
// pair, returning the newly packed result.
func UpdateRGB(oldPacked, wOld, newPacked, wObs, wNew float32) float32 {
	rOld, gOld, bOld := Unpack(oldPacked)
	rNew, gNew, bNew := Unpack(newPacked)
	r := UpdateChannel(rOld, wOld, rNew, wObs, wNew)
	g := UpdateChannel(gOld, wOld, gNew, wObs, wNew)
	b := UpdateChannel(bOld, wOld, bNew, wObs, wNew)
	return Pack(r, g, b)
}
