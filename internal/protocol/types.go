package protocol

import "math"

// Vec3 is an entity position in world space.
type Vec3 struct {
	X, Y, Z float64
}

// Rotation is an entity orientation in degrees.
type Rotation struct {
	Yaw, Pitch float32
}

// Position is an integer block coordinate.
type Position struct {
	X, Y, Z int32
}

// Offset returns p moved one block towards the given block face
// (0 down, 1 up, 2 north, 3 south, 4 west, 5 east). Unknown faces return p.
func (p Position) Offset(face int32) Position {
	switch face {
	case 0:
		p.Y--
	case 1:
		p.Y++
	case 2:
		p.Z--
	case 3:
		p.Z++
	case 4:
		p.X--
	case 5:
		p.X++
	}
	return p
}

// PackPosition packs a block position into its 64-bit wire form:
// x in bits 38..63, z in bits 12..37, y in bits 0..11, all two's complement.
func PackPosition(p Position) uint64 {
	return (uint64(p.X)&0x3ffffff)<<38 | (uint64(p.Z)&0x3ffffff)<<12 | uint64(p.Y)&0xfff
}

// UnpackPosition reverses PackPosition, sign-extending each component.
func UnpackPosition(v uint64) Position {
	x := int32(v >> 38)
	z := int32(v >> 12 & 0x3ffffff)
	y := int32(v & 0xfff)
	if x >= 1<<25 {
		x -= 1 << 26
	}
	if z >= 1<<25 {
		z -= 1 << 26
	}
	if y >= 1<<11 {
		y -= 1 << 12
	}
	return Position{X: x, Y: y, Z: z}
}

// Angle converts degrees to the one-byte wire angle, floor(deg*256/360) mod 256.
func Angle(deg float32) byte {
	return byte(int64(math.Floor(float64(deg) * 256 / 360)))
}

// AngleDegrees converts a wire angle back to degrees in [0, 360).
func AngleDegrees(a byte) float32 {
	return float32(a) * 360 / 256
}
