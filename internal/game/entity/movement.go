package entity

import "math"

// Delta converts a coordinate change into the fixed-point short carried by
// relative move packets, (new-old)*32*128, clamped to the int16 range.
func Delta(from, to float64) int16 {
	d := (to*32 - from*32) * 128
	switch {
	case d > math.MaxInt16:
		return math.MaxInt16
	case d < math.MinInt16:
		return math.MinInt16
	}
	return int16(d)
}

// NormalizeDegrees wraps an angle into [0, 360).
func NormalizeDegrees(deg float32) float32 {
	d := math.Mod(float64(deg), 360)
	if d < 0 {
		d += 360
	}
	f := float32(d)
	if f >= 360 {
		return 0
	}
	return f
}

// Action is a PlayerCommand action id.
type Action int32

const (
	ActionStartSneaking  Action = 0
	ActionStopSneaking   Action = 1
	ActionLeaveBed       Action = 2
	ActionStartSprinting Action = 3
	ActionStopSprinting  Action = 4
)

// ActionEntries returns the metadata entries a sneak or sprint change writes
// given the current flag byte. It returns nil for actions that do not touch
// metadata.
func ActionEntries(flags byte, a Action) []Entry {
	switch a {
	case ActionStartSneaking:
		return []Entry{
			{Index: IndexFlags, Type: MetaByte, Value: flags | FlagSneaking},
			{Index: IndexPose, Type: MetaPose, Value: PoseSneaking},
		}
	case ActionStopSneaking:
		return []Entry{
			{Index: IndexFlags, Type: MetaByte, Value: flags &^ FlagSneaking},
			{Index: IndexPose, Type: MetaPose, Value: PoseStanding},
		}
	case ActionStartSprinting:
		return []Entry{{Index: IndexFlags, Type: MetaByte, Value: flags | FlagSprinting}}
	case ActionStopSprinting:
		return []Entry{{Index: IndexFlags, Type: MetaByte, Value: flags &^ FlagSprinting}}
	}
	return nil
}
