package ring

import (
	"image/color"
	"time"

	"ringlight-go/x/mathx"
)

// Scene is a named lighting pattern.
type Scene uint8

const (
	White Scene = iota
	Warm
	Red
	Green
	Blue
	Rainbow
	Breathe
	sceneCount
)

var sceneNames = [sceneCount]string{"white", "warm", "red", "green", "blue", "rainbow", "breathe"}

func (s Scene) String() string {
	if s < sceneCount {
		return sceneNames[s]
	}
	return "unknown"
}

// MarshalText lets State serialise scenes by name.
func (s Scene) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseScene accepts the names produced by Scene.String.
func ParseScene(name string) (Scene, bool) {
	for i, n := range sceneNames {
		if n == name {
			return Scene(i), true
		}
	}
	return 0, false
}

// Scenes lists every scene in NextScene order.
func Scenes() []Scene {
	out := make([]Scene, sceneCount)
	for i := range out {
		out[i] = Scene(i)
	}
	return out
}

// Animated reports whether the scene changes over time.
func (s Scene) Animated() bool { return s == Rainbow || s == Breathe }

var (
	rgbWhite = color.RGBA{255, 255, 255, 255}
	rgbWarm  = color.RGBA{255, 147, 41, 255}
	rgbRed   = color.RGBA{255, 0, 0, 255}
	rgbGreen = color.RGBA{0, 255, 0, 255}
	rgbBlue  = color.RGBA{0, 0, 255, 255}
)

// colorAt is the full-brightness colour of arc pixel rel (0..width-1).
func (s Scene) colorAt(rel, width int, phase time.Duration, cfg *Config) color.RGBA {
	switch s {
	case White:
		return rgbWhite
	case Warm:
		return rgbWarm
	case Red:
		return rgbRed
	case Green:
		return rgbGreen
	case Blue:
		return rgbBlue
	case Rainbow:
		rot := int((phase % cfg.RainbowPeriod) * 256 / cfg.RainbowPeriod)
		return wheel(uint8((rel*256/width + rot) & 0xFF))
	case Breathe:
		p := int64(phase % cfg.BreathePeriod)
		t := uint16(p * 510 / int64(cfg.BreathePeriod))
		if t > 255 {
			t = 510 - t
		}
		return scale(rgbWarm, uint8(mathx.MapU16(t, 0, 255, 24, 255)))
	}
	return color.RGBA{A: 255}
}

// wheel maps 0..255 around the colour wheel r -> g -> b -> r.
func wheel(pos uint8) color.RGBA {
	switch {
	case pos < 85:
		return color.RGBA{255 - pos*3, pos * 3, 0, 255}
	case pos < 170:
		pos -= 85
		return color.RGBA{0, 255 - pos*3, pos * 3, 255}
	default:
		pos -= 170
		return color.RGBA{pos * 3, 0, 255 - pos*3, 255}
	}
}
