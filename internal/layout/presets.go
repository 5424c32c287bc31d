package layout

import "github.com/maauso/newsvideo-api/internal/storyboard"

const (
	canvasWidth  = 1920
	canvasHeight = 1080

	zBackground = -1
	zScene      = 0
	zAvatar     = 1
	zOverlay    = 100
)

func fullCanvas() Quad {
	return RectQuad(0, 0, canvasWidth, canvasHeight)
}

// Builtin returns the shipped presets: a full-bleed speaker layout and two
// half-frame variants.
func Builtin() []Preset {
	return []Preset{
		{
			Name:   PresetFull,
			Width:  canvasWidth,
			Height: canvasHeight,
			Scene: Layer{
				Area: Quad{
					TopLeft:     storyboard.Point{X: 111, Y: 97},
					TopRight:    storyboard.Point{X: 1324, Y: 183},
					BottomRight: storyboard.Point{X: 1324, Y: 818},
					BottomLeft:  storyboard.Point{X: 111, Y: 904},
				},
				ZIndex: zScene,
			},
			ExtendScene:      Layer{Area: RectQuad(165, 117, 1756, 945), ZIndex: zScene},
			AvatarCrop:       Rect{X: 790, Y: 110, W: 390, H: 970},
			Avatar:           Layer{Area: RectQuad(1420, 200, 1770, 980), ZIndex: zAvatar},
			Background:       Layer{Image: "background_full.jpg", Area: fullCanvas(), ZIndex: zBackground},
			ExtendBackground: Layer{Image: "background_full_extend.jpg", Area: fullCanvas(), ZIndex: zBackground},
			Title:            Layer{Image: "title_full.png", Area: RectQuad(230, 1000, 1240, 1080), ZIndex: zOverlay},
			International:    Layer{Image: "international.png", Area: RectQuad(1604, 60, 1784, 113), ZIndex: zOverlay},
		},
		{
			Name:             PresetHalf,
			Width:            canvasWidth,
			Height:           canvasHeight,
			Scene:            Layer{Area: RectQuad(771, 73, 1841, 869), ZIndex: zScene},
			ExtendScene:      Layer{Area: RectQuad(147, 71, 1772, 869), ZIndex: zScene},
			AvatarCrop:       Rect{X: 760, Y: 110, W: 450, H: 485},
			Avatar:           Layer{Area: RectQuad(73, 73, 737, 869), ZIndex: zAvatar},
			Background:       Layer{Image: "background_half.jpg", Area: fullCanvas(), ZIndex: zBackground},
			ExtendBackground: Layer{Image: "background_half_extend.jpg", Area: fullCanvas(), ZIndex: zBackground},
			Title:            Layer{Image: "title_half.png", Area: RectQuad(146, 890, 1049, 1002), ZIndex: zOverlay},
			International:    Layer{Image: "international.png", Area: RectQuad(1400, 885, 1572, 931), ZIndex: zOverlay},
		},
		{
			Name:             PresetHalf2,
			Width:            canvasWidth,
			Height:           canvasHeight,
			Scene:            Layer{Area: RectQuad(661, 195, 1808, 801), ZIndex: zScene},
			ExtendScene:      Layer{Area: RectQuad(258, 120, 1655, 844), ZIndex: zScene},
			AvatarCrop:       Rect{X: 760, Y: 110, W: 450, H: 485},
			Avatar:           Layer{Area: RectQuad(44, 175, 748, 898), ZIndex: zAvatar},
			Background:       Layer{Image: "background_half2.jpg", Area: fullCanvas(), ZIndex: zBackground},
			ExtendBackground: Layer{Image: "background_half2_extend.jpg", Area: fullCanvas(), ZIndex: zBackground},
			Title:            Layer{Image: "title_half2.png", Area: RectQuad(217, 917, 1157, 1000), ZIndex: zOverlay},
			International:    Layer{Image: "international.png", Area: RectQuad(1604, 60, 1784, 113), ZIndex: zOverlay},
		},
	}
}
