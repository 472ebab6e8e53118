package media

import (
	"fmt"
	"strings"
)

// Category values assigned by classification.
const (
	CategoryScreenshot   = "screenshot"
	CategoryPortrait     = "portrait"
	CategoryLandscape    = "landscape"
	CategorySquare       = "square"
	CategoryUnclassified = "unclassified"
)

// commonScreenDims covers typical phone screenshot resolutions.
var commonScreenDims = map[[2]int]bool{
	{1080, 1920}: true,
	{1080, 2340}: true,
	{1080, 2400}: true,
	{1170, 2532}: true,
	{1179, 2556}: true,
	{1284, 2778}: true,
	{1290, 2796}: true,
	{750, 1334}:  true,
	{828, 1792}:  true,
}

// Classify assigns a best-effort category from filename hints and
// dimensions. Callers downgrade any error to CategoryUnclassified.
func Classify(originalName string, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid dimensions %dx%d", width, height)
	}

	name := strings.ToLower(originalName)
	if strings.Contains(name, "screenshot") || strings.Contains(name, "screen_shot") {
		return CategoryScreenshot, nil
	}
	if commonScreenDims[[2]int{width, height}] {
		return CategoryScreenshot, nil
	}

	ratio := float64(width) / float64(height)
	switch {
	case ratio > 0.95 && ratio < 1.05:
		return CategorySquare, nil
	case height > width:
		return CategoryPortrait, nil
	default:
		return CategoryLandscape, nil
	}
}
