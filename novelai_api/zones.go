package novelai_api

import "unicode"

// PositionToFloat converts a grid code such as "C3" into normalized canvas
// coordinates. Columns A-E and rows 1-5 each map to 0.1 through 0.9 in 0.2
// steps; anything unrecognized falls back to the canvas center per axis.
func PositionToFloat(position string) (float64, float64) {
	runes := []rune(position)
	if len(runes) < 2 {
		return 0.5, 0.5
	}

	x := 0.5
	switch unicode.ToUpper(runes[0]) {
	case 'A':
		x = 0.1
	case 'B':
		x = 0.3
	case 'C':
		x = 0.5
	case 'D':
		x = 0.7
	case 'E':
		x = 0.9
	}

	y := 0.5
	switch runes[1] {
	case '1':
		y = 0.1
	case '2':
		y = 0.3
	case '3':
		y = 0.5
	case '4':
		y = 0.7
	case '5':
		y = 0.9
	}

	return x, y
}
