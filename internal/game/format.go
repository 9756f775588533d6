package game

import "fmt"

// FormatTime renders whole seconds as m:ss. Negative input shows 0:00.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
