package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyF            = 70  // F key (ASCII), re-frame the camera
	KeyP            = 80  // P key (ASCII), toggle the frame profiler
	KeyR            = 82  // R key (ASCII), replay the reveal
	KeyLeftBracket  = 91  // [ key (ASCII), previous scene
	KeyRightBracket = 93  // ] key (ASCII), next scene
	KeyEsc          = 256 // Escape key (GLFW)
	KeyRight        = 262 // Right arrow (GLFW)
	KeyLeft         = 263 // Left arrow (GLFW)
	KeyDown         = 264 // Down arrow (GLFW)
	KeyUp           = 265 // Up arrow (GLFW)

	Key1 = 49 // 1 key (ASCII)
	Key9 = 57 // 9 key (ASCII)
)

// DigitIndex maps the digit keys 1-9 to a zero-based slot index.
//
// Parameters:
//   - keyCode: the key code reported by the window
//
// Returns:
//   - int: the slot index (0 for Key1)
//   - bool: false if the key is not a digit between 1 and 9
func DigitIndex(keyCode uint32) (int, bool) {
	if keyCode < Key1 || keyCode > Key9 {
		return 0, false
	}
	return int(keyCode - Key1), true
}
