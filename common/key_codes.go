package common

// Key codes for the volume view controls.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyE = 69 // E key (ASCII)
	KeyF = 70 // F key (ASCII)
	KeyG = 71 // G key (ASCII)
	KeyN = 78 // N key (ASCII)
	KeyQ = 81 // Q key (ASCII)
	KeyR = 82 // R key (ASCII)
	KeyS = 83 // S key (ASCII)
	KeyV = 86 // V key (ASCII)
	KeyW = 87 // W key (ASCII)

	Key1 = 49 // 1 key (ASCII)
	Key9 = 57 // 9 key (ASCII)
)

// Non-printable keys (GLFW).
const (
	KeyEsc   = 256
	KeyTab   = 258
	KeyRight = 262
	KeyLeft  = 263
	KeyDown  = 264
	KeyUp    = 265
)
