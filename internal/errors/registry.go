package errors

// Registered error codes.
const (
	CodeHookOutsideRender = "L001"
	CodeHookOrder         = "L002"
	CodeUnknownType       = "L003"
	CodeHostMutation      = "L004"
	CodeInvalidConfig     = "L005"
	CodeProtocol          = "L006"
	CodeSnapshot          = "L007"
	CodeRenderPanic       = "L008"
)

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	CodeHookOutsideRender: {
		Category:   CategoryRuntime,
		Message:    "Hook called outside composite evaluation",
		Detail:     "Hooks read and write the cell list of the composite being rendered. The frame passed to a render function is only valid until that function returns.",
		Suggestion: "Call hooks directly in the render function body, never from listeners or goroutines.",
	},
	CodeHookOrder: {
		Category:   CategoryRuntime,
		Message:    "Hook order changed",
		Detail:     "A composite must call the same hooks in the same order on every render. Hook identity is its call position.",
		Suggestion: "Move conditional logic inside the hook callbacks instead of around hook calls.",
	},
	CodeUnknownType: {
		Category: CategoryHost,
		Message:  "Unknown host type",
		Detail:   "The host could not create a node for this element type. The render cycle was abandoned.",
	},
	CodeHostMutation: {
		Category: CategoryHost,
		Message:  "Host mutation failed",
		Detail:   "The host rejected a property, listener or structural operation. The render cycle was abandoned.",
	},
	CodeInvalidConfig: {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Suggestion: "Check loom.json against the documented defaults.",
	},
	CodeProtocol: {
		Category: CategoryProtocol,
		Message:  "Malformed protocol message",
	},
	CodeSnapshot: {
		Category: CategoryStorage,
		Message:  "Snapshot store failed",
	},
	CodeRenderPanic: {
		Category:   CategoryRuntime,
		Message:    "Render function panicked",
		Detail:     "A composite's render function panicked. The render cycle was abandoned.",
		Suggestion: "Check the composite named in the error for nil props or failed type assertions.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
