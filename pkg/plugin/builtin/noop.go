package builtin

import "context"

// NoopName is the registry name of Noop.
const NoopName = "noop"

// Noop accepts every existing file and does nothing with it. It is useful
// for checking a configuration before pointing a real processor at it.
type Noop struct{}

func (Noop) Name() string    { return NoopName }
func (Noop) Version() string { return "1.0.0" }

func (Noop) CanHandle(filePath string) bool {
	return isRegularFile(filePath)
}

func (Noop) Process(context.Context, string, map[string]interface{}) (bool, error) {
	return true, nil
}
