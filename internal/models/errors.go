package models

// ConfigError reports a malformed or inconsistent configuration. It is fatal
// and aborts a run before any backend call is made.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Msg
}

// SchemaError reports a malformed rubric at contract synthesis time. It is
// fatal before evaluation begins.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string {
	return "schema: " + e.Msg
}
