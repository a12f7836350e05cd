package models

// CommandKey names a configured command, e.g. "q".
type CommandKey string

// Backend kinds understood by the dispatcher.
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// CommandSpec is one entry of the command vocabulary. It is loaded once at
// startup and never mutated.
type CommandSpec struct {
	Key      CommandKey     `mapstructure:"key"`
	Prefix   string         `mapstructure:"prefix"`
	Endpoint string         `mapstructure:"endpoint"`
	Backend  string         `mapstructure:"backend"`
	Params   map[string]any `mapstructure:"params"`
}

// ParsedCommand is a command recognised in message text. Context carries the
// content of an earlier command when the message continues a reply thread.
type ParsedCommand struct {
	Command CommandKey
	Content string
	Context string
}
