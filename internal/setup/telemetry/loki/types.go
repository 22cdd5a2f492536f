package loki

// pushRequest is the JSON payload accepted by the Loki push API.
type pushRequest struct {
	Streams []stream `json:"streams"`
}

// stream is a set of values sharing one label set.
type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// entry is a single encoded log line.
type entry struct {
	unixNano int64
	line     string
}

// logLine is the JSON body of a shipped log line.
type logLine struct {
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Logger  string         `json:"logger,omitempty"`
	Caller  string         `json:"caller,omitempty"`
	Stack   string         `json:"stacktrace,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}
