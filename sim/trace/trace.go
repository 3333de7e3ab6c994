package trace

// TraceLevel controls the verbosity of imputation tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelGroups captures one record per group per window.
	TraceLevelGroups TraceLevel = "groups"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelGroups: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Trace collects group records during a rolling run.
type Trace struct {
	Config TraceConfig
	Groups []GroupRecord
}

// NewTrace creates a Trace ready for recording.
func NewTrace(config TraceConfig) *Trace {
	return &Trace{
		Config: config,
		Groups: make([]GroupRecord, 0),
	}
}

// Enabled reports whether records are kept.
func (t *Trace) Enabled() bool {
	return t != nil && t.Config.Level == TraceLevelGroups
}

// RecordGroups appends group records. No-op unless the trace is enabled.
func (t *Trace) RecordGroups(records ...GroupRecord) {
	if !t.Enabled() {
		return
	}
	t.Groups = append(t.Groups, records...)
}
