// internal/workers/analysis/escalation-gate/config.go
package escalationgate

type Config struct {
	Enabled bool
	// LookupConfidence is reported as the confidence of lookup verdicts.
	LookupConfidence float64
}

func LoadConfig() *Config {
	return &Config{
		Enabled:          true,
		LookupConfidence: 0.9,
	}
}
