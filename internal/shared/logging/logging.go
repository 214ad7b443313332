package logging

import (
	"go.uber.org/zap"
)

// New builds the service logger. Production gets sampled JSON output;
// everything else gets the human-readable development config. Symptom
// text is never logged anywhere, only its length.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
