package config

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
)

type Analysis struct {
	pacing        time.Duration
	callTimeout   time.Duration
	maxInputChars int64
}

func (x *Analysis) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "analysis-pacing",
			Usage:       "Delay between streamed comment events",
			Value:       50 * time.Millisecond,
			Destination: &x.pacing,
			Category:    "Analysis",
			Sources:     cli.EnvVars("THREADLENS_ANALYSIS_PACING"),
		},
		&cli.DurationFlag{
			Name:        "analysis-call-timeout",
			Usage:       "Timeout for each external call within a job",
			Value:       60 * time.Second,
			Destination: &x.callTimeout,
			Category:    "Analysis",
			Sources:     cli.EnvVars("THREADLENS_ANALYSIS_CALL_TIMEOUT"),
		},
		&cli.Int64Flag{
			Name:        "analysis-max-input-chars",
			Usage:       "Character budget for aggregated content sent to the model",
			Value:       120_000,
			Destination: &x.maxInputChars,
			Category:    "Analysis",
			Sources:     cli.EnvVars("THREADLENS_ANALYSIS_MAX_INPUT_CHARS"),
		},
	}
}

func (x Analysis) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("pacing", x.pacing),
		slog.Duration("call_timeout", x.callTimeout),
		slog.Int64("max_input_chars", x.maxInputChars),
	)
}

func (x *Analysis) Pacing() time.Duration      { return x.pacing }
func (x *Analysis) CallTimeout() time.Duration { return x.callTimeout }
func (x *Analysis) MaxInputChars() int         { return int(x.maxInputChars) }
