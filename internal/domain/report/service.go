package report

import (
	"context"

	"github.com/rs/zerolog"
)

// Service compiles and runs one diagnosis report per request.
type Service struct {
	runner Runner
	rowCap int
	log    zerolog.Logger
}

func NewService(runner Runner, rowCap int, log zerolog.Logger) *Service {
	return &Service{runner: runner, rowCap: rowCap, log: log}
}

// Diagnosis builds the filterable diagnosis report. A truncated result is a
// success; the flag tells the presentation layer to offer the full export
// path instead.
func (s *Service) Diagnosis(ctx context.Context, fs FilterSet) (*Result, error) {
	sql, args, err := Compile(fs)
	if err != nil {
		return nil, err
	}

	res, err := s.runner.Run(ctx, sql, args, s.rowCap)
	if err != nil {
		return nil, err
	}

	if res.Truncated {
		s.log.Warn().
			Str("year", fs.Year).
			Str("period", fs.Period).
			Int("row_cap", s.rowCap).
			Msg("diagnosis report truncated at row cap")
	}
	return &res, nil
}
