// Package sqlprep turns SQL text containing inline literals into a
// parameterized statement: every literal becomes "?" and its value is
// collected, in order, into a parameter list ready for binding. The raw text
// is also run through a set of injection heuristics whose findings are
// returned as advisory warnings.
//
// Example:
//
//	conv := sqlprep.New()
//	res, err := conv.Convert("SELECT * FROM t WHERE a = 'x' AND b = 42")
//	if err != nil {
//	  // handle error
//	}
//	fmt.Println(res.PreparedSQL) // SELECT * FROM t WHERE a = ? AND b = ?
//	fmt.Println(res.Params)      // [x 42]
package sqlprep

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kydance/sqlprep/internal/logging"
	"github.com/kydance/sqlprep/internal/templatize"
	"github.com/kydance/sqlprep/internal/validate"
)

// Converter rewrites SQL text. It is safe for concurrent use.
type Converter struct {
	logger        *zap.Logger
	inspectParams bool
	previewLength int

	templatizer *templatize.SQLTemplatizer
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithParamInspection enables libinjection checks on extracted string
// parameters.
func WithParamInspection(enabled bool) Option {
	return func(c *Converter) { c.inspectParams = enabled }
}

// WithPreviewLength sets how many bytes of a statement go into logs and
// errors.
func WithPreviewLength(n int) Option {
	return func(c *Converter) { c.previewLength = n }
}

// New returns a Converter.
func New(opts ...Option) *Converter {
	c := &Converter{
		logger:        zap.NewNop(),
		previewLength: logging.DefaultPreviewLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.templatizer = templatize.NewSQLTemplatizer(c.logger)
	return c
}

// Convert rewrites sql. On failure the error is a *ParseError and no result
// is returned; warnings never cause a failure.
func (c *Converter) Convert(sql string) (*Result, error) {
	tpl, err := c.templatizer.TemplatizeSQL(sql)
	if err != nil {
		return nil, &ParseError{
			Length:  len(sql),
			Preview: logging.Preview(sql, c.previewLength),
			Err:     err,
		}
	}

	warnings := validate.Validate(sql)
	if c.inspectParams {
		warnings = append(warnings, validate.InspectParams(tpl.Params)...)
	}

	res := &Result{
		PreparedSQL: tpl.SQL,
		Params:      tpl.Params,
		Kinds:       tpl.Kinds,
		Warnings:    warnings,
		OpTypes:     tpl.OpTypes,
		Tables:      tpl.Tables,
	}

	c.logger.Debug("converted statement",
		zap.String("query", logging.Preview(sql, c.previewLength)),
		zap.Int("params", len(res.Params)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

// ConvertAll converts every input concurrently. Results keep input order.
// The first failure cancels the remaining conversions and is returned.
func (c *Converter) ConvertAll(ctx context.Context, sqls []string) ([]*Result, error) {
	results := make([]*Result, len(sqls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, sql := range sqls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.Convert(sql)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Converter) logWarnings(sql string, warnings []Warning) {
	for _, w := range warnings {
		c.logger.Warn("suspicious SQL",
			zap.String("category", w.Category),
			zap.String("warning", w.Description),
			zap.String("query", logging.Preview(sql, c.previewLength)),
		)
	}
}
