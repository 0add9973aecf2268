// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("typebind.ast")

// Parse outcomes, recorded as the "outcome" attribute.
const (
	outcomeOK           = "ok"
	outcomeSyntaxErrors = "syntax_errors"
	outcomeFailed       = "failed"
)

type parseInstruments struct {
	duration     metric.Float64Histogram
	files        metric.Int64Counter
	declarations metric.Int64Histogram
}

var loadInstruments = sync.OnceValues(func() (*parseInstruments, error) {
	meter := otel.Meter("typebind.ast")

	duration, durErr := meter.Float64Histogram("typebind_parse_duration_seconds",
		metric.WithDescription("Time to parse one Java file."),
		metric.WithUnit("s"))
	files, filesErr := meter.Int64Counter("typebind_parse_files_total",
		metric.WithDescription("Java files parsed, by outcome."))
	declarations, declErr := meter.Int64Histogram("typebind_parse_declarations",
		metric.WithDescription("Type declarations found per parsed file."))

	if err := errors.Join(durErr, filesErr, declErr); err != nil {
		return nil, err
	}
	return &parseInstruments{duration: duration, files: files, declarations: declarations}, nil
})

// parseRun is one JavaParser.Parse call: its span and start time.
type parseRun struct {
	span  trace.Span
	start time.Time
}

func beginParse(ctx context.Context, filePath string, size int) (context.Context, *parseRun) {
	ctx, span := tracer.Start(ctx, "JavaParser.Parse", trace.WithAttributes(
		attribute.String("ast.file", filePath),
		attribute.Int("ast.content_size", size),
	))
	return ctx, &parseRun{span: span, start: time.Now()}
}

// end records the outcome and ends the span. result is nil when err is set.
func (r *parseRun) end(ctx context.Context, result *ParseResult, err error) {
	defer r.span.End()

	outcome := outcomeOK
	switch {
	case err != nil:
		outcome = outcomeFailed
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	case len(result.Errors) > 0:
		outcome = outcomeSyntaxErrors
	}
	if result != nil {
		r.span.SetAttributes(
			attribute.Int("ast.type_count", result.TypeCount()),
			attribute.Int("ast.error_count", len(result.Errors)),
		)
	}

	inst, ierr := loadInstruments()
	if ierr != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	inst.duration.Record(ctx, time.Since(r.start).Seconds(), attrs)
	inst.files.Add(ctx, 1, attrs)
	if result != nil {
		inst.declarations.Record(ctx, int64(result.TypeCount()))
	}
}
