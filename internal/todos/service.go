package todos

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeSkipped
	OutcomeNotFound
	OutcomeStoreError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeStoreError:
		return "store_error"
	default:
		return "unknown"
	}
}

// Result reports what a mutation did. Todo is set only when Outcome is
// OutcomeApplied; Err only when it is OutcomeStoreError.
type Result struct {
	Outcome Outcome
	Todo    Todo
	Err     error
}

type Service struct {
	store  Store
	logger *slog.Logger
	tracer trace.Tracer
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("todos"),
	}
}

func (s *Service) List(ctx context.Context) ([]Todo, error) {
	ctx, span := s.tracer.Start(ctx, "todos.list")
	defer span.End()

	list, err := s.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("todos.count", len(list)))
	return list, nil
}

// Add trims title and inserts it. A blank title is skipped, not rejected.
func (s *Service) Add(ctx context.Context, title string) Result {
	ctx, span := s.tracer.Start(ctx, "todos.add")
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		return s.finish(ctx, span, "add", 0, Result{Outcome: OutcomeSkipped})
	}
	t, err := s.store.Create(ctx, title)
	return s.finish(ctx, span, "add", 0, resultOf(t, err))
}

// Toggle flips complete on the todo with the given id.
func (s *Service) Toggle(ctx context.Context, id int64) Result {
	ctx, span := s.tracer.Start(ctx, "todos.toggle", trace.WithAttributes(attribute.Int64("todo.id", id)))
	defer span.End()

	t, err := s.store.Toggle(ctx, id)
	return s.finish(ctx, span, "toggle", id, resultOf(t, err))
}

func (s *Service) Remove(ctx context.Context, id int64) Result {
	ctx, span := s.tracer.Start(ctx, "todos.remove", trace.WithAttributes(attribute.Int64("todo.id", id)))
	defer span.End()

	err := s.store.Delete(ctx, id)
	return s.finish(ctx, span, "remove", id, resultOf(Todo{ID: id}, err))
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func resultOf(t Todo, err error) Result {
	switch {
	case err == nil:
		return Result{Outcome: OutcomeApplied, Todo: t}
	case errors.Is(err, ErrNotFound):
		return Result{Outcome: OutcomeNotFound}
	case errors.Is(err, ErrTitleRequired):
		return Result{Outcome: OutcomeSkipped}
	default:
		return Result{Outcome: OutcomeStoreError, Err: err}
	}
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, id int64, res Result) Result {
	span.SetAttributes(attribute.String("todos.outcome", res.Outcome.String()))
	mutationsTotal.WithLabelValues(op, res.Outcome.String()).Inc()

	if res.Outcome == OutcomeStoreError {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, op+" failed")
		s.logger.ErrorContext(ctx, "todo_store_error",
			slog.String("op", op),
			slog.Int64("id", id),
			slog.String("error", res.Err.Error()),
		)
	}
	return res
}
