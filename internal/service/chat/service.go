package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/w-h-a/sourcechat/assistant"
	"github.com/w-h-a/sourcechat/reference"
)

// Response is one reconciled chat turn. ThreadId is the upstream continuity
// handle the caller hands back on the next turn.
type Response struct {
	ThreadId         string     `json:"thread_id"`
	AssistantMessage string     `json:"assistant_message"`
	Citations        []Citation `json:"citations"`
}

type Service struct {
	assistant  assistant.Assistant
	reconciler *Reconciler
	tracer     trace.Tracer
}

func (s *Service) Ask(ctx context.Context, message string, threadId string) (*Response, error) {
	if len(strings.TrimSpace(message)) == 0 {
		return nil, errors.New("message is required")
	}

	ctx, span := s.tracer.Start(ctx, "chat.ask")
	defer span.End()

	var opts []assistant.ChatOption
	if len(threadId) > 0 {
		opts = append(opts, assistant.WithThreadId(threadId))
	}

	turn, err := s.assistant.Chat(ctx, message, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat turn failed")
		return nil, err
	}

	finalText, citations := s.reconciler.Process(ctx, turn.Text, turn.Annotations)

	span.SetAttributes(
		attribute.String("chat.thread_id", turn.ThreadId),
		attribute.Int("chat.annotations", len(turn.Annotations)),
		attribute.Int("chat.citations", len(citations)),
	)

	slog.InfoContext(ctx, "generated response", "thread_id", turn.ThreadId, "citations", len(citations))

	return &Response{
		ThreadId:         turn.ThreadId,
		AssistantMessage: finalText,
		Citations:        citations,
	}, nil
}

func New(a assistant.Assistant, index *reference.Index) *Service {
	if a == nil {
		panic("assistant is required")
	}

	return &Service{
		assistant:  a,
		reconciler: NewReconciler(index, a.ResolveFileName),
		tracer:     otel.Tracer("sourcechat/chat"),
	}
}
