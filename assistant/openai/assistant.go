package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/sourcechat/assistant"
)

// api is the slice of the upstream client the session depends on.
type api interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
	GetFile(ctx context.Context, fileID string) (openai.File, error)
}

type openAIAssistant struct {
	options assistant.Options
	client  api
}

func (a *openAIAssistant) Chat(ctx context.Context, message string, opts ...assistant.ChatOption) (*assistant.Turn, error) {
	chatOptions := assistant.NewChatOptions(opts...)

	threadId := chatOptions.ThreadId
	if len(threadId) == 0 {
		thread, err := a.client.CreateThread(ctx, openai.ThreadRequest{})
		if err != nil {
			return nil, err
		}
		threadId = thread.ID
		slog.InfoContext(ctx, "created new thread", "thread_id", threadId)
	} else {
		slog.InfoContext(ctx, "reusing thread", "thread_id", threadId)
	}

	if _, err := a.client.CreateMessage(ctx, threadId, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	}); err != nil {
		return nil, err
	}

	run, err := a.client.CreateRun(ctx, threadId, openai.RunRequest{
		AssistantID: a.options.AssistantId,
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "started run", "thread_id", threadId, "run_id", run.ID)

	if err := a.awaitRun(ctx, threadId, run.ID); err != nil {
		return nil, err
	}

	msg, err := a.findRunMessage(ctx, threadId, run.ID)
	if err != nil {
		return nil, err
	}

	text, annotations := extractTurn(msg)

	return &assistant.Turn{
		ThreadId:    threadId,
		Text:        text,
		Annotations: annotations,
	}, nil
}

func (a *openAIAssistant) ResolveFileName(ctx context.Context, fileId string) (string, error) {
	file, err := a.client.GetFile(ctx, fileId)
	if err != nil {
		return "", err
	}
	return file.FileName, nil
}

// awaitRun polls run status until a terminal state or the attempt budget is
// spent. The wait is a ticker select, so a slow run suspends only its own
// request. A local timeout does not cancel the run upstream.
func (a *openAIAssistant) awaitRun(ctx context.Context, threadId string, runId string) error {
	ticker := time.NewTicker(a.options.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < a.options.PollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}

		run, err := a.client.RetrieveRun(ctx, threadId, runId)
		if err != nil {
			return err
		}

		switch run.Status {
		case openai.RunStatusCompleted:
			return nil
		case openai.RunStatusFailed, openai.RunStatusCancelled:
			detail := ""
			if run.LastError != nil {
				detail = run.LastError.Message
			}
			return &assistant.RunFailedError{Status: string(run.Status), Detail: detail}
		}
	}

	return assistant.ErrRunTimeout
}

func (a *openAIAssistant) findRunMessage(ctx context.Context, threadId string, runId string) (openai.Message, error) {
	list, err := a.client.ListMessage(ctx, threadId, nil, nil, nil, nil, nil)
	if err != nil {
		return openai.Message{}, err
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		if msg.RunID != nil && *msg.RunID == runId {
			return msg, nil
		}
	}

	slog.ErrorContext(ctx, "completed run has no assistant message", "thread_id", threadId, "run_id", runId)

	return openai.Message{}, assistant.ErrNoAssistantMessage
}

// textAnnotation mirrors the wire shape of one upstream text annotation.
// Only file_citation annotations matter here; other kinds carry a nil
// FileCitation and are dropped.
type textAnnotation struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	FileCitation *struct {
		FileId string `json:"file_id"`
	} `json:"file_citation"`
}

func extractTurn(msg openai.Message) (string, []assistant.Annotation) {
	if len(msg.Content) == 0 || msg.Content[0].Text == nil {
		return "", nil
	}

	text := msg.Content[0].Text.Value

	var annotations []assistant.Annotation

	for _, raw := range msg.Content[0].Text.Annotations {
		bs, err := json.Marshal(raw)
		if err != nil {
			continue
		}
		var ann textAnnotation
		if err := json.Unmarshal(bs, &ann); err != nil {
			continue
		}
		if ann.FileCitation == nil || len(ann.FileCitation.FileId) == 0 {
			continue
		}
		annotations = append(annotations, assistant.Annotation{
			Marker: ann.Text,
			FileId: ann.FileCitation.FileId,
		})
	}

	return text, annotations
}

func NewAssistant(opts ...assistant.Option) assistant.Assistant {
	options := assistant.NewOptions(opts...)

	if len(options.AssistantId) == 0 {
		panic("assistant id is required")
	}

	a := &openAIAssistant{
		options: options,
	}

	client := openai.NewClient(options.ApiKey)

	a.client = client

	return a
}
