package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medassist-ai/internal/calendar"
	"github.com/wolfman30/medassist-ai/internal/observability/metrics"
	"github.com/wolfman30/medassist-ai/pkg/logging"
)

var conversationTracer = otel.Tracer("medassist.internal.conversation")

// Shown when every configured model provider fails. The failed turn is rolled
// back so the user can simply resend.
const modelDownReply = "Sorry, something went wrong on my end. Please try again in a moment."

// ServiceConfig carries the model and history knobs for the turn pipeline.
type ServiceConfig struct {
	ModelID         string
	MaxTokens       int32
	Temperature     float32
	MaxHistoryTurns int
}

// TurnRequest is one user message plus the session state it arrived with.
type TurnRequest struct {
	UserID  string
	Input   string
	Context Context
}

// TurnResponse is the reply plus the next session state. On model failure
// Context is the request's context unchanged and ModelDown is set.
type TurnResponse struct {
	Reply     string
	Context   Context
	Booking   *calendar.BookingResult
	ModelDown bool
	Usage     TokenUsage
}

// Service runs the conversational turn pipeline: history in, model reply out,
// with a booking step bolted onto replies that confirm a concrete slot.
type Service struct {
	llm       LLMClient
	allocator *calendar.Allocator
	cfg       ServiceConfig
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
	now       func() time.Time
}

func NewService(llm LLMClient, allocator *calendar.Allocator, cfg ServiceConfig, logger *logging.Logger, m *metrics.BookingMetrics) *Service {
	if llm == nil {
		panic("conversation: llm client required")
	}
	if allocator == nil {
		panic("conversation: calendar allocator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = 24
	}
	return &Service{
		llm:       llm,
		allocator: allocator,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// ProcessTurn runs one conversational turn. Model failure is not an error to
// the caller: the reply apologizes and the returned context equals the input
// context, as if the turn never happened.
func (s *Service) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	ctx, span := conversationTracer.Start(ctx, "conversation.process_turn")
	defer span.End()
	span.SetAttributes(attribute.String("medassist.session_id", req.Context.SessionID))

	input := strings.TrimSpace(req.Input)
	if input == "" {
		return nil, errors.New("conversation: input is empty")
	}

	start := s.now()
	candidate := req.Context.WithTurn(ChatRoleUser, input, start)

	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:       s.cfg.ModelID,
		System:      []string{s.systemPrompt(start)},
		Messages:    historyMessages(candidate.TrimmedTurns(s.cfg.MaxHistoryTurns)),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("model completion failed; rolling back turn",
			"session_id", req.Context.SessionID, "error", err)
		s.metrics.ObserveTurn("model_error", s.now().Sub(start).Seconds())
		return &TurnResponse{
			Reply:     modelDownReply,
			Context:   req.Context,
			ModelDown: true,
		}, nil
	}

	s.metrics.ObserveModelUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	reply := resp.Text
	updated := candidate
	var booking *calendar.BookingResult

	// Intent comes from what the user asked; the concrete slot comes from
	// the assistant's confirmation, which the system prompt keeps in a
	// machine-readable shape.
	if HasBookingIntent(input) {
		if date, slot, ok := ExtractDateTime(reply); ok {
			result := s.allocator.BookSlot(ctx, req.UserID, date, slot)
			booking = &result
			reply = reply + "\n\n" + result.Message
			updated = updated.WithAttempt(BookingAttempt{
				Request: input,
				Date:    date,
				Time:    slot,
				Outcome: result.Outcome,
				Message: result.Message,
				At:      s.now(),
			})
		}
	}

	updated = updated.WithTurn(ChatRoleAssistant, reply, s.now())
	updated.LastInput = start
	updated = updated.TrimmedTurns(s.cfg.MaxHistoryTurns)

	s.metrics.ObserveTurn("ok", s.now().Sub(start).Seconds())
	return &TurnResponse{
		Reply:   reply,
		Context: updated,
		Booking: booking,
		Usage:   resp.Usage,
	}, nil
}

// Appointments lists the user's booked slots in chronological order.
func (s *Service) Appointments(ctx context.Context, userID string) []calendar.Appointment {
	return s.allocator.ListAppointments(ctx, userID)
}

func (s *Service) systemPrompt(now time.Time) string {
	hours := s.allocator.Hours()
	return buildSystemPrompt(
		now.Format("2006-01-02"),
		hours.Start,
		hours.End,
		int(hours.Interval.Minutes()),
	)
}

func historyMessages(c Context) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(c.Turns))
	for _, turn := range c.Turns {
		msgs = append(msgs, ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return msgs
}
