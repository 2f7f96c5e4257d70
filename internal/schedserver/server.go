// Package schedserver exposes a collection over connect RPC.
package schedserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/internal/auth"
	"github.com/domino14/srs_scheduler/internal/collection"
	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/scheduler/answering"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
)

const (
	ServicePath = "/srs.scheduler.v1.SchedulerService/"

	AnswerCardProcedure          = ServicePath + "AnswerCard"
	GetQueuedCardsProcedure      = ServicePath + "GetQueuedCards"
	GetSchedulingStatesProcedure = ServicePath + "GetSchedulingStates"
	UndoProcedure                = ServicePath + "Undo"
	RedoProcedure                = ServicePath + "Redo"
	GetUndoStatusProcedure       = ServicePath + "GetUndoStatus"
)

const defaultFetchLimit = 20

// Server wraps a single collection. A collection is not safe for concurrent
// use, so every call holds mu.
type Server struct {
	mu  sync.Mutex
	col *collection.Collection

	// RequireUser rejects calls that an interceptor did not authenticate.
	RequireUser bool
}

func NewServer(col *collection.Collection) *Server {
	return &Server{col: col}
}

func unauthenticated(msg string) *connect.Error {
	return connect.NewError(connect.CodeUnauthenticated, errors.New(msg))
}

func invalidArgError(msg string) *connect.Error {
	return connect.NewError(connect.CodeInvalidArgument, errors.New(msg))
}

// connectError maps an error kind onto a connect code.
func connectError(err error) error {
	if err == nil {
		return nil
	}
	var code connect.Code
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		code = connect.CodeInvalidArgument
	case errors.Is(err, errs.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, errs.ErrInterrupted):
		code = connect.CodeCanceled
	case errors.Is(err, errs.ErrConflict):
		code = connect.CodeAlreadyExists
	case errors.Is(err, errs.ErrUndoEmpty):
		code = connect.CodeFailedPrecondition
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}

// enter locks the collection for one call.
func (s *Server) enter(ctx context.Context) (context.Context, func(), error) {
	logger := log.Ctx(ctx).With()
	if u := auth.UserFromContext(ctx); u != nil {
		logger = logger.Int64("uid", u.ID).Str("username", u.Name)
	} else if s.RequireUser {
		return nil, nil, unauthenticated("user not authenticated")
	}
	ctx = logger.Logger().WithContext(ctx)
	s.mu.Lock()
	return ctx, s.mu.Unlock, nil
}

func (s *Server) AnswerCard(ctx context.Context, req *connect.Request[AnswerCardRequest]) (
	*connect.Response[OpChanges], error) {

	ctx, unlock, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	msg := req.Msg
	if !msg.Rating.IsValid() {
		return nil, invalidArgError("rating must be between 1 and 4")
	}
	current, err := states.Unmarshal(msg.CurrentState)
	if err != nil {
		return nil, invalidArgError("current_state: " + err.Error())
	}
	next, err := states.Unmarshal(msg.NewState)
	if err != nil {
		return nil, invalidArgError("new_state: " + err.Error())
	}
	var answeredAt time.Time
	if msg.AnsweredAtMillis != 0 {
		answeredAt = time.UnixMilli(msg.AnsweredAtMillis)
	}
	changes, err := s.col.AnswerCard(ctx, &answering.CardAnswer{
		CardID:            msg.CardID,
		Rating:            msg.Rating,
		CurrentState:      current,
		NewState:          next,
		AnsweredAt:        answeredAt,
		MillisecondsTaken: msg.MillisecondsTaken,
		CustomData:        msg.CustomData,
		FromQueue:         msg.FromQueue,
	})
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&changes), nil
}

func (s *Server) GetQueuedCards(ctx context.Context, req *connect.Request[GetQueuedCardsRequest]) (
	*connect.Response[QueuedCards], error) {

	ctx, unlock, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	limit := req.Msg.FetchLimit
	if limit < 0 {
		return nil, invalidArgError("fetch_limit cannot be negative")
	}
	if limit == 0 {
		limit = defaultFetchLimit
	}
	queued, err := s.col.GetQueuedCards(ctx, limit, req.Msg.IntradayLearningOnly)
	if err != nil {
		return nil, connectError(err)
	}
	out := &QueuedCards{Counts: queued.Counts, Cards: make([]QueuedCard, 0, len(queued.Cards))}
	for _, qc := range queued.Cards {
		out.Cards = append(out.Cards, QueuedCard{
			Card:           qc.Card,
			Queue:          qc.Kind.String(),
			States:         encodeStates(qc.States),
			Retrievability: qc.Retrievability,
		})
	}
	return connect.NewResponse(out), nil
}

func (s *Server) GetSchedulingStates(ctx context.Context, req *connect.Request[CardRequest]) (
	*connect.Response[SchedulingStates], error) {

	ctx, unlock, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	st, err := s.col.GetSchedulingStates(ctx, req.Msg.CardID)
	if err != nil {
		return nil, connectError(err)
	}
	out := encodeStates(st)
	return connect.NewResponse(&out), nil
}

func (s *Server) Undo(ctx context.Context, req *connect.Request[Empty]) (
	*connect.Response[OpChangesAfterUndo], error) {

	ctx, unlock, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out, err := s.col.Undo(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&out), nil
}

func (s *Server) Redo(ctx context.Context, req *connect.Request[Empty]) (
	*connect.Response[OpChangesAfterUndo], error) {

	ctx, unlock, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out, err := s.col.Redo(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&out), nil
}

func (s *Server) GetUndoStatus(ctx context.Context, req *connect.Request[Empty]) (
	*connect.Response[UndoStatus], error) {

	_, unlock, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	st := s.col.UndoStatus()
	return connect.NewResponse(&st), nil
}

// NewHandler returns the path prefix the service is mounted on and its
// handler.
func NewHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(AnswerCardProcedure, connect.NewUnaryHandler(AnswerCardProcedure, s.AnswerCard, opts...))
	mux.Handle(GetQueuedCardsProcedure, connect.NewUnaryHandler(GetQueuedCardsProcedure, s.GetQueuedCards, opts...))
	mux.Handle(GetSchedulingStatesProcedure,
		connect.NewUnaryHandler(GetSchedulingStatesProcedure, s.GetSchedulingStates, opts...))
	mux.Handle(UndoProcedure, connect.NewUnaryHandler(UndoProcedure, s.Undo, opts...))
	mux.Handle(RedoProcedure, connect.NewUnaryHandler(RedoProcedure, s.Redo, opts...))
	mux.Handle(GetUndoStatusProcedure, connect.NewUnaryHandler(GetUndoStatusProcedure, s.GetUndoStatus, opts...))
	return ServicePath, mux
}
