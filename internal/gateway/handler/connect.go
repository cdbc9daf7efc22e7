package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"travelhub/internal/generation"
	"travelhub/internal/trip"
)

// Connect procedure paths for the itinerary service.
const (
	ItineraryServiceName    = "travelhub.v1.ItineraryService"
	GenerateProcedure       = "/" + ItineraryServiceName + "/Generate"
	GenerateStreamProcedure = "/" + ItineraryServiceName + "/GenerateStream"
	ValidateProcedure       = "/" + ItineraryServiceName + "/Validate"
	errorKindHeader         = "X-Error-Kind"
)

// jsonCodec lets the Connect handlers carry the plain JSON messages shared
// with the REST endpoints. It replaces connect's protojson codec under the
// same name, so clients talk to it with Content-Type application/json.
type jsonCodec struct{}

func (jsonCodec) Name() string                    { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// ConnectCodec is the codec Connect clients of this service must use.
func ConnectCodec() connect.Codec { return jsonCodec{} }

// ConnectHandlers returns the Connect procedures keyed by their mount path.
func (s *Service) ConnectHandlers() map[string]http.Handler {
	opts := []connect.HandlerOption{connect.WithCodec(jsonCodec{})}
	return map[string]http.Handler{
		GenerateProcedure:       connect.NewUnaryHandler(GenerateProcedure, s.connectGenerate, opts...),
		GenerateStreamProcedure: connect.NewServerStreamHandler(GenerateStreamProcedure, s.connectGenerateStream, opts...),
		ValidateProcedure:       connect.NewUnaryHandler(ValidateProcedure, s.connectValidate, opts...),
	}
}

func (s *Service) connectGenerate(ctx context.Context, req *connect.Request[GenerateRequest]) (*connect.Response[GenerateResponse], error) {
	answers, err := trip.ParseAnswers(req.Msg.Answers)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	res, trace, err := s.orch.Generate(ctx, answers)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(newGenerateResponse(res, trace)), nil
}

func (s *Service) connectGenerateStream(ctx context.Context, req *connect.Request[GenerateRequest], stream *connect.ServerStream[StreamEvent]) error {
	answers, err := trip.ParseAnswers(req.Msg.Answers)
	if err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.orch.Ready(); err != nil {
		return connectError(err)
	}

	var sendErr error
	res, trace, err := s.orch.GenerateStream(ctx, answers, func(c generation.StreamChunk) {
		if sendErr != nil {
			return
		}
		if ev, ok := streamEvent(c); ok {
			sendErr = stream.Send(&ev)
		}
	}, nil)
	if sendErr != nil {
		return connect.NewError(connect.CodeInternal, sendErr)
	}
	final := finalEvent(res, trace, err)
	if err := stream.Send(&final); err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	return nil
}

func (s *Service) connectValidate(ctx context.Context, req *connect.Request[ValidateRequest]) (*connect.Response[ValidateResponse], error) {
	idx, answer, err := prepareValidate(*req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	out := s.validateAnswer(ctx, idx, answer)
	return connect.NewResponse(&out), nil
}

// CodeFor maps a failure kind onto a Connect status code.
func CodeFor(kind generation.ErrorKind) connect.Code {
	switch kind {
	case generation.RateLimited:
		return connect.CodeResourceExhausted
	case generation.ServiceUnavailable:
		return connect.CodeUnavailable
	case generation.Timeout:
		return connect.CodeDeadlineExceeded
	case generation.ConfigurationMissing:
		return connect.CodeFailedPrecondition
	default:
		return connect.CodeInternal
	}
}

// connectError exposes only the user-facing message; the kind travels in
// the X-Error-Kind metadata.
func connectError(err error) *connect.Error {
	kind := generation.KindOf(err)
	if kind == "" {
		kind = generation.UnknownProvider
	}
	cerr := connect.NewError(CodeFor(kind), errors.New(generation.UserMessage(kind)))
	cerr.Meta().Set(errorKindHeader, string(kind))
	return cerr
}
