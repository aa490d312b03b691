// Package packserve exposes a read-only view of a runtime pack over Connect
// RPC, so tooling outside the process can inspect what a pack generated.
//
// Messages are protobuf well-known types; no generated code is involved:
//
//	/rrp.v1.PackService/Read        StringValue (layout path)  -> BytesValue
//	/rrp.v1.PackService/Exists      StringValue (layout path)  -> BoolValue
//	/rrp.v1.PackService/Namespaces  StringValue (section)      -> ListValue
//	/rrp.v1.PackService/Find        Struct{section,namespace,prefix} -> ListValue
//	/rrp.v1.PackService/Metadata    Empty                      -> Struct
package packserve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/pack"
	"github.com/tailored-agentic-units/rrp/resource"
)

// Procedure paths of the pack service.
const (
	ServiceName         = "rrp.v1.PackService"
	ReadProcedure       = "/" + ServiceName + "/Read"
	ExistsProcedure     = "/" + ServiceName + "/Exists"
	NamespacesProcedure = "/" + ServiceName + "/Namespaces"
	FindProcedure       = "/" + ServiceName + "/Find"
	MetadataProcedure   = "/" + ServiceName + "/Metadata"
)

// EventRequest is emitted once per handled request.
const EventRequest observability.EventType = "packserve.request"

// Source is the read side of a pack. *pack.Pack satisfies it.
type Source interface {
	ID() resource.ID
	Read(ctx context.Context, section resource.Section, id resource.ID) ([]byte, error)
	ReadRoot(ctx context.Context, name string) ([]byte, error)
	Exists(section resource.Section, id resource.ID) bool
	ExistsRoot(name string) bool
	Namespaces(section resource.Section) []string
	Find(section resource.Section, namespace, prefix string, filter func(path string) bool) []resource.ID
	Metadata(ctx context.Context) (pack.Metadata, error)
}

// Server serves one Source.
type Server struct {
	src      Source
	cfg      Config
	observer observability.Observer
	mux      *http.ServeMux
}

// Option configures a Server during NewServer.
type Option func(*Server)

// WithObserver overrides the observer named in Config.
func WithObserver(observer observability.Observer) Option {
	return func(s *Server) {
		s.observer = observer
	}
}

// NewServer builds the handlers for src. Zero values in cfg fall back to
// DefaultConfig.
func NewServer(src Source, cfg Config, opts ...Option) (*Server, error) {
	def := DefaultConfig()
	def.Merge(&cfg)

	s := &Server{src: src, cfg: def, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	if s.observer == nil {
		observer, err := observability.GetObserver(def.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		s.observer = observer
	}

	limit := rate.Limit(def.RateLimit)
	if def.RateLimit < 0 {
		limit = rate.Inf
	}
	interceptors := connect.WithInterceptors(
		NewObserverInterceptor(s.observer),
		NewRateLimitInterceptor(rate.NewLimiter(limit, def.Burst)),
	)

	s.mux.Handle(ReadProcedure, connect.NewUnaryHandler(ReadProcedure, s.read, interceptors))
	s.mux.Handle(ExistsProcedure, connect.NewUnaryHandler(ExistsProcedure, s.exists, interceptors))
	s.mux.Handle(NamespacesProcedure, connect.NewUnaryHandler(NamespacesProcedure, s.namespaces, interceptors))
	s.mux.Handle(FindProcedure, connect.NewUnaryHandler(FindProcedure, s.find, interceptors))
	s.mux.Handle(MetadataProcedure, connect.NewUnaryHandler(MetadataProcedure, s.metadata, interceptors))

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on Config.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) read(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[wrapperspb.BytesValue], error) {
	section, id, err := pack.ParseLocation(req.Msg.GetValue())
	if err != nil {
		return nil, toConnect(err)
	}

	var data []byte
	if section == resource.Root {
		data, err = s.src.ReadRoot(ctx, id.Path)
	} else {
		data, err = s.src.Read(ctx, section, id)
	}
	if err != nil {
		return nil, toConnect(err)
	}
	return connect.NewResponse(wrapperspb.Bytes(data)), nil
}

func (s *Server) exists(_ context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[wrapperspb.BoolValue], error) {
	section, id, err := pack.ParseLocation(req.Msg.GetValue())
	if err != nil {
		return nil, toConnect(err)
	}

	var ok bool
	if section == resource.Root {
		ok = s.src.ExistsRoot(id.Path)
	} else {
		ok = s.src.Exists(section, id)
	}
	return connect.NewResponse(wrapperspb.Bool(ok)), nil
}

func (s *Server) namespaces(_ context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[structpb.ListValue], error) {
	section, err := resource.ParseSection(req.Msg.GetValue())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	namespaces := s.src.Namespaces(section)
	values := make([]any, len(namespaces))
	for i, ns := range namespaces {
		values[i] = ns
	}
	return newListResponse(values)
}

func (s *Server) find(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.ListValue], error) {
	fields := req.Msg.GetFields()
	section, err := resource.ParseSection(fields["section"].GetStringValue())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	ids := s.src.Find(section, fields["namespace"].GetStringValue(), fields["prefix"].GetStringValue(), nil)
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = pack.Location(section, id)
	}
	return newListResponse(values)
}

func (s *Server) metadata(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	md, err := s.src.Metadata(ctx)
	if err != nil {
		return nil, toConnect(err)
	}

	msg, err := structpb.NewStruct(map[string]any{
		"id":          s.src.ID().String(),
		"pack_format": md.Format,
		"description": md.Description,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func newListResponse(values []any) (*connect.Response[structpb.ListValue], error) {
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}
