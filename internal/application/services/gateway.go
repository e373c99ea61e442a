package services

import (
	"context"
	"errors"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/auth"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/avatarctic/commerce-gateway/gateway"

// Call is one client invocation of a named operation.
type Call struct {
	Operation operation.Name
	// Principal is used when the caller already authenticated the request; otherwise Token is verified.
	Principal      *auth.Principal
	Token          string
	ID             string
	Params         resource.Params
	Body           any
	IdempotencyKey string
}

// Reply carries the typed result and the cache path taken.
type Reply struct {
	Value   any
	Outcome ports.Outcome
	Shared  bool
}

// RouterConfig groups router settings.
type RouterConfig struct {
	BackendTimeout time.Duration
}

// GatewayRouter classifies each call as cacheable read or mutating write and drives the
// fetcher or the invalidation coordinator accordingly. Authentication and scope checks
// happen before any cache access.
type GatewayRouter struct {
	ops         *operation.Table
	auth        ports.Authenticator
	backend     ports.BackendClient
	fetcher     *CoalescingFetcher
	coordinator *InvalidationCoordinator
	ttl         *TTLPolicy
	codec       ports.Codec
	sink        ports.EventSink
	logger      *logrus.Logger
	tracer      trace.Tracer
	timeout     time.Duration
}

// RouterDeps are the collaborators of the router.
type RouterDeps struct {
	Operations  *operation.Table
	Auth        ports.Authenticator
	Backend     ports.BackendClient
	Fetcher     *CoalescingFetcher
	Coordinator *InvalidationCoordinator
	TTL         *TTLPolicy
	Codec       ports.Codec
	Sink        ports.EventSink
	Logger      *logrus.Logger
}

func NewGatewayRouter(deps RouterDeps, cfg *RouterConfig) *GatewayRouter {
	timeout := 5 * time.Second
	if cfg != nil && cfg.BackendTimeout > 0 {
		timeout = cfg.BackendTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	ttl := deps.TTL
	if ttl == nil {
		ttl = NewTTLPolicy(nil, 0)
	}
	return &GatewayRouter{
		ops:         deps.Operations,
		auth:        deps.Auth,
		backend:     deps.Backend,
		fetcher:     deps.Fetcher,
		coordinator: deps.Coordinator,
		ttl:         ttl,
		codec:       deps.Codec,
		sink:        deps.Sink,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
		timeout:     timeout,
	}
}

// Operations exposes the operation table.
func (r *GatewayRouter) Operations() *operation.Table { return r.ops }

// Authenticate verifies token and returns the principal.
func (r *GatewayRouter) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	if token == "" {
		return auth.Principal{}, failure.Unauthorized("missing credentials")
	}
	if r.auth == nil {
		return auth.Principal{}, failure.Unauthorized("no authenticator configured")
	}
	p, err := r.auth.Verify(ctx, token)
	if err != nil {
		if failure.KindOf(err) == "" {
			return auth.Principal{}, failure.Wrap(failure.KindUnauthorized, "invalid token", err)
		}
		return auth.Principal{}, err
	}
	return p, nil
}

// Execute runs call and reports the outcome to the event sink.
func (r *GatewayRouter) Execute(ctx context.Context, call Call) (*Reply, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "gateway."+string(call.Operation), trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	ev := ports.Event{Operation: string(call.Operation), Outcome: ports.OutcomeBypass}
	reply, err := r.execute(ctx, call, &ev)
	ev.Latency = time.Since(start)
	if reply != nil {
		ev.Outcome, ev.Shared = reply.Outcome, reply.Shared
	}
	if err != nil {
		ev.Failure = failureName(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, ev.Failure)
	}
	span.SetAttributes(
		attribute.String("gateway.resource", string(ev.Resource)),
		attribute.String("gateway.outcome", string(ev.Outcome)),
		attribute.Bool("gateway.shared", ev.Shared),
	)
	if r.sink != nil {
		r.sink.Emit(ev)
	}
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (r *GatewayRouter) execute(ctx context.Context, call Call, ev *ports.Event) (*Reply, error) {
	op, ok := r.ops.Lookup(call.Operation)
	if !ok {
		return nil, failure.InvalidRequest("unknown operation " + string(call.Operation))
	}
	ev.Resource = op.Resource

	principal, err := r.principal(ctx, call)
	if err != nil {
		return nil, err
	}
	if !principal.HasScope(op.Scope) {
		return nil, failure.Forbidden("missing scope " + op.Scope)
	}

	req := operation.Request{
		Principal:      principal,
		ID:             call.ID,
		Params:         pick(call.Params, op.ParamNames),
		Body:           call.Body,
		IdempotencyKey: call.IdempotencyKey,
	}
	if op.Validate != nil {
		if err := op.Validate(req); err != nil {
			if failure.KindOf(err) == "" {
				err = failure.Wrap(failure.KindInvalidRequest, err.Error(), err)
			}
			return nil, err
		}
	}

	if op.Kind == operation.Write {
		return r.write(ctx, op, req, ev)
	}
	return r.read(ctx, op, req, ev)
}

func (r *GatewayRouter) principal(ctx context.Context, call Call) (auth.Principal, error) {
	if call.Principal != nil && call.Principal.ID != "" {
		return *call.Principal, nil
	}
	return r.Authenticate(ctx, call.Token)
}

func (r *GatewayRouter) read(ctx context.Context, op *operation.Operation, req operation.Request, ev *ports.Event) (*Reply, error) {
	breq := backendRequest(op, req)
	load := func(ctx context.Context) (any, error) {
		out := op.NewResult()
		if err := r.backend.Read(ctx, breq, out); err != nil {
			return nil, err
		}
		return out, nil
	}

	ttl := r.ttl.TTL(op.Resource)
	if ttl <= 0 || r.fetcher == nil {
		bctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		v, err := load(bctx)
		if err != nil {
			return nil, normalizeBackendError(err)
		}
		return &Reply{Value: v, Outcome: ports.OutcomeBypass}, nil
	}

	res, err := r.fetcher.Fetch(ctx, FetchRequest{
		Key:      op.Key(req).String(),
		Resource: op.Resource,
		TTL:      ttl,
		Decode: func(payload []byte) (any, error) {
			out := op.NewResult()
			if err := r.codec.Decode(payload, out); err != nil {
				return nil, err
			}
			return out, nil
		},
		Load: load,
	})
	ev.Degraded = res.Degraded
	if err != nil {
		return &Reply{Outcome: res.Outcome, Shared: res.Shared}, err
	}
	return &Reply{Value: res.Value, Outcome: res.Outcome, Shared: res.Shared}, nil
}

// write forwards the mutation and, once the backend reports its outcome, applies the rule.
// An ambiguous outcome (timeout, unavailable) may still have committed, so it invalidates too.
func (r *GatewayRouter) write(ctx context.Context, op *operation.Operation, req operation.Request, ev *ports.Event) (*Reply, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	breq := backendRequest(op, req)

	// A committed write must be followed by its invalidation even if the client disconnects.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	out := op.NewResult()
	err := r.backend.Write(wctx, breq, out)
	if err != nil {
		err = normalizeBackendError(err)
		if !failure.IsRetryable(err) {
			return nil, err
		}
		r.logger.WithFields(logrus.Fields{"operation": op.Name, "idempotency_key": req.IdempotencyKey}).WithError(err).Warn("write outcome unknown, invalidating")
	}

	if r.coordinator != nil {
		rep := r.coordinator.Apply(wctx, op.Rule, req.Bindings())
		if len(rep.Failed) > 0 {
			ev.Degraded = true
		}
	}
	if err != nil {
		return nil, err
	}
	return &Reply{Value: out, Outcome: ports.OutcomeBypass}, nil
}

func backendRequest(op *operation.Operation, req operation.Request) ports.BackendRequest {
	return ports.BackendRequest{
		Resource:       op.Resource,
		Action:         op.Action,
		Subject:        req.Principal.ID,
		ID:             req.ID,
		Params:         req.Params,
		Body:           req.Body,
		IdempotencyKey: req.IdempotencyKey,
	}
}

// pick keeps the whitelisted, non-empty parameters under their canonical names.
func pick(params resource.Params, names []string) resource.Params {
	out := make(resource.Params, len(names))
	for _, n := range names {
		v := params.Get(n)
		for _, alias := range paramAliases[n] {
			if v != "" {
				break
			}
			v = params.Get(alias)
		}
		if v != "" {
			out[n] = v
		}
	}
	return out
}

func failureName(err error) string {
	if k := failure.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "internal"
}
