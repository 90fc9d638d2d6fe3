package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TagProducts = "products"
	TagCart     = "cart"
)

// Observer receives the outcome of every remote call.
type Observer interface {
	ObserveRemoteCall(operation string, elapsed time.Duration, err error)
}

// Client talks to the Storefront GraphQL API.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	observer   Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTimeout bounds every remote call. Calls are never retried.
// A client passed through WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Request is one GraphQL operation.
type Request struct {
	Operation string
	Query     string
	Variables map[string]interface{}
	Tags      []string
}

type requestBody struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type responseEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Fetch executes req and decodes the data member of the response into out.
// Every failure is returned as *Error.
func (c *Client) Fetch(ctx context.Context, req Request, out interface{}) (err error) {
	ctx, span := otel.Tracer("storefront/shopify").Start(ctx, "shopify."+req.Operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("shopify.operation", req.Operation),
		attribute.String("shopify.tags", strings.Join(req.Tags, ",")),
	)
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if c.observer != nil {
			c.observer.ObserveRemoteCall(req.Operation, time.Since(start), err)
		}
	}()

	payload, err := json.Marshal(requestBody{Query: req.Query, Variables: req.Variables})
	if err != nil {
		return &Error{Cause: "encode", Status: 500, Message: "encoding request", Query: req.Query, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Error{Cause: "request", Status: 500, Message: "creating request", Query: req.Query, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Shopify-Storefront-Access-Token", c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &Error{Cause: "transport", Status: 500, Message: fmt.Sprintf("executing request: %v", err), Query: req.Query, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Cause: "transport", Status: resp.StatusCode, Message: "reading response", Query: req.Query, Err: err}
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		status := resp.StatusCode
		if status < 400 {
			status = 500
		}
		return &Error{Cause: "decode", Status: status, Message: "decoding response", Query: req.Query, Err: err}
	}
	if len(envelope.Errors) > 0 {
		return newGraphQLError(resp.StatusCode, envelope.Errors[0], req.Query)
	}
	if resp.StatusCode >= 400 {
		return &Error{Cause: "http", Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Query: req.Query}
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &Error{Cause: "decode", Status: 500, Message: "decoding data", Query: req.Query, Err: err}
	}
	return nil
}
