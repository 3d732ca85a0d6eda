package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"feedback-agent/internal/config"
	"feedback-agent/internal/domain"
	"feedback-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// Submitter is the intake operation consumed by the API handler.
type Submitter interface {
	Submit(ctx context.Context, in usecase.SubmitInput) (usecase.SubmitOutput, error)
}

// Querier is the query-surface operation set consumed by the API handler.
type Querier interface {
	List(ctx context.Context, callerID string) ([]domain.Recommendation, error)
	Search(ctx context.Context, in usecase.SearchInput) ([]domain.Recommendation, error)
	Update(ctx context.Context, in usecase.UpdateInput) (domain.Recommendation, error)
	DeleteAll(ctx context.Context, callerID string) (int, error)
}

// APIHandler routes API Gateway proxy events to the intake and query
// services. Authentication happens upstream in the gateway authorizer;
// this handler only reads the verified caller identity it injected.
type APIHandler struct {
	submit   Submitter
	query    Querier
	settings config.Settings
}

func NewAPIHandler(submit Submitter, query Querier, settings config.Settings) (*APIHandler, error) {
	if submit == nil {
		return nil, errors.New("handler: submit service must not be nil")
	}
	if query == nil {
		return nil, errors.New("handler: query service must not be nil")
	}
	return &APIHandler{submit: submit, query: query, settings: settings}, nil
}

type submitRequest struct {
	Feedback     string   `json:"feedback"`
	Tags         []string `json:"tags"`
	FeedbackType string   `json:"feedbackType"`
}

type submitResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

type listResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	Count           int                     `json:"count"`
}

type searchResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	Count           int                     `json:"count"`
	Filters         map[string]string       `json:"filters"`
}

type updateRequest struct {
	Completed       *bool                       `json:"completed"`
	Tags            []string                    `json:"tags"`
	Recommendations []domain.RecommendationItem `json:"recommendations"`
	FeedbackType    *string                     `json:"feedbackType"`
}

type deleteResponse struct {
	DeletedCount int `json:"deletedCount"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handle dispatches one API Gateway proxy event.
func (h *APIHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event)
	log := slog.With("correlationId", corrID, "method", event.HTTPMethod, "path", event.Path)

	caller := callerIdentity(event)
	if caller == "" {
		log.Warn("request without caller identity")
		return h.errorResponse(corrID, newUnauthorized()), nil
	}

	switch {
	case event.HTTPMethod == http.MethodPost && event.Path == "/feedback":
		return h.handleSubmit(ctx, event, caller, corrID, log), nil
	case event.HTTPMethod == http.MethodGet && event.Path == "/recommendations/search":
		return h.handleSearch(ctx, event, caller, corrID, log), nil
	case event.HTTPMethod == http.MethodGet && event.Path == "/recommendations":
		return h.handleList(ctx, caller, corrID, log), nil
	case event.HTTPMethod == http.MethodPut && strings.HasPrefix(event.Path, "/recommendations/"):
		return h.handleUpdate(ctx, event, caller, corrID, log), nil
	case event.HTTPMethod == http.MethodDelete && event.Path == "/recommendations":
		return h.handleDeleteAll(ctx, caller, corrID, log), nil
	}

	log.Warn("unmatched route")
	return h.errorResponse(corrID, &usecase.Error{Code: usecase.ErrorNotFound, Reason: "unknown_route"}), nil
}

func (h *APIHandler) handleSubmit(ctx context.Context, event events.APIGatewayProxyRequest, caller, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	var req submitRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return h.errorResponse(corrID, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err})
	}

	out, err := h.submit.Submit(ctx, usecase.SubmitInput{
		CallerID:     caller,
		Feedback:     req.Feedback,
		Tags:         req.Tags,
		FeedbackType: req.FeedbackType,
	})
	if err != nil {
		log.Error("submit failed", "err", err)
		return h.errorResponse(corrID, err)
	}

	log.Info("feedback accepted", "messageId", out.MessageID)
	return h.jsonResponse(corrID, http.StatusAccepted, submitResponse{
		MessageID: out.MessageID,
		Status:    "processing",
	})
}

func (h *APIHandler) handleList(ctx context.Context, caller, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	recs, err := h.query.List(ctx, caller)
	if err != nil {
		log.Error("list failed", "err", err)
		return h.errorResponse(corrID, err)
	}
	return h.jsonResponse(corrID, http.StatusOK, listResponse{
		Recommendations: recs,
		Count:           len(recs),
	})
}

func (h *APIHandler) handleSearch(ctx context.Context, event events.APIGatewayProxyRequest, caller, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	params := event.QueryStringParameters

	in := usecase.SearchInput{
		CallerID:     caller,
		FromDate:     params["fromDate"],
		ToDate:       params["toDate"],
		FeedbackType: params["feedbackType"],
		Text:         params["search"],
		Tags:         splitTags(params["tags"]),
	}
	if v, ok := params["completed"]; ok {
		completed := v == "true"
		in.Completed = &completed
	}

	recs, err := h.query.Search(ctx, in)
	if err != nil {
		log.Error("search failed", "err", err)
		return h.errorResponse(corrID, err)
	}

	applied := map[string]string{}
	for _, key := range []string{"search", "tags", "completed", "feedbackType", "fromDate", "toDate"} {
		if v, ok := params[key]; ok && v != "" {
			applied[key] = v
		}
	}
	return h.jsonResponse(corrID, http.StatusOK, searchResponse{
		Recommendations: recs,
		Count:           len(recs),
		Filters:         applied,
	})
}

func (h *APIHandler) handleUpdate(ctx context.Context, event events.APIGatewayProxyRequest, caller, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	timestamp := event.PathParameters["timestamp"]
	if timestamp == "" {
		timestamp = strings.TrimPrefix(event.Path, "/recommendations/")
	}

	var req updateRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return h.errorResponse(corrID, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err})
	}

	rec, err := h.query.Update(ctx, usecase.UpdateInput{
		CallerID:        caller,
		Timestamp:       timestamp,
		Completed:       req.Completed,
		Tags:            req.Tags,
		Recommendations: req.Recommendations,
		FeedbackType:    req.FeedbackType,
	})
	if err != nil {
		log.Error("update failed", "timestamp", timestamp, "err", err)
		return h.errorResponse(corrID, err)
	}
	return h.jsonResponse(corrID, http.StatusOK, rec)
}

func (h *APIHandler) handleDeleteAll(ctx context.Context, caller, corrID string, log *slog.Logger) events.APIGatewayProxyResponse {
	count, err := h.query.DeleteAll(ctx, caller)
	if err != nil {
		log.Error("delete all failed", "err", err)
		return h.errorResponse(corrID, err)
	}
	log.Info("records deleted", "count", count)
	return h.jsonResponse(corrID, http.StatusOK, deleteResponse{DeletedCount: count})
}

func (h *APIHandler) jsonResponse(corrID string, status int, body any) events.APIGatewayProxyResponse {
	encoded, err := json.Marshal(body)
	if err != nil {
		return h.errorResponse(corrID, &usecase.Error{Code: usecase.ErrorInternal, Reason: "encode_response", Err: err})
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    h.headers(corrID),
		Body:       string(encoded),
	}
}

func (h *APIHandler) errorResponse(corrID string, err error) events.APIGatewayProxyResponse {
	code := usecase.ErrorInternal
	message := "An unexpected error occurred"

	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		code = ucErr.Code
		if h.settings.DebugErrors {
			message = ucErr.Reason
		} else {
			message = publicMessage(code)
		}
	}

	body, _ := json.Marshal(errorResponse{Error: string(code), Message: message})
	return events.APIGatewayProxyResponse{
		StatusCode: statusFor(code),
		Headers:    h.headers(corrID),
		Body:       string(body),
	}
}

func (h *APIHandler) headers(corrID string) map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": h.settings.AllowedOrigin,
		correlationHeader:             corrID,
	}
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorUnauthorized:
		return http.StatusUnauthorized
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(code usecase.ErrorCode) string {
	switch code {
	case usecase.ErrorUnauthorized:
		return "Authentication required"
	case usecase.ErrorInvalidInput:
		return "Invalid request"
	case usecase.ErrorNotFound:
		return "Not found"
	default:
		return "An unexpected error occurred"
	}
}

func newUnauthorized() *usecase.Error {
	return &usecase.Error{Code: usecase.ErrorUnauthorized, Reason: "missing_caller_identity"}
}

// callerIdentity extracts the verified subject injected by the gateway
// authorizer. An empty result means the request must be rejected, never
// given a fallback identity.
func callerIdentity(event events.APIGatewayProxyRequest) string {
	auth := event.RequestContext.Authorizer
	if auth == nil {
		return ""
	}
	if claims, ok := auth["claims"].(map[string]any); ok {
		if sub, ok := claims["sub"].(string); ok {
			return strings.TrimSpace(sub)
		}
	}
	if sub, ok := auth["sub"].(string); ok {
		return strings.TrimSpace(sub)
	}
	return ""
}

func correlationID(event events.APIGatewayProxyRequest) string {
	for k, v := range event.Headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
