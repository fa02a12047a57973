package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/mkale/payfeed/internal/domain"
	"github.com/mkale/payfeed/internal/service"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payfeed_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payfeed_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// Handler exposes the core services over HTTP. The excluded auth layer is
// expected to authenticate upstream and pass the actor in X-User-ID.
type Handler struct {
	ledger        *service.Ledger
	feed          *service.Feed
	social        *service.Social
	notifications *service.Notifications
	users         *service.Users
	log           *slog.Logger
}

func NewHandler(ledger *service.Ledger, feed *service.Feed, social *service.Social, notifications *service.Notifications, users *service.Users, log *slog.Logger) *Handler {
	return &Handler{
		ledger:        ledger,
		feed:          feed,
		social:        social,
		notifications: notifications,
		users:         users,
		log:           log,
	}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"}, "/health")
}

// --- Transactions ---

type createTransactionRequest struct {
	TransactionType string          `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	ReceiverID      string          `json:"receiverId"`
	PrivacyLevel    string          `json:"privacyLevel"`
}

func (h *Handler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/transactions"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Malformed JSON body", endpoint)
		return
	}

	t, err := h.ledger.Create(r.Context(), actor, service.CreateTransactionInput{
		Kind:         req.TransactionType,
		ReceiverID:   req.ReceiverID,
		Amount:       req.Amount,
		Description:  req.Description,
		PrivacyLevel: req.PrivacyLevel,
	})
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}

	h.respondJSON(w, r, http.StatusCreated, map[string]any{"transaction": t}, endpoint)
}

func (h *Handler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/transactions/{transactionId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	item, err := h.ledger.Get(r.Context(), actor, mux.Vars(r)["transactionId"])
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"transaction": item}, endpoint)
}

func (h *Handler) PatchTransactionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/transactions/{transactionId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("PATCH", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	var req struct {
		Status        *string `json:"status"`
		RequestStatus *string `json:"requestStatus"`
		Description   *string `json:"description"`
		PrivacyLevel  *string `json:"privacyLevel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Malformed JSON body", endpoint)
		return
	}

	err := h.ledger.Patch(r.Context(), actor, mux.Vars(r)["transactionId"], service.PatchTransactionInput{
		Status:        req.Status,
		RequestStatus: req.RequestStatus,
		Description:   req.Description,
		PrivacyLevel:  req.PrivacyLevel,
	})
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondStatus(w, r, http.StatusNoContent, endpoint)
}

func (h *Handler) ResolveRequestHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/transactions/{transactionId}/resolve"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	var req struct {
		Resolution string `json:"resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Malformed JSON body", endpoint)
		return
	}

	t, err := h.ledger.ResolveRequest(r.Context(), actor, mux.Vars(r)["transactionId"], req.Resolution)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"transaction": t}, endpoint)
}

// --- Feeds ---

func (h *Handler) OwnFeedHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/transactions"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}
	filters, page, limit, err := parseFeedQuery(r)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}

	result, err := h.feed.Own(r.Context(), actor, filters, page, limit)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondPage(w, r, result, endpoint)
}

func (h *Handler) ContactsFeedHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/transactions/contacts"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}
	filters, page, limit, err := parseFeedQuery(r)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}

	result, err := h.feed.Contacts(r.Context(), actor, filters, page, limit)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondPage(w, r, result, endpoint)
}

func (h *Handler) PublicFeedHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/transactions/public"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	if _, ok := h.requireActor(w, r, endpoint); !ok {
		return
	}
	filters, page, limit, err := parseFeedQuery(r)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}

	result, err := h.feed.Public(r.Context(), filters, page, limit)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondPage(w, r, result, endpoint)
}

// --- Comments and likes ---

func (h *Handler) ListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/comments/{transactionId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	if _, ok := h.requireActor(w, r, endpoint); !ok {
		return
	}

	comments, err := h.social.ListComments(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"comments": comments}, endpoint)
}

func (h *Handler) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/comments/{transactionId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Malformed JSON body", endpoint)
		return
	}

	comment, err := h.social.AddComment(r.Context(), actor, mux.Vars(r)["transactionId"], req.Content)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, map[string]any{"comment": comment}, endpoint)
}

func (h *Handler) CreateLikeHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/likes/{transactionId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	like, err := h.social.AddLike(r.Context(), actor, mux.Vars(r)["transactionId"])
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, map[string]any{"like": like}, endpoint)
}

// --- Notifications ---

func (h *Handler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/notifications"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	ns, err := h.notifications.ListUnread(r.Context(), actor)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"results": ns}, endpoint)
}

func (h *Handler) BulkCreateNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/notifications/bulk"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	var req struct {
		Items []domain.NotificationItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Malformed JSON body", endpoint)
		return
	}

	ns, err := h.notifications.BulkCreate(r.Context(), actor, req.Items)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"results": ns}, endpoint)
}

func (h *Handler) PatchNotificationHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/notifications/{notificationId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("PATCH", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	var req struct {
		IsRead bool `json:"isRead"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Malformed JSON body", endpoint)
		return
	}
	if !req.IsRead {
		h.respondError(w, r, http.StatusUnprocessableEntity, "Only marking read is supported", endpoint)
		return
	}

	if err := h.notifications.MarkRead(r.Context(), actor, mux.Vars(r)["notificationId"]); err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondStatus(w, r, http.StatusNoContent, endpoint)
}

// --- Users ---

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/users"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req struct {
		Username            string `json:"username"`
		FirstName           string `json:"firstName"`
		LastName            string `json:"lastName"`
		Email               string `json:"email"`
		PhoneNumber         string `json:"phoneNumber"`
		Password            string `json:"password"`
		DefaultPrivacyLevel string `json:"defaultPrivacyLevel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Malformed JSON body", endpoint)
		return
	}

	u, err := h.users.Create(r.Context(), service.CreateUserInput{
		Username:            req.Username,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Email:               req.Email,
		PhoneNumber:         req.PhoneNumber,
		Password:            req.Password,
		DefaultPrivacyLevel: req.DefaultPrivacyLevel,
	})
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, map[string]any{"user": u}, endpoint)
}

func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/users"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	users, err := h.users.List(r.Context(), actor)
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"results": users}, endpoint)
}

func (h *Handler) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/users/search"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	users, err := h.users.Search(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"results": users}, endpoint)
}

func (h *Handler) PatchUserHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/users/{userId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("PATCH", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	var req struct {
		Username            *string `json:"username"`
		FirstName           *string `json:"firstName"`
		LastName            *string `json:"lastName"`
		Email               *string `json:"email"`
		PhoneNumber         *string `json:"phoneNumber"`
		Avatar              *string `json:"avatar"`
		DefaultPrivacyLevel *string `json:"defaultPrivacyLevel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Malformed JSON body", endpoint)
		return
	}

	err := h.users.Update(r.Context(), actor, mux.Vars(r)["userId"], service.UpdateUserInput{
		Username:            req.Username,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Email:               req.Email,
		PhoneNumber:         req.PhoneNumber,
		Avatar:              req.Avatar,
		DefaultPrivacyLevel: req.DefaultPrivacyLevel,
	})
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondStatus(w, r, http.StatusNoContent, endpoint)
}

func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/users/{userId}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	actor, ok := h.requireActor(w, r, endpoint)
	if !ok {
		return
	}

	u, err := h.users.Get(r.Context(), actor, mux.Vars(r)["userId"])
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"user": u}, endpoint)
}

func (h *Handler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/users/profile/{username}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	profile, err := h.users.Profile(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.respondDomainError(w, r, err, endpoint)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"user": profile}, endpoint)
}

// --- Helpers ---

// requireActor reads the authenticated user id set by the upstream auth
// layer. No identity means the request never passed authentication.
func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request, endpoint string) (string, bool) {
	actor := r.Header.Get("X-User-ID")
	if actor == "" {
		h.respondError(w, r, http.StatusUnauthorized, "Missing X-User-ID header", endpoint)
		return "", false
	}
	return actor, true
}

func parseFeedQuery(r *http.Request) (domain.FeedFilters, int, int, error) {
	q := r.URL.Query()
	var filters domain.FeedFilters
	var err error

	if v := q.Get("status"); v != "" {
		if filters.Status, err = domain.ParseTransactionStatus(v); err != nil {
			return filters, 0, 0, err
		}
	}
	if v := q.Get("requestStatus"); v != "" {
		if filters.RequestStatus, err = domain.ParseRequestStatus(v); err != nil {
			return filters, 0, 0, err
		}
	}
	if v := q.Get("amountMin"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return filters, 0, 0, fmt.Errorf("%w: bad amountMin %q", domain.ErrValidation, v)
		}
		filters.AmountMin = &d
	}
	if v := q.Get("amountMax"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return filters, 0, 0, fmt.Errorf("%w: bad amountMax %q", domain.ErrValidation, v)
		}
		filters.AmountMax = &d
	}
	if v := q.Get("dateBegin"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, 0, 0, fmt.Errorf("%w: bad dateBegin %q", domain.ErrValidation, v)
		}
		filters.DateBegin = &t
	}
	if v := q.Get("dateEnd"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, 0, 0, fmt.Errorf("%w: bad dateEnd %q", domain.ErrValidation, v)
		}
		filters.DateEnd = &t
	}

	// Bad paging values are normalized, not rejected, mirroring the paging
	// defaults of the feed contract.
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, limit = service.NormalizePaging(page, limit)
	return filters, page, limit, nil
}

// respondPage writes the paged feed envelope.
func (h *Handler) respondPage(w http.ResponseWriter, r *http.Request, p domain.Page[domain.FeedItem], endpoint string) {
	h.respondJSON(w, r, http.StatusOK, map[string]any{
		"pageData": map[string]any{
			"page":         p.Page,
			"limit":        p.Limit,
			"totalPages":   p.TotalPages,
			"hasNextPages": p.HasNextPages,
		},
		"results": p.Data,
	}, endpoint)
}

// respondDomainError maps the core error taxonomy onto status codes.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error, endpoint string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.respondError(w, r, http.StatusUnprocessableEntity, err.Error(), endpoint)
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, r, http.StatusNotFound, err.Error(), endpoint)
	case errors.Is(err, domain.ErrUnauthorized):
		h.respondError(w, r, http.StatusUnauthorized, err.Error(), endpoint)
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		h.respondError(w, r, http.StatusConflict, err.Error(), endpoint)
	default:
		h.log.Error("request failed", "endpoint", endpoint, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "Internal Server Error", endpoint)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, code int, message string, endpoint string) {
	h.respondJSON(w, r, code, map[string]string{"error": message}, endpoint)
}

func (h *Handler) respondStatus(w http.ResponseWriter, r *http.Request, code int, endpoint string) {
	httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(code)).Inc()
	w.WriteHeader(code)
}

func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, code int, payload any, endpoint string) {
	httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
