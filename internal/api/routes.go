package api

import "github.com/gorilla/mux"

// Register mounts the API surface under the given router (normally the
// /api/v1 subrouter).
func (h *Handler) Register(r *mux.Router) {
	// Static transaction paths must be registered before the {transactionId}
	// matcher.
	r.HandleFunc("/transactions/contacts", h.ContactsFeedHandler).Methods("GET")
	r.HandleFunc("/transactions/public", h.PublicFeedHandler).Methods("GET")
	r.HandleFunc("/transactions", h.OwnFeedHandler).Methods("GET")
	r.HandleFunc("/transactions", h.CreateTransactionHandler).Methods("POST")
	r.HandleFunc("/transactions/{transactionId}", h.GetTransactionHandler).Methods("GET")
	r.HandleFunc("/transactions/{transactionId}", h.PatchTransactionHandler).Methods("PATCH")
	r.HandleFunc("/transactions/{transactionId}/resolve", h.ResolveRequestHandler).Methods("POST")

	r.HandleFunc("/comments/{transactionId}", h.ListCommentsHandler).Methods("GET")
	r.HandleFunc("/comments/{transactionId}", h.CreateCommentHandler).Methods("POST")
	r.HandleFunc("/likes/{transactionId}", h.CreateLikeHandler).Methods("POST")

	r.HandleFunc("/notifications", h.ListNotificationsHandler).Methods("GET")
	r.HandleFunc("/notifications/bulk", h.BulkCreateNotificationsHandler).Methods("POST")
	r.HandleFunc("/notifications/{notificationId}", h.PatchNotificationHandler).Methods("PATCH")

	r.HandleFunc("/users", h.CreateUserHandler).Methods("POST")
	r.HandleFunc("/users", h.ListUsersHandler).Methods("GET")
	r.HandleFunc("/users/search", h.SearchUsersHandler).Methods("GET")
	r.HandleFunc("/users/profile/{username}", h.GetProfileHandler).Methods("GET")
	r.HandleFunc("/users/{userId}", h.GetUserHandler).Methods("GET")
	r.HandleFunc("/users/{userId}", h.PatchUserHandler).Methods("PATCH")
}
